package ai

import "context"

// Runtime is a minimal interface implemented by AI backends/runtimes
// such as OpenRouter and local runtimes (e.g., Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// ModelLister reports the model identifiers a runtime can serve.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Backend is a runtime that can also enumerate its models.
type Backend interface {
	Runtime
	ModelLister
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderLocal      = "local"
)
