package ai

import (
	"encoding/json"
	"os"
)

// Model metadata used for context-window warnings and cost hints.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	// Local (Ollama) tags, in the default preference order first.
	"phi3:mini":        {Name: "phi3:mini", ContextTokens: 4096},
	"mistral:latest":   {Name: "mistral:latest", ContextTokens: 8192},
	"llama3:8b":        {Name: "llama3:8b", ContextTokens: 8192},
	"llama3:latest":    {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b":      {Name: "llama3.1:8b", ContextTokens: 131072},
	"qwen2.5:7b":       {Name: "qwen2.5:7b", ContextTokens: 32768},
	"gemma2:9b":        {Name: "gemma2:9b", ContextTokens: 8192},
	"phi3:mini-128k":   {Name: "phi3:mini-128k", ContextTokens: 128000},
	"mistral-nemo:12b": {Name: "mistral-nemo:12b", ContextTokens: 128000},
	// OpenRouter
	"microsoft/phi-3-mini-128k-instruct": {
		Name:          "microsoft/phi-3-mini-128k-instruct",
		ContextTokens: 128000,
		InputPerK:     0.0001,
		OutputPerK:    0.0001,
	},
	"mistralai/mistral-7b-instruct": {
		Name:          "mistralai/mistral-7b-instruct",
		ContextTokens: 32768,
		InputPerK:     0.00006,
		OutputPerK:    0.00006,
	},
	"meta-llama/llama-3-8b-instruct": {
		Name:          "meta-llama/llama-3-8b-instruct",
		ContextTokens: 8192,
		InputPerK:     0.00003,
		OutputPerK:    0.00006,
	},
	"openai/gpt-4o-mini": {
		Name:          "openai/gpt-4o-mini",
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	in := (float64(promptTokens) / 1000.0) * mi.InputPerK
	out := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return in + out, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "phi3:mini": {"Name":"phi3:mini","ContextTokens":4096} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns a shallow copy of the current model catalog.
func Catalog() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		out[k] = v
	}
	return out
}
