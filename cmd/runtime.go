package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/tabsight/internal/config"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// buildRuntime resolves the provider (flag > config > ollama) and constructs
// its client with the configured HTTP and retry knobs.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Backend, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.TrimSpace(opts.ProviderFlag)
	if providerName == "" && cfg != nil {
		providerName = cfg.DefaultProvider
	}
	if providerName == "" {
		providerName = ai.ProviderOllama
	}
	providerName, err := cfgpkg.NormalizeProvider(providerName)
	if err != nil {
		return nil, "", err
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
		BaseURL:     os.Getenv("TABSIGHT_OPENROUTER_BASE_URL"),
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
		if v := os.Getenv("TABSIGHT_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (registered: %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return client, providerName, nil
}

// providerUsage lists the registered providers for flag help.
func providerUsage() string {
	return "model provider: " + strings.Join(ai.Providers(), " | ")
}

// preferredModels returns the configured preference list, falling back to the
// provider's built-in one.
func preferredModels(cfg *cfgpkg.Global, provider string) []string {
	if cfg != nil && len(cfg.PreferredModels) > 0 && provider == ai.ProviderOllama {
		return cfg.PreferredModels
	}
	return ai.PreferredModels(provider)
}

// resolveModel picks the model for a run: --model, then default_model, then
// whatever SelectModel finds on the runtime.
func resolveModel(ctx context.Context, backend ai.Backend, cfg *cfgpkg.Global, provider, explicit string) (string, bool, error) {
	if explicit != "" {
		return explicit, false, nil
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel, false, nil
	}
	m, err := ai.SelectModel(ctx, backend, preferredModels(cfg, provider))
	if err != nil {
		return "", false, explainRuntimeError(err, provider, "")
	}
	return m, true, nil
}

// explainRuntimeError adds user-facing hints for common provider failures.
func explainRuntimeError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set TABSIGHT_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.tabsight/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama && model != "" {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found. Verify the model name with 'tabsight models list': %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	var mse *ai.ModelSelectionError
	if errors.As(err, &mse) && provider == ai.ProviderOllama {
		return fmt.Errorf("%w. Pull a model first, e.g. 'ollama pull phi3:mini'", err)
	}
	return err
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s (use ',' | ';' | 'tab' | 'pipe')", s)
}
