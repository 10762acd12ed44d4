package ai

import (
	"context"
	"errors"
)

// PreferredModels returns the built-in preference order for a provider.
// Unknown providers fall back to the local list.
func PreferredModels(provider string) []string {
	switch provider {
	case ProviderOpenRouter:
		return []string{
			"microsoft/phi-3-mini-128k-instruct",
			"mistralai/mistral-7b-instruct",
			"meta-llama/llama-3-8b-instruct",
		}
	default:
		return []string{"phi3:mini", "mistral:latest", "llama3:8b"}
	}
}

// SelectModel asks the runtime which models it has and returns the first entry
// of preferred that is present, otherwise the first model listed.
func SelectModel(ctx context.Context, lister ModelLister, preferred []string) (string, error) {
	available, err := lister.ListModels(ctx)
	if err != nil {
		return "", &ModelSelectionError{Err: err}
	}
	if len(available) == 0 {
		return "", &ModelSelectionError{Err: errors.New("no models available")}
	}
	have := make(map[string]struct{}, len(available))
	for _, m := range available {
		have[m] = struct{}{}
	}
	for _, p := range preferred {
		if _, ok := have[p]; ok {
			return p, nil
		}
	}
	return available[0], nil
}
