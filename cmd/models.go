package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/tabsight/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect available models and the context/pricing catalog",
	Example: `  tabsight models list
  tabsight models list --provider openrouter
  tabsight models show
  tabsight models sync --file ./models.json`,
}

var modelsProvider string

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models offered by the runtime and mark the auto-selected one",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		backend, provider, err := buildRuntime(c, runtimeOptions{ProviderFlag: modelsProvider})
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		names, err := backend.ListModels(ctx)
		if err != nil {
			return explainRuntimeError(err, provider, "")
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(w, "(no models)")
			return nil
		}
		chosen, _ := ai.SelectModel(ctx, staticLister(names), preferredModels(c, provider))
		for _, n := range names {
			mark := " "
			if n == chosen {
				mark = "*"
			}
			if mi, ok := ai.LookupModel(n); ok && mi.ContextTokens > 0 {
				fmt.Fprintf(w, "%s %s (%d ctx)\n", mark, n, mi.ContextTokens)
				continue
			}
			fmt.Fprintf(w, "%s %s\n", mark, n)
		}
		return nil
	},
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		keys := make([]string, 0, len(cat))
		for k := range cat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		m := make(map[string]ai.ModelInfo, len(keys))
		for _, k := range keys {
			m[k] = cat[k]
		}
		return enc.Encode(m)
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Validate a JSON catalog file and merge it on every start",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		abs, err := filepath.Abs(syncPath)
		if err != nil {
			return err
		}
		m, err := ai.LoadCatalogFromJSON(abs)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		ai.MergeCatalog(m)
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		c.ModelsCatalogPath = abs
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Merged %d catalog entries; models_catalog_path set to %s\n", len(m), abs)
		return nil
	},
}

// staticLister replays an already fetched model list.
type staticLister []string

func (s staticLister) ListModels(context.Context) ([]string, error) { return s, nil }

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)

	modelsListCmd.Flags().StringVar(&modelsProvider, "provider", "", providerUsage())
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
}
