package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabsight/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(w, "default_provider: %s\n", c.DefaultProvider)
		fmt.Fprintf(w, "default_model: %s\n", c.DefaultModel)
		if len(c.PreferredModels) > 0 {
			fmt.Fprintf(w, "preferred_models: %s\n", strings.Join(c.PreferredModels, ","))
		}
		fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(w, "batch_size: %d\n", c.BatchSize)
		fmt.Fprintf(w, "concurrency: %d\n", c.Concurrency)
		fmt.Fprintf(w, "batch_timeout_sec: %d\n", c.BatchTimeoutSec)
		fmt.Fprintf(w, "output_dir_name: %s\n", c.OutputDirName)
		fmt.Fprintf(w, "insights_limit: %d\n", c.InsightsLimit)
		if c.HistoryDB != "" {
			fmt.Fprintf(w, "history_db: %s\n", c.HistoryDB)
		}
		if c.ModelsCatalogPath != "" {
			fmt.Fprintf(w, "models_catalog_path: %s\n", c.ModelsCatalogPath)
		}
		fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
		fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
