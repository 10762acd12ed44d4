package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabsight/internal/analysis"
	"github.com/KaramelBytes/tabsight/internal/table"
	"github.com/KaramelBytes/tabsight/internal/utils"
)

var (
	profileOutput    string
	profileDelimiter string
	profileSheet     string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Print the statistics report for a table without calling a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(profileDelimiter)
		if err != nil {
			return err
		}
		t, err := table.Load(args[0], table.Options{Delimiter: delim, Sheet: profileSheet})
		if err != nil {
			return err
		}
		rep, err := analysis.Profile(t)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		if profileOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), rep.Text())
			return nil
		}
		if err := utils.SafeWriteFile(profileOutput, []byte(rep.Text())); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written to %s\n", profileOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profileOutput, "output", "o", "", "write the report to this file instead of stdout")
	profileCmd.Flags().StringVar(&profileDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (default by extension)")
	profileCmd.Flags().StringVar(&profileSheet, "sheet", "", "sheet name for .xlsx input (default first sheet)")
}
