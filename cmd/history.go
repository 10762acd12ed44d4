package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabsight/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs (requires history_db in config)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if c.HistoryDB == "" {
			fmt.Fprintln(w, "Run history is disabled. Enable it with: tabsight config set history_db ~/.tabsight/history.db")
			return nil
		}
		store, err := history.Open(c.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "(no runs)")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tMODEL\tROWS\tBATCHES\tFAILED\tDURATION\tOUTPUT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Model, r.Rows, r.Batches, r.FailedBatches,
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second), r.OutputDir)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max runs to show (0 = all)")
}
