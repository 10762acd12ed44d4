package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabsight/internal/ai"
	"github.com/KaramelBytes/tabsight/internal/analysis"
	"github.com/KaramelBytes/tabsight/internal/annotate"
	cfgpkg "github.com/KaramelBytes/tabsight/internal/config"
	"github.com/KaramelBytes/tabsight/internal/history"
	"github.com/KaramelBytes/tabsight/internal/output"
	"github.com/KaramelBytes/tabsight/internal/table"
)

const (
	defaultInput  = "Data.csv"
	largeInputRow = 10000
)

var (
	runModel        string
	runProvider     string
	runBatchSize    int
	runConcurrency  int
	runTemp         float64
	runDelimiter    string
	runSheet        string
	runBatchTimeout int
	runMetricsFile  string
	runQuiet        bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Profile a table, annotate it in batches and write the result bundle",
	Long: `Loads the input (default Data.csv in the current directory), writes a
statistics report, sends fixed-size row batches to the model and stores the
annotated table plus an insights digest under <input-dir>/processed_results/<timestamp>/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := defaultInput
		if len(args) == 1 {
			input = args[0]
		}
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runPipeline(ctx, cmd, c, input)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.StringVarP(&runModel, "model", "m", "", "model to use (skips auto selection)")
	f.StringVar(&runProvider, "provider", "", providerUsage())
	f.IntVar(&runBatchSize, "batch-size", 0, "rows per model call (default from config)")
	f.IntVar(&runConcurrency, "concurrency", 0, "max in-flight batch calls (default from config)")
	f.Float64Var(&runTemp, "temp", -1, "sampling temperature (default from config)")
	f.StringVar(&runDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (default by extension)")
	f.StringVar(&runSheet, "sheet", "", "sheet name for .xlsx input (default first sheet)")
	f.IntVar(&runBatchTimeout, "batch-timeout", 0, "per-batch timeout in seconds (default from config)")
	f.StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus text-format metrics to this file after the run")
	f.BoolVarP(&runQuiet, "quiet", "q", false, "suppress per-batch progress lines")
}

func runPipeline(ctx context.Context, cmd *cobra.Command, c *cfgpkg.Global, input string) error {
	out := cmd.OutOrStdout()
	log := newLogger(c).Named("run")
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(input); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "⚠ File not found. Please ensure '%s' is in the current directory.\n", filepath.Base(input))
		return nil
	}

	delim, err := parseDelimiter(runDelimiter)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "→ Loading and analyzing data...")
	t, err := table.Load(input, table.Options{Delimiter: delim, Sheet: runSheet})
	if err != nil {
		if table.IsKind(err, table.Empty) {
			return fmt.Errorf("empty file detected: %w", err)
		}
		return err
	}
	log.Info("table loaded", zap.String("input", input), zap.Int("rows", t.Rows()), zap.Int("columns", len(t.Header())))

	backend, provider, err := buildRuntime(c, runtimeOptions{ProviderFlag: runProvider})
	if err != nil {
		return err
	}
	model, auto, err := resolveModel(ctx, backend, c, provider, runModel)
	if err != nil {
		return err
	}
	if auto {
		fmt.Fprintf(out, "✓ Auto-selected available model: %s\n", model)
	}

	started := time.Now()
	bundle := output.Plan(input, c.OutputDirName, started)
	if err := bundle.Create(); err != nil {
		return err
	}
	report, err := analysis.Profile(t)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	opt := annotateOptions(c, model, log)
	if !runQuiet {
		opt.Progress = out
	}
	reg := prometheus.NewRegistry()
	opt.Metrics = annotate.NewMetrics(reg)

	fmt.Fprintln(out, "→ Generating insights with the model...")
	res, err := annotate.New(backend, opt).Annotate(ctx, t)
	if err != nil {
		return explainRuntimeError(err, provider, model)
	}
	if res.Failed == len(res.Batches) && len(res.Batches) > 0 {
		// Nothing succeeded; show the first cause.
		fmt.Fprintf(out, "⚠ All %d batches failed: %v\n", res.Failed, explainRuntimeError(res.Batches[0].Err, provider, model))
	}

	if err := t.AddColumn(annotate.ColumnName, res.Column); err != nil {
		return err
	}
	if err := bundle.Write(report.Text(), t, output.Insights(res.Column, c.InsightsLimit)); err != nil {
		return err
	}

	if runMetricsFile != "" {
		if err := prometheus.WriteToTextfile(runMetricsFile, reg); err != nil {
			fmt.Fprintf(out, "⚠ Warning: metrics not written: %v\n", err)
		}
	}
	recordRun(ctx, c, log, history.Run{
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Input:         input,
		Provider:      provider,
		Model:         model,
		Rows:          t.Rows(),
		Batches:       len(res.Batches),
		FailedBatches: res.Failed,
		OutputDir:     bundle.Dir,
	})

	printSummary(out, bundle, res, model, t.Rows())
	return nil
}

func annotateOptions(c *cfgpkg.Global, model string, log *zap.Logger) annotate.Options {
	opt := annotate.Options{
		Model:       model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		BatchSize:   c.BatchSize,
		Concurrency: c.Concurrency,
		Logger:      log,
	}
	if c.BatchTimeoutSec > 0 {
		opt.Timeout = time.Duration(c.BatchTimeoutSec) * time.Second
	}
	if runBatchSize > 0 {
		opt.BatchSize = runBatchSize
	}
	if runConcurrency > 0 {
		opt.Concurrency = runConcurrency
	}
	if runTemp >= 0 {
		opt.Temperature = runTemp
	}
	if runBatchTimeout > 0 {
		opt.Timeout = time.Duration(runBatchTimeout) * time.Second
	}
	return opt
}

func recordRun(ctx context.Context, c *cfgpkg.Global, log *zap.Logger, r history.Run) {
	if c.HistoryDB == "" {
		return
	}
	store, err := history.Open(c.HistoryDB)
	if err != nil {
		log.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()
	id, err := store.Record(ctx, r)
	if err != nil {
		log.Warn("history record failed", zap.Error(err))
		return
	}
	log.Debug("run recorded", zap.String("id", id), zap.String("db", store.Path()))
}

func printSummary(w io.Writer, b output.Bundle, res *annotate.Result, model string, rows int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "✓ Analysis complete")
	fmt.Fprintf(w, "  Data Description: %s\n", b.Stats)
	fmt.Fprintf(w, "  Key Insights:     %s\n", b.Insights)
	fmt.Fprintf(w, "  Processed Data:   %s\n", b.Data)
	if res.Failed > 0 {
		fmt.Fprintf(w, "  Failed batches:   %d/%d\n", res.Failed, len(res.Batches))
	}
	u := res.Usage()
	if u.TotalTokens > 0 {
		if cost, ok := ai.EstimateCostUSD(model, u.PromptTokens, u.CompletionTokens); ok && cost > 0 {
			fmt.Fprintf(w, "  Tokens: %d (est. $%.4f)\n", u.TotalTokens, cost)
		} else {
			fmt.Fprintf(w, "  Tokens: %d\n", u.TotalTokens)
		}
	}
	if rows > largeInputRow {
		fmt.Fprintln(w, "\nTip: For large files (>10k rows), consider analyzing samples first")
	}
}
