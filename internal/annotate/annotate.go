// Package annotate sends fixed-size row batches to a chat model and maps each
// reply back onto every row of its batch.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tabsight/internal/ai"
	"github.com/KaramelBytes/tabsight/internal/table"
	"github.com/KaramelBytes/tabsight/internal/utils"
)

const (
	// FailureSentinel replaces the annotation of every row in a failed batch.
	FailureSentinel = "Analysis failed"
	// ColumnName is the header of the appended annotation column.
	ColumnName = "AI_Insights"

	DefaultBatchSize   = 5
	DefaultTemperature = 0.1
	errSnippetLen      = 100
)

// ErrEmptyResponse is a batch failure where the model returned no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Options configures an Annotator.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BatchSize   int
	// Concurrency caps in-flight batch calls; values below 2 run batches
	// sequentially in row order.
	Concurrency int
	// Timeout bounds each batch call; zero disables it.
	Timeout time.Duration

	Logger   *zap.Logger
	Metrics  *Metrics
	Progress io.Writer
}

// BatchOutcome is the per-batch result: either Text or Err is set.
type BatchOutcome struct {
	Index    int
	Lo, Hi   int
	Text     string
	Err      error
	Duration time.Duration
	Usage    ai.Usage
}

// Result holds the annotation column in row order plus per-batch details.
type Result struct {
	Column  []string
	Batches []BatchOutcome
	Failed  int
}

// Usage sums token usage across batches.
func (r *Result) Usage() ai.Usage {
	var u ai.Usage
	for _, b := range r.Batches {
		u.PromptTokens += b.Usage.PromptTokens
		u.CompletionTokens += b.Usage.CompletionTokens
		u.TotalTokens += b.Usage.TotalTokens
	}
	return u
}

// Annotator drives batch submission against a Runtime.
type Annotator struct {
	rt  ai.Runtime
	opt Options
	log *zap.Logger
	out io.Writer
	mu  sync.Mutex // serializes progress lines

	ctxWarn sync.Once
}

// New returns an Annotator; zero option values take the package defaults.
func New(rt ai.Runtime, opt Options) *Annotator {
	if opt.BatchSize == 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.Concurrency < 1 {
		opt.Concurrency = 1
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	out := opt.Progress
	if out == nil {
		out = io.Discard
	}
	return &Annotator{rt: rt, opt: opt, log: log.Named("annotate"), out: out}
}

// Annotate processes every batch of t. Individual batch failures are recorded
// as outcomes and never abort the run; only an invalid batch size or
// cancellation of ctx returns an error.
func (a *Annotator) Annotate(ctx context.Context, t *table.Table) (*Result, error) {
	ranges, err := Partition(t.Rows(), a.opt.BatchSize)
	if err != nil {
		return nil, err
	}
	a.printf("→ Processing %d rows in %d batches...\n", t.Rows(), len(ranges))

	outcomes := make([]BatchOutcome, len(ranges))
	if a.opt.Concurrency == 1 {
		for i, r := range ranges {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = a.run(ctx, t, i, len(ranges), r)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.opt.Concurrency)
		for i, r := range ranges {
			g.Go(func() error {
				outcomes[i] = a.run(ctx, t, i, len(ranges), r)
				return nil
			})
		}
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	res := &Result{Column: make([]string, t.Rows()), Batches: outcomes}
	for _, o := range outcomes {
		text := o.Text
		if o.Err != nil {
			res.Failed++
			text = FailureSentinel
		}
		for row := o.Lo; row < o.Hi; row++ {
			res.Column[row] = text
		}
	}
	a.log.Info("annotation finished",
		zap.String("model", a.opt.Model),
		zap.Int("rows", t.Rows()),
		zap.Int("batches", len(outcomes)),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (a *Annotator) run(ctx context.Context, t *table.Table, idx, total int, r Range) BatchOutcome {
	o := BatchOutcome{Index: idx, Lo: r.Lo, Hi: r.Hi}
	prompt := BuildPrompt(r.Len(), t.Slice(r.Lo, r.Hi).RenderRows(0, r.Len()))
	a.checkContext(idx, prompt)

	callCtx := ctx
	if a.opt.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opt.Timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := a.rt.Generate(callCtx, ai.GenerateRequest{
		Model:       a.opt.Model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   a.opt.MaxTokens,
		Temperature: a.opt.Temperature,
	})
	o.Duration = time.Since(start)
	if err == nil {
		o.Usage = resp.Usage
		o.Text = strings.TrimSpace(resp.Text())
		if o.Text == "" {
			err = ErrEmptyResponse
		}
	}
	o.Err = err
	a.opt.Metrics.observe(o)

	if err != nil {
		msg := snippet(err.Error(), errSnippetLen)
		a.log.Warn("batch failed",
			zap.Int("batch", idx+1),
			zap.Int("lo", r.Lo),
			zap.Int("hi", r.Hi),
			zap.Duration("elapsed", o.Duration),
			zap.String("error", msg))
		a.printf("⚠ Error in batch %d: %s...\n", idx+1, msg)
		return o
	}
	a.log.Debug("batch ok",
		zap.Int("batch", idx+1),
		zap.Duration("elapsed", o.Duration),
		zap.Int("completion_tokens", o.Usage.CompletionTokens))
	a.printf("✓ Processed batch %d/%d\n", idx+1, total)
	return o
}

// checkContext prints once per run when a prompt likely overflows the
// selected model's context window.
func (a *Annotator) checkContext(idx int, prompt string) {
	mi, ok := ai.LookupModel(a.opt.Model)
	if !ok || mi.ContextTokens <= 0 {
		return
	}
	est := utils.CountTokens(prompt)
	if est <= mi.ContextTokens {
		return
	}
	a.ctxWarn.Do(func() {
		a.printf("⚠ Batch %d prompt is ~%d tokens, above %s's %d-token context; consider a smaller --batch-size\n",
			idx+1, est, a.opt.Model, mi.ContextTokens)
	})
}

func (a *Annotator) printf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
