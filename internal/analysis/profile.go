package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabsight/internal/table"
)

// TopValuesLimit caps the frequency list printed per categorical column.
const TopValuesLimit = 5

// Report is a descriptive profile of a Table. It depends only on the table
// contents, so profiling the same table twice yields identical text.
type Report struct {
	Name        string
	Rows        int
	Cols        int
	Kinds       []KindCount
	Missing     []MissingCount
	Numeric     []NumericSummary
	Categorical []CategorySummary
}

type KindCount struct {
	Kind  table.Kind
	Count int
}

type MissingCount struct {
	Column string
	Count  int
}

// NumericSummary holds describe-style statistics for one numeric column.
type NumericSummary struct {
	Name  string
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

type CategorySummary struct {
	Name string
	Top  []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Profile computes the report for t. A numeric column holding a cell that does
// not parse is an error; it is never skipped.
func Profile(t *table.Table) (*Report, error) {
	rep := &Report{Name: t.Name, Rows: t.Rows(), Cols: len(t.Columns)}

	kinds := map[table.Kind]int{}
	for _, c := range t.Columns {
		kinds[c.Kind]++
		if m := c.MissingCount(); m > 0 {
			rep.Missing = append(rep.Missing, MissingCount{Column: c.Name, Count: m})
		}
		switch {
		case c.Kind.Numeric():
			s, err := describe(c)
			if err != nil {
				return nil, fmt.Errorf("profile: %w", err)
			}
			rep.Numeric = append(rep.Numeric, s)
		case c.Kind == table.KindObject:
			rep.Categorical = append(rep.Categorical, CategorySummary{Name: c.Name, Top: topValues(c, TopValuesLimit)})
		}
	}
	for k, n := range kinds {
		rep.Kinds = append(rep.Kinds, KindCount{Kind: k, Count: n})
	}
	sort.Slice(rep.Kinds, func(i, j int) bool {
		if rep.Kinds[i].Count == rep.Kinds[j].Count {
			return rep.Kinds[i].Kind < rep.Kinds[j].Kind
		}
		return rep.Kinds[i].Count > rep.Kinds[j].Count
	})
	return rep, nil
}

func describe(c *table.Column) (NumericSummary, error) {
	s := NumericSummary{Name: c.Name}
	vals := make([]float64, 0, c.Len())
	// Welford for mean/variance
	var mean, m2 float64
	for i := 0; i < c.Len(); i++ {
		x, ok, err := c.Float(i)
		if err != nil {
			return s, err
		}
		if !ok {
			continue
		}
		vals = append(vals, x)
		delta := x - mean
		mean += delta / float64(len(vals))
		m2 += delta * (x - mean)
	}
	s.Count = len(vals)
	if s.Count == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s, nil
	}
	s.Mean = mean
	s.Std = math.NaN()
	if s.Count > 1 {
		s.Std = math.Sqrt(m2 / float64(s.Count-1))
	}
	sort.Float64s(vals)
	s.Min = vals[0]
	s.Max = vals[len(vals)-1]
	s.Q25 = quantile(vals, 0.25)
	s.Q50 = quantile(vals, 0.5)
	s.Q75 = quantile(vals, 0.75)
	return s, nil
}

// topValues returns up to n most frequent non-missing values, ties broken by
// first appearance.
func topValues(c *table.Column, n int) []CategoryCount {
	counts := map[string]int{}
	first := map[string]int{}
	for i, v := range c.Values {
		if c.Missing[i] {
			continue
		}
		if _, ok := first[v]; !ok {
			first[v] = i
		}
		counts[v]++
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return first[tops[i].Value] < first[tops[j].Value]
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// Text renders the report as plain text with sections in a fixed order.
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString("DATA DESCRIPTION REPORT\n")
	fmt.Fprintf(&b, "\nShape: %d rows x %d columns\n", r.Rows, r.Cols)

	b.WriteString("\nData Types:\n")
	kindRows := make([][]string, 0, len(r.Kinds))
	for _, k := range r.Kinds {
		kindRows = append(kindRows, []string{string(k.Kind), fmt.Sprint(k.Count)})
	}
	b.WriteString(grid(kindRows))
	b.WriteString("\n")

	if len(r.Missing) == 0 {
		b.WriteString("\nNo missing values detected\n")
	} else {
		b.WriteString("\nMissing Values:\n")
		rows := make([][]string, 0, len(r.Missing))
		for _, m := range r.Missing {
			rows = append(rows, []string{safeName(m.Column), fmt.Sprint(m.Count)})
		}
		b.WriteString(grid(rows))
		b.WriteString("\n")
	}

	if len(r.Numeric) > 0 {
		b.WriteString("\nNumeric Columns Statistics:\n")
		head := []string{""}
		for _, s := range r.Numeric {
			head = append(head, safeName(s.Name))
		}
		rows := [][]string{head}
		stat := func(label string, pick func(NumericSummary) float64) {
			row := []string{label}
			for _, s := range r.Numeric {
				row = append(row, formatFloat(pick(s)))
			}
			rows = append(rows, row)
		}
		stat("count", func(s NumericSummary) float64 { return float64(s.Count) })
		stat("mean", func(s NumericSummary) float64 { return s.Mean })
		stat("std", func(s NumericSummary) float64 { return s.Std })
		stat("min", func(s NumericSummary) float64 { return s.Min })
		stat("25%", func(s NumericSummary) float64 { return s.Q25 })
		stat("50%", func(s NumericSummary) float64 { return s.Q50 })
		stat("75%", func(s NumericSummary) float64 { return s.Q75 })
		stat("max", func(s NumericSummary) float64 { return s.Max })
		b.WriteString(grid(rows))
		b.WriteString("\n")
	}

	if len(r.Categorical) > 0 {
		b.WriteString("\nCategorical Columns Statistics:\n")
		for _, c := range r.Categorical {
			fmt.Fprintf(&b, "\n%s (Top %d values):\n", safeName(c.Name), len(c.Top))
			rows := make([][]string, 0, len(c.Top))
			for _, kv := range c.Top {
				rows = append(rows, []string{safeVal(kv.Value), fmt.Sprint(kv.Count)})
			}
			b.WriteString(grid(rows))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", f)
}

// grid left-aligns the first column and right-aligns the rest.
func grid(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for j, v := range row {
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if n := len([]rune(v)); n > widths[j] {
				widths[j] = n
			}
		}
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for j, v := range row {
			if j == 0 {
				fmt.Fprintf(&b, "%-*s", widths[j], v)
				continue
			}
			fmt.Fprintf(&b, "  %*s", widths[j], v)
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ") }

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
