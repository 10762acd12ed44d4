package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind is the inferred data type of a column. Names follow the dtype labels
// most analysts expect to see in a profile report.
type Kind string

const (
	KindInt    Kind = "int64"
	KindFloat  Kind = "float64"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
)

// Numeric reports whether values of this kind take part in descriptive statistics.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Column is a named, typed sequence of cells. Values keeps the original cell
// text; Missing marks cells that count as absent.
type Column struct {
	Name    string
	Kind    Kind
	Values  []string
	Missing []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.Values) }

// MissingCount returns how many cells are missing.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Float returns the numeric value of row i. ok is false for missing cells.
func (c *Column) Float(i int) (v float64, ok bool, err error) {
	if c.Missing[i] {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Values[i]), 64)
	if err != nil {
		return 0, false, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
	}
	return f, true, nil
}

// Table is an ordered collection of equally long columns.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
	offset  int // global index of row 0 for views returned by Slice
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Header returns the column names in order.
func (t *Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Row returns the raw cell text of row i; missing cells are empty strings.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		if !c.Missing[i] {
			out[j] = c.Values[i]
		}
	}
	return out
}

// Slice returns a view of rows [lo,hi) that shares cell storage with t.
// Bounds are clamped. The view must not be mutated.
func (t *Table) Slice(lo, hi int) *Table {
	if lo < 0 {
		lo = 0
	}
	if hi > t.rows {
		hi = t.rows
	}
	if lo > hi {
		lo = hi
	}
	v := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns)), rows: hi - lo, offset: t.offset + lo}
	for j, c := range t.Columns {
		v.Columns[j] = &Column{Name: c.Name, Kind: c.Kind, Values: c.Values[lo:hi:hi], Missing: c.Missing[lo:hi:hi]}
	}
	return v
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddColumn appends a text column, or replaces the values of an existing
// column of that name in place. The value count must match the row count.
// Every cell is kept as given: the text is never read as an NA marker.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != t.rows {
		return fmt.Errorf("add column %q: got %d values for %d rows", name, len(values), t.rows)
	}
	col := &Column{Name: name, Kind: KindObject, Values: append([]string(nil), values...), Missing: make([]bool, len(values))}
	for i, c := range t.Columns {
		if c.Name == name {
			t.Columns[i] = col
			return nil
		}
	}
	t.Columns = append(t.Columns, col)
	return nil
}

// FromRecords builds a Table from a header and data rows, inferring each
// column's kind. Every row must have exactly len(header) fields.
func FromRecords(header []string, records [][]string) (*Table, error) {
	t := &Table{rows: len(records)}
	cols := make([]*Column, len(header))
	for j, h := range header {
		cols[j] = &Column{
			Name:    strings.TrimSpace(h),
			Values:  make([]string, len(records)),
			Missing: make([]bool, len(records)),
		}
		if cols[j].Name == "" {
			cols[j].Name = fmt.Sprintf("Unnamed: %d", j)
		}
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+1, len(header), len(rec))
		}
		for j, v := range rec {
			cols[j].Values[i] = v
			cols[j].Missing[i] = isMissing(v)
		}
	}
	for _, c := range cols {
		c.Kind = inferKind(c)
	}
	t.Columns = cols
	return t, nil
}

// WriteCSV writes the header and every row. Missing cells are written empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.rows; i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// naMarkers are the cell spellings treated as missing, matching the defaults
// of common dataframe readers.
var naMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(v string) bool {
	_, ok := naMarkers[strings.TrimSpace(v)]
	return ok
}

func inferKind(c *Column) Kind {
	allInt, allFloat, allBool := true, true, true
	seen, missing := 0, 0
	for i, v := range c.Values {
		if c.Missing[i] {
			missing++
			continue
		}
		seen++
		s := strings.TrimSpace(v)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			switch strings.ToLower(s) {
			case "true", "false":
			default:
				allBool = false
			}
		}
	}
	switch {
	case seen == 0:
		return KindFloat
	case allInt && missing == 0:
		return KindInt
	case allInt || allFloat:
		return KindFloat
	case allBool && missing == 0:
		return KindBool
	default:
		return KindObject
	}
}
