package table

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RenderRows renders rows [lo,hi) as an aligned text block. The leftmost
// column carries the global row index so batch text stays traceable.
func (t *Table) RenderRows(lo, hi int) string {
	if lo < 0 {
		lo = 0
	}
	if hi > t.rows {
		hi = t.rows
	}
	if lo >= hi {
		return ""
	}
	ncol := len(t.Columns) + 1
	cells := make([][]string, 0, hi-lo+1)
	head := make([]string, ncol)
	for j, c := range t.Columns {
		head[j+1] = oneLine(c.Name)
	}
	cells = append(cells, head)
	for i := lo; i < hi; i++ {
		row := make([]string, ncol)
		row[0] = strconv.Itoa(t.offset + i)
		for j, c := range t.Columns {
			if c.Missing[i] {
				row[j+1] = "NaN"
			} else {
				row[j+1] = oneLine(c.Values[i])
			}
		}
		cells = append(cells, row)
	}

	widths := make([]int, ncol)
	for _, row := range cells {
		for j, v := range row {
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
	}

	var b strings.Builder
	for r, row := range cells {
		for j, v := range row {
			if j > 0 {
				b.WriteString("  ")
			}
			// Index values are left-aligned, data right-aligned.
			if j == 0 {
				fmt.Fprintf(&b, "%-*s", widths[j], v)
			} else {
				fmt.Fprintf(&b, "%*s", widths[j], v)
			}
		}
		if r < len(cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
