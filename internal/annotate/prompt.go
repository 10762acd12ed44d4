package annotate

import (
	"fmt"
	"strings"
)

// Range is a half-open row interval [Lo,Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of rows covered.
func (r Range) Len() int { return r.Hi - r.Lo }

// Partition splits rows into contiguous ranges of size, the last possibly
// shorter. It yields ceil(rows/size) ranges and none for zero rows.
func Partition(rows, size int) ([]Range, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", size)
	}
	if rows < 0 {
		return nil, fmt.Errorf("row count must be >= 0, got %d", rows)
	}
	out := make([]Range, 0, (rows+size-1)/size)
	for lo := 0; lo < rows; lo += size {
		hi := lo + size
		if hi > rows {
			hi = rows
		}
		out = append(out, Range{Lo: lo, Hi: hi})
	}
	return out, nil
}

// BuildPrompt wraps a rendered batch with the analysis instructions.
func BuildPrompt(records int, block string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this batch of %d records and provide:\n", records)
	b.WriteString("- Key observations about patterns/outliers\n")
	b.WriteString("- Most interesting findings (limit to 3-5 points)\n")
	b.WriteString("- Any data quality issues noticed\n\n")
	b.WriteString("Data:\n")
	b.WriteString(block)
	return b.String()
}
