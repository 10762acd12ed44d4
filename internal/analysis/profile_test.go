package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabsight/internal/table"
)

func mustTable(t *testing.T, header []string, rows [][]string) *table.Table {
	t.Helper()
	tb, err := table.FromRecords(header, rows)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return tb
}

func TestProfileSectionsInOrder(t *testing.T) {
	tb := mustTable(t, []string{"id", "score", "city"}, [][]string{
		{"1", "10", "Paris"},
		{"2", "", "Lyon"},
		{"3", "30", "Paris"},
		{"4", "40", ""},
	})
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	text := rep.Text()
	order := []string{
		"DATA DESCRIPTION REPORT",
		"Shape: 4 rows x 3 columns",
		"Data Types:",
		"Missing Values:",
		"Numeric Columns Statistics:",
		"Categorical Columns Statistics:",
		"city (Top 2 values):",
	}
	pos := -1
	for _, s := range order {
		i := strings.Index(text, s)
		if i < 0 {
			t.Fatalf("missing %q in report:\n%s", s, text)
		}
		if i < pos {
			t.Fatalf("%q out of order in report:\n%s", s, text)
		}
		pos = i
	}
	if strings.Contains(text, "No missing values detected") {
		t.Fatal("unexpected no-missing line when values are missing")
	}
	if !strings.Contains(text, "Paris  2") {
		t.Fatalf("expected Paris count line:\n%s", text)
	}
}

func TestProfileDescribeStats(t *testing.T) {
	tb := mustTable(t, []string{"x"}, [][]string{{"1"}, {"2"}, {"3"}, {"4"}})
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(rep.Numeric) != 1 {
		t.Fatalf("numeric summaries = %d, want 1", len(rep.Numeric))
	}
	s := rep.Numeric[0]
	approx := func(name string, got, want float64) {
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if s.Count != 4 {
		t.Fatalf("count = %d", s.Count)
	}
	approx("mean", s.Mean, 2.5)
	approx("std", s.Std, math.Sqrt(5.0/3.0))
	approx("min", s.Min, 1)
	approx("q25", s.Q25, 1.75)
	approx("q50", s.Q50, 2.5)
	approx("q75", s.Q75, 3.25)
	approx("max", s.Max, 4)
	if !strings.Contains(rep.Text(), "mean   2.500000") {
		t.Fatalf("expected formatted mean:\n%s", rep.Text())
	}
}

func TestProfileNoNumericNoMissing(t *testing.T) {
	tb := mustTable(t, []string{"fruit"}, [][]string{{"apple"}, {"pear"}, {"apple"}})
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	text := rep.Text()
	if strings.Contains(text, "Numeric Columns Statistics") {
		t.Fatalf("numeric section should be omitted:\n%s", text)
	}
	if strings.Count(text, "No missing values detected") != 1 || strings.Contains(text, "Missing Values:") {
		t.Fatalf("expected exactly the no-missing line:\n%s", text)
	}
}

func TestProfileNoCategorical(t *testing.T) {
	tb := mustTable(t, []string{"a", "flag"}, [][]string{{"1", "true"}, {"2", "false"}})
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if strings.Contains(rep.Text(), "Categorical Columns Statistics") {
		t.Fatalf("categorical section should be omitted:\n%s", rep.Text())
	}
}

func TestTopValuesCappedAndStable(t *testing.T) {
	rows := [][]string{{"b"}, {"a"}, {"c"}, {"d"}, {"e"}, {"f"}, {"a"}, {"b"}}
	tb := mustTable(t, []string{"k"}, rows)
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	top := rep.Categorical[0].Top
	if len(top) != TopValuesLimit {
		t.Fatalf("top len = %d, want %d", len(top), TopValuesLimit)
	}
	want := []string{"b", "a", "c", "d", "e"}
	for i, w := range want {
		if top[i].Value != w {
			t.Fatalf("top[%d] = %q, want %q (all: %+v)", i, top[i].Value, w, top)
		}
	}
}

func TestProfileIsDeterministic(t *testing.T) {
	tb := mustTable(t, []string{"a", "b", "c"}, [][]string{{"1", "x", "2.5"}, {"2", "y", ""}, {"3", "x", "1"}})
	r1, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	r2, _ := Profile(tb)
	if r1.Text() != r2.Text() {
		t.Fatal("profile text differs between runs")
	}
}

func TestProfileAllMissingNumericColumn(t *testing.T) {
	tb := mustTable(t, []string{"empty", "n"}, [][]string{{"", "1"}, {"", "2"}})
	rep, err := Profile(tb)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !strings.Contains(rep.Text(), "NaN") {
		t.Fatalf("expected NaN stats for all-missing column:\n%s", rep.Text())
	}
}

func TestProfileSurfacesCorruptNumericCell(t *testing.T) {
	tb := mustTable(t, []string{"n"}, [][]string{{"1"}, {"2"}})
	tb.Columns[0].Values[1] = "two"
	if _, err := Profile(tb); err == nil {
		t.Fatal("expected error for unparsable numeric cell")
	}
}
