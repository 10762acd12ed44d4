package output

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/tabsight/internal/table"
)

var fixed = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestInsightsDedupPreservesOrder(t *testing.T) {
	got := Insights([]string{"X", "X", "Y", "Z", "Z", "Analysis failed"}, 5)
	want := []string{"X", "Y", "Z", "Analysis failed"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Insights = %q, want %q", got, want)
	}
	if got := Insights([]string{"a", "b", "a", "c", "d", "e", "f"}, 5); strings.Join(got, "") != "abcde" {
		t.Fatalf("cap not applied: %q", got)
	}
	if got := Insights(nil, 5); len(got) != 0 {
		t.Fatalf("expected empty digest, got %q", got)
	}
}

func TestDigestFormat(t *testing.T) {
	got := Digest([]string{"X", "Y"})
	if got != "\nTOP INSIGHTS ACROSS ALL DATA:\n- X\n- Y" {
		t.Fatalf("Digest = %q", got)
	}
}

func TestPlanLayout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "Data.csv")
	b := Plan(in, "", fixed)
	wantDir := filepath.Join(filepath.Dir(in), "processed_results", "20240309_140507")
	if b.Dir != wantDir {
		t.Fatalf("Dir = %s, want %s", b.Dir, wantDir)
	}
	if filepath.Base(b.Stats) != "Data_statistics.txt" ||
		filepath.Base(b.Data) != "Data_processed.csv" ||
		filepath.Base(b.Insights) != "Data_insights.txt" {
		t.Fatalf("unexpected file names: %+v", b)
	}
	if _, err := os.Stat(b.Dir); !os.IsNotExist(err) {
		t.Fatalf("Plan must not create the directory")
	}
}

func TestPlanCollisionGetsSuffix(t *testing.T) {
	in := filepath.Join(t.TempDir(), "Data.csv")
	first := Plan(in, "out", fixed)
	if err := first.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := Plan(in, "out", fixed)
	if second.Dir == first.Dir {
		t.Fatal("second plan reused an existing directory")
	}
	if !strings.HasPrefix(filepath.Base(second.Dir), "20240309_140507_") || len(filepath.Base(second.Dir)) != len("20240309_140507_")+8 {
		t.Fatalf("unexpected suffix: %s", second.Dir)
	}
}

func TestCreateMovesToFreshDirWhenClaimed(t *testing.T) {
	in := filepath.Join(t.TempDir(), "Data.csv")
	// Both runs plan before either creates, as two runs in the same second would.
	first := Plan(in, "out", fixed)
	second := Plan(in, "out", fixed)
	if first.Dir != second.Dir {
		t.Fatalf("plans diverged early: %s vs %s", first.Dir, second.Dir)
	}
	if err := first.Create(); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if err := first.Write("FIRST", mustTable(t), nil); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	if err := second.Create(); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.Dir == first.Dir || !strings.HasPrefix(second.Dir, first.Dir+"_") {
		t.Fatalf("second run did not move: %s", second.Dir)
	}
	if filepath.Dir(second.Stats) != second.Dir || filepath.Dir(second.Data) != second.Dir || filepath.Dir(second.Insights) != second.Dir {
		t.Fatalf("file paths not moved with the directory: %+v", second)
	}
	if err := second.Write("SECOND", mustTable(t), nil); err != nil {
		t.Fatalf("Write second: %v", err)
	}
	got, err := os.ReadFile(first.Stats)
	if err != nil || string(got) != "FIRST" {
		t.Fatalf("first run overwritten: %q, %v", got, err)
	}
}

func mustTable(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.FromRecords([]string{"id"}, [][]string{{"1"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return tb
}

func TestWriteBundle(t *testing.T) {
	in := filepath.Join(t.TempDir(), "sales.csv")
	tb, err := table.FromRecords([]string{"id"}, [][]string{{"1"}, {"2"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	if err := tb.AddColumn("AI_Insights", []string{"X", "X"}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	b := Plan(in, "", fixed)
	if err := b.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := b.Write("REPORT", tb, Insights([]string{"X", "X"}, 5)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	read := func(p string) string {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		return string(data)
	}
	if read(b.Stats) != "REPORT" {
		t.Fatalf("stats = %q", read(b.Stats))
	}
	if read(b.Data) != "id,AI_Insights\n1,X\n2,X\n" {
		t.Fatalf("data = %q", read(b.Data))
	}
	if read(b.Insights) != "\nTOP INSIGHTS ACROSS ALL DATA:\n- X" {
		t.Fatalf("insights = %q", read(b.Insights))
	}
}

func TestCreateFailureIsWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "processed_results")
	if err := os.WriteFile(blocker, []byte("file, not dir"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := Plan(filepath.Join(dir, "Data.csv"), "", fixed)
	err := b.Create()
	var we *WriteError
	if !errors.As(err, &we) || we.Path != b.Dir {
		t.Fatalf("err = %v, want WriteError for %s", err, b.Dir)
	}
}
