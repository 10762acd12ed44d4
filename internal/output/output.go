// Package output lays out and writes the per-run artifact directory.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tabsight/internal/table"
	"github.com/KaramelBytes/tabsight/internal/utils"
)

const (
	DefaultDirName  = "processed_results"
	TimestampLayout = "20060102_150405"
	DigestHeader    = "\nTOP INSIGHTS ACROSS ALL DATA:\n"
)

// WriteError reports a failure to create the output directory or one of
// its files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Bundle holds the paths of one run's artifacts.
type Bundle struct {
	Dir      string
	Stats    string
	Data     string
	Insights string

	base string
	stem string
}

// maxCreateAttempts bounds how many suffixed names Create tries.
const maxCreateAttempts = 10

// Plan computes the bundle for inputPath under
// <input-dir>/<baseDirName>/<timestamp>. When that directory already exists a
// short random suffix is appended. Nothing is created on disk.
func Plan(inputPath, baseDirName string, now time.Time) Bundle {
	if baseDirName == "" {
		baseDirName = DefaultDirName
	}
	name := filepath.Base(inputPath)
	b := Bundle{
		base: filepath.Join(filepath.Dir(inputPath), baseDirName, now.Format(TimestampLayout)),
		stem: strings.TrimSuffix(name, filepath.Ext(name)),
	}
	b.setDir(b.base)
	for exists(b.Dir) {
		b.setDir(b.suffixed())
	}
	return b
}

func (b *Bundle) setDir(dir string) {
	b.Dir = dir
	b.Stats = filepath.Join(dir, b.stem+"_statistics.txt")
	b.Data = filepath.Join(dir, b.stem+"_processed.csv")
	b.Insights = filepath.Join(dir, b.stem+"_insights.txt")
}

func (b *Bundle) suffixed() string {
	return b.base + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Create makes the bundle directory. The parents may already exist but the
// directory itself must be new: if another run claimed it first, Create moves
// the bundle to a fresh suffixed name, so a previous run is never overwritten.
func (b *Bundle) Create() error {
	if err := utils.EnsureDir(filepath.Dir(b.Dir)); err != nil {
		return &WriteError{Path: b.Dir, Err: err}
	}
	for attempt := 1; ; attempt++ {
		err := os.Mkdir(b.Dir, 0o755)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrExist) || attempt == maxCreateAttempts {
			return &WriteError{Path: b.Dir, Err: err}
		}
		b.setDir(b.suffixed())
	}
}

// Write stores the report text, the annotated table and the insights digest.
// Each file is replaced atomically.
func (b *Bundle) Write(report string, t *table.Table, insights []string) error {
	if err := utils.SafeWriteFile(b.Stats, []byte(report)); err != nil {
		return &WriteError{Path: b.Stats, Err: err}
	}
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return &WriteError{Path: b.Data, Err: err}
	}
	if err := utils.SafeWriteFile(b.Data, buf.Bytes()); err != nil {
		return &WriteError{Path: b.Data, Err: err}
	}
	if err := utils.SafeWriteFile(b.Insights, []byte(Digest(insights))); err != nil {
		return &WriteError{Path: b.Insights, Err: err}
	}
	return nil
}

// Insights returns up to n distinct values in first-seen order.
func Insights(values []string, n int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, n)
	for _, v := range values {
		if len(out) >= n {
			break
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Digest renders the insights file body.
func Digest(insights []string) string {
	lines := make([]string, len(insights))
	for i, s := range insights {
		lines[i] = "- " + s
	}
	return DigestHeader + strings.Join(lines, "\n")
}
