// Package history keeps a ledger of completed runs in SQLite, or in
// PostgreSQL when given a postgres:// DSN.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     BIGINT NOT NULL, -- unix millis
	finished_at    BIGINT NOT NULL,
	input          TEXT NOT NULL,
	provider       TEXT NOT NULL,
	model          TEXT NOT NULL,
	row_count      INTEGER NOT NULL,
	batch_count    INTEGER NOT NULL,
	failed_batches INTEGER NOT NULL,
	output_dir     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded pipeline execution.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Input         string
	Provider      string
	Model         string
	Rows          int
	Batches       int
	FailedBatches int
	OutputDir     string
}

// Store wraps the ledger database.
type Store struct {
	db     *sql.DB
	path   string
	driver string
}

// Driver picks the database/sql driver for a history_db value.
func Driver(path string) string {
	if strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Open opens or creates the database at path and ensures the schema exists.
// path is a file path for SQLite or a DSN for PostgreSQL.
func Open(path string) (*Store, error) {
	driver := Driver(path)
	if driver == "sqlite" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	}
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if driver == "sqlite" {
		// database/sql pools connections; one writer avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path, driver: driver}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Path returns the database file path or DSN.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Record inserts r, assigning an ID when empty, and returns the stored ID.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO runs (id, started_at, finished_at, input, provider, model, row_count, batch_count, failed_batches, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Input, r.Provider, r.Model,
		r.Rows, r.Batches, r.FailedBatches, r.OutputDir)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return r.ID, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, finished_at, input, provider, model, row_count, batch_count, failed_batches, output_dir
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Input, &r.Provider, &r.Model,
			&r.Rows, &r.Batches, &r.FailedBatches, &r.OutputDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
