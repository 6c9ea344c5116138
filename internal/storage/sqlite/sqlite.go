package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cruciblelabs/crucible/internal/storage"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for
// testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *storage.Record) error {
	var exitCode any
	if rec.ExitCode != nil {
		exitCode = *rec.ExitCode
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, started_at, duration_ms, outcome, exit_code, stdout_bytes, stderr_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.DurationMS,
		rec.Outcome, exitCode, rec.StdoutBytes, rec.StderrBytes,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, outcome, exit_code, stdout_bytes, stderr_bytes
		FROM executions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var recs []storage.Record
	for rows.Next() {
		var rec storage.Record
		var startedAt string
		var exitCode sql.NullInt64
		if err := rows.Scan(&rec.ID, &startedAt, &rec.DurationMS, &rec.Outcome,
			&exitCode, &rec.StdoutBytes, &rec.StderrBytes); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = t
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
