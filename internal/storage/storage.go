package storage

import (
	"context"
	"time"
)

// Outcome classifies how an execution ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"          // child exited on its own, any code
	OutcomeKilled     Outcome = "killed"      // force-terminated at the deadline
	OutcomeCancelled  Outcome = "cancelled"   // caller went away mid-run
	OutcomeSpawnError Outcome = "spawn_error" // child never started
)

// Record is the metadata kept for one execution. The submitted source
// text is deliberately absent: the service never persists code beyond
// the single execution.
type Record struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Outcome     Outcome   `json:"outcome"`
	ExitCode    *int      `json:"exit_code"`
	StdoutBytes int       `json:"stdout_bytes"`
	StderrBytes int       `json:"stderr_bytes"`
}

// Store is the persistence interface for execution history.
type Store interface {
	// Insert appends one execution record. The ID field must be set by
	// the caller.
	Insert(ctx context.Context, rec *Record) error

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases resources.
	Close() error
}

// NopStore backs deployments with history disabled.
type NopStore struct{}

func (NopStore) Insert(context.Context, *Record) error       { return nil }
func (NopStore) List(context.Context, int) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                { return nil }
