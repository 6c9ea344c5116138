package sandbox

import (
	"context"
	"errors"
	"time"
)

// ErrSpawn reports that the interpreter process could not be started at
// all (missing binary, permission denied). It is a service-side failure,
// distinct from a run in which the program itself exited nonzero.
var ErrSpawn = errors.New("interpreter could not be started")

// Result is the outcome of one sandboxed execution. It is immutable once
// the child has terminated and both output streams are drained.
type Result struct {
	// ExitCode is nil when the child was force-killed at the deadline
	// and never reported an exit status of its own.
	ExitCode *int
	Stdout   string
	Stderr   string
	Killed   bool
	Duration time.Duration
}

// Sink receives output chunks as the child produces them, before the
// process has exited. Used for live streaming over WebSocket.
type Sink interface {
	Stdout(p []byte)
	Stderr(p []byte)
}

// Engine executes untrusted source text in an isolated child process.
type Engine interface {
	Run(ctx context.Context, code string) (*Result, error)

	// RunStreaming is Run with output chunks forwarded to sink as they
	// arrive. sink may be nil.
	RunStreaming(ctx context.Context, code string, sink Sink) (*Result, error)
}
