package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Runner spawns the external interpreter against a workspace file and
// enforces the wall-clock time budget by forced termination. Isolation
// of the program itself is the child's job: the runner passes the
// restriction list and trusts the interpreter to honor it.
type Runner struct {
	Bin       string        // interpreter binary
	Policy    Policy        // capability restriction list
	Timeout   time.Duration // wall-clock budget per execution
	MaxOutput int           // per-stream capture cap in bytes
	Workspace *Workspace
}

var _ Engine = (*Runner)(nil)

// drainGrace bounds how long the drain goroutines can stay blocked
// after the deadline fires. A killed child may have handed its pipe
// ends to a grandchild that outlives it; once the grace elapses the
// parent ends are forcibly closed and the drains return.
const drainGrace = time.Second

// NewRunner creates a Runner with the given workspace and policy.
func NewRunner(bin string, policy Policy, ws *Workspace, timeout time.Duration, maxOutput int) *Runner {
	if maxOutput <= 0 {
		maxOutput = 64 * 1024
	}
	return &Runner{
		Bin:       bin,
		Policy:    policy,
		Timeout:   timeout,
		MaxOutput: maxOutput,
		Workspace: ws,
	}
}

func (r *Runner) Run(ctx context.Context, code string) (*Result, error) {
	return r.RunStreaming(ctx, code, nil)
}

func (r *Runner) RunStreaming(ctx context.Context, code string, sink Sink) (*Result, error) {
	path, err := r.Workspace.Materialize(code)
	if err != nil {
		return nil, err
	}
	// exec returns only after the child has fully terminated, so the
	// file is never removed while the child might still be reading it.
	defer r.Workspace.Release(path)

	return r.exec(ctx, path, sink)
}

func (r *Runner) exec(ctx context.Context, path string, sink Sink) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Bin, path, r.Policy.Flag())
	cmd.WaitDelay = drainGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// Drain both streams as data arrives so a chatty child can never
	// deadlock on a full pipe buffer. After a kill the pipes close and
	// the drain goroutines finish on their own.
	outBuf := &cappedBuffer{max: r.MaxOutput}
	errBuf := &cappedBuffer{max: r.MaxOutput}

	var emitOut, emitErr func([]byte)
	if sink != nil {
		emitOut, emitErr = sink.Stdout, sink.Stderr
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdout, outBuf, emitOut)
	go drain(&wg, stderr, errBuf, emitErr)
	wg.Wait()

	waitErr := cmd.Wait()

	res := &Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		// Context expiry or cancellation means we killed the child; it
		// reports no exit status of its own.
		if ctx.Err() != nil {
			res.Killed = true
			return res, nil
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			res.ExitCode = &code
			return res, nil
		}
		return nil, fmt.Errorf("waiting for interpreter: %w", waitErr)
	}

	code := 0
	res.ExitCode = &code
	return res, nil
}

// drain copies rd into buf chunk by chunk, forwarding each chunk to
// emit when set. It returns when the pipe closes.
func drain(wg *sync.WaitGroup, rd io.Reader, buf *cappedBuffer, emit func([]byte)) {
	defer wg.Done()
	b := make([]byte, 4096)
	for {
		n, err := rd.Read(b)
		if n > 0 {
			buf.Write(b[:n])
			if emit != nil {
				chunk := make([]byte, n)
				copy(chunk, b[:n])
				emit(chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

// cappedBuffer accumulates up to max bytes and discards the rest.
type cappedBuffer struct {
	buf strings.Builder
	max int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.buf.Len() < c.max {
		remaining := c.max - c.buf.Len()
		if len(p) > remaining {
			p = p[:remaining]
		}
		c.buf.Write(p)
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return c.buf.String() }
