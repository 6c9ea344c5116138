package sandbox

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace materializes untrusted source text as uniquely named files
// under a single root directory for the duration of one execution.
type Workspace struct {
	root string
	ext  string
}

// NewWorkspace creates the root directory if needed.
func NewWorkspace(root, ext string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating workspace dir: %w", err)
	}
	return &Workspace{root: root, ext: ext}, nil
}

// Materialize writes code to a fresh uuid-named file and returns its
// path. Each execution owns a private file, so concurrent requests
// never race on the same path.
func (w *Workspace) Materialize(code string) (string, error) {
	path := filepath.Join(w.root, uuid.New().String()+w.ext)
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("writing workspace file: %w", err)
	}
	return path, nil
}

// Release removes the file. Failures are logged and swallowed: cleanup
// must never mask the primary execution result.
func (w *Workspace) Release(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("workspace: removing %s: %v", path, err)
	}
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }
