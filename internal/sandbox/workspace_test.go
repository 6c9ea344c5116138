package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceMaterializeAndRelease(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), ".qtm")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	path, err := ws.Materialize("some program text")
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading workspace file: %v", err)
	}
	if string(data) != "some program text" {
		t.Errorf("content = %q, want the exact submitted bytes", data)
	}
	if !strings.HasSuffix(path, ".qtm") {
		t.Errorf("path = %q, want the configured extension", path)
	}

	ws.Release(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Release: %v", err)
	}
}

func TestWorkspacePathsAreUnique(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), ".qtm")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		path, err := ws.Materialize("x")
		if err != nil {
			t.Fatalf("Materialize: %v", err)
		}
		if seen[path] {
			t.Fatalf("path %q issued twice", path)
		}
		seen[path] = true
	}
}

func TestWorkspaceReleaseMissingFileIsSwallowed(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), ".qtm")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	// Must not panic or propagate anything.
	ws.Release(filepath.Join(ws.Root(), "never-existed.qtm"))
}

func TestWorkspaceMaterializeFailurePropagates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	ws, err := NewWorkspace(root, ".qtm")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("removing workspace root: %v", err)
	}

	if _, err := ws.Materialize("text"); err == nil {
		t.Fatal("expected an error when the root directory is gone")
	}
}

func TestWorkspaceCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "scratch")
	if _, err := NewWorkspace(root, ".qtm"); err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace root not created: %v", err)
	}
}
