package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPolicyDisablesEveryEffectfulBuiltin(t *testing.T) {
	p := DefaultPolicy()

	for _, name := range []string{"input", "env", "create", "read", "write", "delete", "create-folder", "delete-folder"} {
		found := false
		for _, d := range p.Disabled {
			if d == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("default policy does not disable %q", name)
		}
	}
}

func TestPolicyFlagSerialization(t *testing.T) {
	p := Policy{Name: "test", Disabled: []string{"input", "env", "write"}}

	got := p.Flag()
	want := "--disabled-builtins=input,env,write"
	if got != want {
		t.Errorf("Flag() = %q, want %q", got, want)
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.yaml")
	content := "name: strict\ndisabled:\n  - input\n  - env\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.Name != "strict" {
		t.Errorf("name = %q, want %q", p.Name, "strict")
	}
	if len(p.Disabled) != 2 {
		t.Errorf("disabled = %v, want 2 entries", p.Disabled)
	}
}

func TestLoadPolicyRejectsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected an error for a policy that disables nothing")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing policy file")
	}
}

func TestLoadPolicyRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("disabled: {not a list"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestPolicyFlagIgnoresRequestData(t *testing.T) {
	// The flag is a pure function of configuration; two policies with
	// the same list always serialize identically.
	a := Policy{Disabled: []string{"input", "env"}}
	b := Policy{Disabled: []string{"input", "env"}}
	if a.Flag() != b.Flag() {
		t.Error("identical restriction lists must serialize identically")
	}
	if strings.Contains(a.Flag(), " ") {
		t.Error("flag must be a single argument with no spaces")
	}
}
