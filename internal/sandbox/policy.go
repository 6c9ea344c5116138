package sandbox

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is the capability restriction list: the set of interpreter
// built-ins disabled for every sandboxed run. It is configuration loaded
// once at startup; request data never reaches it.
type Policy struct {
	Name     string   `yaml:"name"`
	Disabled []string `yaml:"disabled"`
}

// DefaultPolicy disables every effectful built-in the interpreter
// exposes: input, environment access, and all filesystem operations.
func DefaultPolicy() Policy {
	return Policy{
		Name: "default",
		Disabled: []string{
			"input",
			"env",
			"args",
			"create",
			"create-folder",
			"open",
			"read",
			"read-folder",
			"write",
			"move",
			"delete",
			"delete-folder",
		},
	}
}

// LoadPolicy reads a restriction profile from a YAML file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy %s: %w", path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy %s: %w", path, err)
	}
	if len(p.Disabled) == 0 {
		return Policy{}, fmt.Errorf("policy %s disables nothing", path)
	}

	return p, nil
}

// Flag serializes the restriction list as the single argument the
// interpreter accepts. The child enforces the restrictions itself; the
// runner only passes the list.
func (p Policy) Flag() string {
	return "--disabled-builtins=" + strings.Join(p.Disabled, ",")
}
