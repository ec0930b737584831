// Package testutil provides shared test helpers for imp Go tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"gopkg.in/yaml.v3"
)

// ScenariosDir is the path of the shared scenarios relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one end-to-end case loaded from a YAML file.
type Scenario struct {
	Name   string         `yaml:"name"`
	Cmd    string         `yaml:"cmd"` // "run" or "check"
	Source string         `yaml:"source"`
	Input  string         `yaml:"input,omitempty"`
	Meta   *ScenarioMeta  `yaml:"meta,omitempty"`
	Expect ExpectedResult `yaml:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode       int            `yaml:"exitCode"`
	Stdout         string         `yaml:"stdout"`
	StderrContains string         `yaml:"stderrContains,omitempty"`
	DiagCode       string         `yaml:"diagCode,omitempty"`
	Halted         bool           `yaml:"halted,omitempty"`
	Vars           map[string]any `yaml:"vars,omitempty"`
}

// LoadScenario reads a scenario file. A missing name defaults to the file's
// base name and a missing cmd to "run".
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.Cmd == "" {
		s.Cmd = "run"
	}
	return &s, nil
}

// ListScenarios returns the scenario files under root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Diff renders a unified diff of want and got, or "" when they are equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	return udiff.Unified("want", "got", want, got)
}
