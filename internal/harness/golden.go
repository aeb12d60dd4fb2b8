package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/factlog/internal/ir"
)

// Snapshot returns the canonical JSON recorded in golden files: the
// scenario name, the final statements and the partition sizes after
// installation and every step. Epochs are left out so snapshots survive
// changes in how many recomputes a step triggers.
func Snapshot(name string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Trace))
	for i, st := range result.Trace {
		steps[i] = map[string]any{
			"action":  st.Action,
			"base":    st.Base,
			"derived": st.Derived,
		}
	}
	statements := result.Statements
	if statements == nil {
		statements = []ir.Fact{}
	}
	return ir.MarshalCanonical(map[string]any{
		"name":       name,
		"statements": statements,
		"steps":      steps,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// GoldenPath returns the golden file that belongs to a scenario file:
// golden/<basename>.golden next to it.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes the snapshot of result as the scenario's golden file.
func UpdateGolden(scenarioFile string, scenario *Scenario, result *Result) error {
	data, err := Snapshot(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether result matches the scenario's golden file.
// A missing golden file returns (false, os.ErrNotExist).
func CompareGolden(scenarioFile string, scenario *Scenario, result *Result) (bool, error) {
	golden, err := os.ReadFile(GoldenPath(scenarioFile))
	if err != nil {
		return false, err
	}
	current, err := Snapshot(scenario.Name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes.Equal(golden, current), nil
}
