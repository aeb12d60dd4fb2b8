package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the program to install. Relative paths are
	// resolved against the scenario file's directory.
	Program string `yaml:"program"`

	// MaxPasses bounds every recompute (0 means unlimited).
	MaxPasses int `yaml:"max_passes,omitempty"`

	// Steps mutate the store after the program is installed.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the settled store.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one mutation. Exactly one field must be set.
type Step struct {
	Assert     [][]any `yaml:"assert,omitempty"`
	Retract    [][]any `yaml:"retract,omitempty"`
	Unregister string  `yaml:"unregister,omitempty"`
}

// Action returns the step kind.
func (s Step) Action() string {
	switch {
	case s.Assert != nil:
		return StepAssert
	case s.Retract != nil:
		return StepRetract
	case s.Unregister != "":
		return StepUnregister
	default:
		return ""
	}
}

// Step kinds.
const (
	StepAssert     = "assert"
	StepRetract    = "retract"
	StepUnregister = "unregister"
)

// Assertion validates the settled store.
type Assertion struct {
	// Type is one of query, contains, absent, count.
	Type string `yaml:"type"`

	// Query is a pattern list (used by query). Mutually exclusive with Name.
	Query [][]any `yaml:"query,omitempty"`

	// Name is a query declared by the program (used by query).
	Name string `yaml:"name,omitempty"`

	// Results are the expected binding contexts (used by query).
	Results []map[string]any `yaml:"results,omitempty"`

	// Ordered makes the query comparison order-sensitive.
	Ordered bool `yaml:"ordered,omitempty"`

	// Fact is the triple to look for (used by contains and absent).
	Fact []any `yaml:"fact,omitempty"`

	// Partition is base, derived or all (the default).
	Partition string `yaml:"partition,omitempty"`

	// Count is the expected partition size (used by count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertQuery    = "query"
	AssertContains = "contains"
	AssertAbsent   = "absent"
	AssertCount    = "count"
)

// Partition names.
const (
	PartitionAll     = "all"
	PartitionBase    = "base"
	PartitionDerived = "derived"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid scenario: empty file")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Assert != nil {
			set++
		}
		if step.Retract != nil {
			set++
		}
		if step.Unregister != "" {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of assert, retract, unregister is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Partition {
	case "", PartitionAll, PartitionBase, PartitionDerived:
	default:
		return fmt.Errorf("assertions[%d]: unknown partition %q", index, a.Partition)
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertQuery:
		if (len(a.Query) == 0) == (a.Name == "") {
			return fmt.Errorf("assertions[%d]: exactly one of query or name is required for query", index)
		}
	case AssertContains, AssertAbsent:
		if len(a.Fact) == 0 {
			return fmt.Errorf("assertions[%d]: fact is required for %s", index, a.Type)
		}
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// FindScenarios lists the .yaml and .yml files directly inside dir, sorted
// by name. A non-empty filter is a glob matched against the file name
// without its extension. Subdirectories (program files, golden files) are
// not searched.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(entry.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
