package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/factlog/internal/engine"
	"github.com/roach88/factlog/internal/ir"
	"github.com/roach88/factlog/internal/program"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string    // Assertion type for categorization
	Expected   string    // Human-readable expected outcome
	Actual     string    // Human-readable actual outcome
	Statements []ir.Fact // Settled statements for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nStatements:\n")
	for i, f := range e.Statements {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, f)
	}

	return buf.String()
}

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Store   *engine.Store
	Program *program.Program
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQuery:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("query requires a store")
			} else {
				err = assertQuery(actx, result.Statements, assertion)
			}
		case AssertContains:
			err = assertPresence(actx, result.Statements, assertion, true)
		case AssertAbsent:
			err = assertPresence(actx, result.Statements, assertion, false)
		case AssertCount:
			err = assertCount(actx, result.Statements, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errors
}

// assertQuery runs the query through QueryOnce and compares binding sets
// by canonical encoding.
func assertQuery(actx *AssertionContext, statements []ir.Fact, a Assertion) error {
	patterns, err := queryPatterns(actx.Program, a)
	if err != nil {
		return err
	}
	got, err := actx.Store.QueryOnce(actx.Ctx, patterns...)
	if err != nil {
		return fmt.Errorf("query %s: %w", ir.PatternsString(patterns), err)
	}

	want := make([]ir.Bindings, 0, len(a.Results))
	for i, raw := range a.Results {
		b, err := parseBindings(actx.Program, raw)
		if err != nil {
			return fmt.Errorf("results[%d]: %w", i, err)
		}
		want = append(want, b)
	}

	gotKeys, err := bindingKeys(got)
	if err != nil {
		return err
	}
	wantKeys, err := bindingKeys(want)
	if err != nil {
		return err
	}
	if !a.Ordered {
		slices.Sort(gotKeys)
		slices.Sort(wantKeys)
	}
	if slices.Equal(gotKeys, wantKeys) {
		return nil
	}
	return &AssertionError{
		Type:       AssertQuery,
		Expected:   fmt.Sprintf("%s -> [%s]", ir.PatternsString(patterns), strings.Join(wantKeys, ", ")),
		Actual:     fmt.Sprintf("[%s]", strings.Join(gotKeys, ", ")),
		Statements: statements,
	}
}

func queryPatterns(p *program.Program, a Assertion) ([]ir.Pattern, error) {
	if a.Name != "" {
		q, ok := p.Query(a.Name)
		if !ok {
			return nil, fmt.Errorf("program declares no query %q", a.Name)
		}
		return q.Find, nil
	}
	patterns := make([]ir.Pattern, 0, len(a.Query))
	for i, raw := range a.Query {
		pat, err := p.ParsePattern(raw)
		if err != nil {
			return nil, fmt.Errorf("query[%d]: %w", i, err)
		}
		patterns = append(patterns, pat)
	}
	return patterns, nil
}

func parseBindings(p *program.Program, raw map[string]any) (ir.Bindings, error) {
	m := make(map[string]ir.Value, len(raw))
	for name, v := range raw {
		val, err := p.ParseValue(v)
		if err != nil {
			return ir.Bindings{}, fmt.Errorf("%s: %w", name, err)
		}
		m[name] = val
	}
	return ir.BindingsOf(m), nil
}

func bindingKeys(bs []ir.Bindings) ([]string, error) {
	keys := make([]string, len(bs))
	for i, b := range bs {
		data, err := ir.MarshalCanonical(b)
		if err != nil {
			return nil, fmt.Errorf("encode bindings %s: %w", b, err)
		}
		keys[i] = string(data)
	}
	return keys, nil
}

func assertPresence(actx *AssertionContext, statements []ir.Fact, a Assertion, want bool) error {
	if actx == nil || actx.Program == nil {
		return fmt.Errorf("%s requires a program", a.Type)
	}
	f, err := actx.Program.ParseFact(a.Fact)
	if err != nil {
		return fmt.Errorf("fact: %w", err)
	}
	facts := partition(actx, statements, a.Partition)
	found := slices.ContainsFunc(facts, f.SameAs)
	if found == want {
		return nil
	}

	where := a.Partition
	if where == "" {
		where = PartitionAll
	}
	expected := fmt.Sprintf("%s in %s", f, where)
	actual := "not found"
	if !want {
		expected = fmt.Sprintf("%s not in %s", f, where)
		actual = "found"
	}
	return &AssertionError{
		Type:       a.Type,
		Expected:   expected,
		Actual:     actual,
		Statements: statements,
	}
}

func assertCount(actx *AssertionContext, statements []ir.Fact, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("count is required")
	}
	facts := partition(actx, statements, a.Partition)
	if len(facts) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:       AssertCount,
		Expected:   fmt.Sprintf("%d facts", *a.Count),
		Actual:     fmt.Sprintf("%d facts", len(facts)),
		Statements: statements,
	}
}

func partition(actx *AssertionContext, statements []ir.Fact, name string) []ir.Fact {
	if actx == nil || actx.Store == nil {
		return statements
	}
	switch name {
	case PartitionBase:
		return actx.Store.Base()
	case PartitionDerived:
		return actx.Store.Derived()
	default:
		return statements
	}
}
