package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/ir"
)

func peopleFacts() []ir.Fact {
	return []ir.Fact{
		name.Of(ir.Int(1), ir.String("Alice")),
		age.Of(ir.Int(1), ir.Int(30)),
		name.Of(ir.Int(2), ir.String("Bob")),
		age.Of(ir.Int(2), ir.Int(12)),
		name.Of(ir.Int(3), ir.String("Carol")),
	}
}

func TestEvaluate_EmptyPatternsYieldOneEmptyContext(t *testing.T) {
	got := Evaluate(nil, peopleFacts())
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Len())

	got = Evaluate(nil, nil)
	require.Len(t, got, 1, "even over an empty database")
}

func TestEvaluate_EmptyDatabase(t *testing.T) {
	got := Evaluate(adultPatterns(), nil)
	assert.Empty(t, got)
}

func TestEvaluate_ExactMatchYieldsEmptyContext(t *testing.T) {
	got := Evaluate([]ir.Pattern{name.Match(ir.Int(1), ir.String("Alice"))}, peopleFacts())
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Len())

	got = Evaluate([]ir.Pattern{name.Match(ir.Int(1), ir.String("Bob"))}, peopleFacts())
	assert.Empty(t, got)
}

func TestEvaluate_SinglePatternInFactOrder(t *testing.T) {
	got := Evaluate([]ir.Pattern{name.Match(ir.Var("id"), ir.Var("name"))}, peopleFacts())
	assert.Equal(t, []map[string]ir.Value{
		{"id": ir.Int(1), "name": ir.String("Alice")},
		{"id": ir.Int(2), "name": ir.String("Bob")},
		{"id": ir.Int(3), "name": ir.String("Carol")},
	}, maps(got))
}

func TestEvaluate_Join(t *testing.T) {
	patterns := []ir.Pattern{
		name.Match(ir.Var("id"), ir.Var("name")),
		age.Match(ir.Var("id"), ir.Var("age")),
	}
	got := Evaluate(patterns, peopleFacts())

	// Carol has no age, so she drops out of the join.
	assert.Equal(t, []map[string]ir.Value{
		{"id": ir.Int(1), "name": ir.String("Alice"), "age": ir.Int(30)},
		{"id": ir.Int(2), "name": ir.String("Bob"), "age": ir.Int(12)},
	}, maps(got))
}

func TestEvaluate_JoinOrderFollowsPatternOrder(t *testing.T) {
	facts := []ir.Fact{
		knows.Of(ir.Int(1), ir.Int(2)),
		knows.Of(ir.Int(1), ir.Int(3)),
		knows.Of(ir.Int(2), ir.Int(3)),
	}
	patterns := []ir.Pattern{
		knows.Match(ir.Var("a"), ir.Var("b")),
		knows.Match(ir.Var("b"), ir.Var("c")),
	}

	got := Evaluate(patterns, facts)
	assert.Equal(t, []map[string]ir.Value{
		{"a": ir.Int(1), "b": ir.Int(2), "c": ir.Int(3)},
	}, maps(got))
}

func TestEvaluate_AttributeVariable(t *testing.T) {
	got := Evaluate([]ir.Pattern{ir.P(ir.Int(1), ir.Var("attr"), ir.Var("v"))}, peopleFacts())
	assert.Equal(t, []map[string]ir.Value{
		{"attr": ir.Keyword("person/name"), "v": ir.String("Alice")},
		{"attr": ir.Keyword("person/age"), "v": ir.Int(30)},
	}, maps(got))
}

func TestEvaluate_CrossProductWithoutSharedVariables(t *testing.T) {
	facts := []ir.Fact{
		name.Of(ir.Int(1), ir.String("Alice")),
		name.Of(ir.Int(2), ir.String("Bob")),
	}
	patterns := []ir.Pattern{
		name.Match(ir.Var("x"), ir.Var("xn")),
		name.Match(ir.Var("y"), ir.Var("yn")),
	}
	assert.Len(t, Evaluate(patterns, facts), 4)
}

func TestEvaluate_ShortCircuitsOnEmpty(t *testing.T) {
	patterns := []ir.Pattern{
		tag.Match(ir.Var("id"), ir.String("missing")),
		name.Match(ir.Var("id"), ir.Var("name")),
	}
	assert.Empty(t, Evaluate(patterns, peopleFacts()))
}
