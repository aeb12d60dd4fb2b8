package program

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/ir"
)

func loadPeople(t *testing.T) *Program {
	t.Helper()
	p, err := Load(filepath.Join("testdata", "people.yaml"))
	require.NoError(t, err)
	return p
}

func TestParseYAML_People(t *testing.T) {
	p := loadPeople(t)

	assert.Equal(t, "people", p.Name)
	assert.Equal(t, filepath.Join("testdata", "people.yaml"), p.Source)
	require.Len(t, p.Attributes, 4)
	assert.Equal(t, ir.NewAttribute("person/age", ir.KindInt), p.Attributes[1])

	ageAttr, ok := p.Attribute("person/age")
	require.True(t, ok)
	assert.Equal(t, ir.KindInt, ageAttr.Type)

	require.Len(t, p.Facts, 6)
	assert.Equal(t, ir.NewFact(ir.Int(1), ageAttr, ir.Int(30)), p.Facts[1])
	assert.Equal(t, ir.TokenFor("carol"), p.Facts[4].Entity, "#carol is a named token")

	require.Len(t, p.Rules, 2)
	adult := p.Rules[0]
	assert.Equal(t, "adult", adult.Name)
	assert.Equal(t, []ir.Pattern{ir.P(ir.Var("id"), ageAttr, ir.Var("age"))}, adult.When)
	assert.Equal(t, []Guard{{Left: "age", Op: OpGe, Right: ir.Int(18)}}, adult.Where)

	require.Len(t, p.Queries, 2)
	q, ok := p.Query("eligible_names")
	require.True(t, ok)
	assert.Len(t, q.Find, 2)
	_, ok = p.Query("missing")
	assert.False(t, ok)
}

func TestParseYAML_NameDefaultsToFileName(t *testing.T) {
	p, err := ParseYAML("dir/tiny.yaml", []byte("facts: [[1, k, v]]\n"))
	require.NoError(t, err)
	assert.Equal(t, "tiny", p.Name)
}

func TestParseYAML_Empty(t *testing.T) {
	p, err := ParseYAML("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, p.Facts)
	assert.Empty(t, p.Rules)
}

func TestParseYAML_UndeclaredAttributesAllowedWithoutSchema(t *testing.T) {
	p, err := ParseYAML("free.yaml", []byte(`
facts:
  - [1, anything/goes, 3]
rules:
  - when: [["?e", "?a", "?v"]]
    then: [["?e", seen/attr, "?a"]]
`))
	require.NoError(t, err)
	assert.Equal(t, ir.NewAttribute("anything/goes", ir.KindAny), p.Facts[0].Attr)
	assert.Equal(t, "rule-1", p.Rules[0].Name)
	assert.Equal(t, ir.Var("a"), p.Rules[0].When[0].Attr)
}

func TestParseYAML_NFCNormalization(t *testing.T) {
	p, err := ParseYAML("nfc.yaml", []byte("facts: [[1, name, \"e\\u0301\"]]\n"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("\u00e9"), p.Facts[0].Value)
}

func TestParseYAML_UnknownFieldRejected(t *testing.T) {
	_, err := ParseYAML("bad.yaml", []byte("factz: []\n"))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestParseYAML_CollectsAllErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)

	errs := CompileErrors(err)
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{
		"facts[0]",
		"facts[1]",
		"rules[broken].then[0]",
		"rules[broken].where[0]",
		"rules[empty].when",
		"rules[empty].then",
		"queries[0]",
	}, fields)

	assert.Contains(t, errs[0].Message, "floats are forbidden")
	assert.Contains(t, errs[1].Message, "facts cannot contain variables")
	assert.Contains(t, errs[2].Message, `undeclared attribute "person/nickname"`)
	assert.Contains(t, errs[3].Message, "?missing is not bound by when")
}

func TestCompile_RangeRestriction(t *testing.T) {
	_, err := ParseYAML("rr.yaml", []byte(`
rules:
  - name: leak
    when: [["?id", person/age, "?age"]]
    then: [["?id", person/friend, "?other"]]
`))
	require.Error(t, err)
	errs := CompileErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "rules[leak].then[0]", errs[0].Field)
	assert.Contains(t, errs[0].Message, "?other")
}

func TestCompile_DuplicateNames(t *testing.T) {
	_, err := ParseYAML("dup.yaml", []byte(`
attributes:
  - {key: k}
  - {key: k}
rules:
  - {name: r, when: [["?e", k, "?v"]], then: [["?e", k, "?v"]]}
  - {name: r, when: [["?e", k, "?v"]], then: [["?e", k, "?v"]]}
queries:
  - {name: q, find: []}
  - {name: q, find: []}
`))
	require.Error(t, err)
	errs := CompileErrors(err)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Message, "duplicate attribute")
	assert.Contains(t, errs[1].Message, "duplicate rule name")
	assert.Contains(t, errs[2].Message, "duplicate query name")
}

func TestParseFactAndPattern(t *testing.T) {
	p := loadPeople(t)

	f, err := p.ParseFact([]any{4, "person/age", 70})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(70), f.Value)
	assert.Equal(t, ir.KindInt, f.Attr.Type)

	_, err = p.ParseFact([]any{4, "person/age"})
	assert.Error(t, err)
	_, err = p.ParseFact([]any{4, "person/shoe", 44})
	assert.Error(t, err)
	_, err = p.ParseFact([]any{4, 7, 44})
	assert.Error(t, err)

	pat, err := p.ParsePattern([]any{"?id", "?attr", "#carol"})
	require.NoError(t, err)
	assert.Equal(t, ir.P(ir.Var("id"), ir.Var("attr"), ir.TokenFor("carol")), pat)

	_, err = p.ParsePattern([]any{"?", "person/age", 1})
	assert.Error(t, err, "empty variable name")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.json")
	require.NoError(t, writeFile(path, "{}"))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = Load(filepath.Join("testdata", "nope.yaml"))
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	p := loadPeople(t)

	v, err := p.ParseValue("#carol")
	require.NoError(t, err)
	assert.Equal(t, ir.TokenFor("carol"), v)

	v, err = p.ParseValue(7)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(7), v)

	_, err = p.ParseValue("?x")
	assert.Error(t, err)
	_, err = p.ParseValue(2.5)
	assert.Error(t, err)
}
