package program

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCycles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []CycleWarning
	}{
		{
			name: "no rules",
			yaml: "facts: []\n",
			want: []CycleWarning{},
		},
		{
			name: "chain is a DAG",
			yaml: `
rules:
  - {name: a, when: [["?e", x, "?v"]], then: [["?e", y, "?v"]]}
  - {name: b, when: [["?e", y, "?v"]], then: [["?e", z, "?v"]]}
`,
			want: []CycleWarning{},
		},
		{
			name: "self recursive",
			yaml: `
rules:
  - {name: step, when: [["?x", path, "?y"], ["?y", edge, "?z"]], then: [["?x", path, "?z"]]}
`,
			want: []CycleWarning{{
				Path:    []string{"step", "step"},
				Message: "Self-recursive rule: step → step",
			}},
		},
		{
			name: "mutual recursion",
			yaml: `
rules:
  - {name: a, when: [["?e", x, "?v"]], then: [["?e", y, "?v"]]}
  - {name: b, when: [["?e", y, "?v"]], then: [["?e", x, "?v"]]}
`,
			want: []CycleWarning{{
				Path:    []string{"a", "b", "a"},
				Message: "Mutually recursive rules: a → b → a",
			}},
		},
		{
			name: "variable attribute matches everything",
			yaml: `
rules:
  - {name: meta, when: [["?e", "?a", "?v"]], then: [["?e", seen, "?a"]]}
`,
			want: []CycleWarning{{
				Path:    []string{"meta", "meta"},
				Message: "Self-recursive rule: meta → meta",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseYAML("cycles.yaml", []byte(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, AnalyzeCycles(p))
		})
	}
}

func TestAnalyzeCycles_Testdata(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(loadPeople(t)))

	p, err := Load(filepath.Join("testdata", "cuepkg"))
	require.NoError(t, err)
	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"path-step", "path-step"}, warnings[0].Path)
}
