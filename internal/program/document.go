package program

import (
	"cuelang.org/go/cue/token"
)

// document is the format-neutral shape of a program file. YAML decodes into
// it directly; CUE is walked into it.
type document struct {
	Name       string         `yaml:"name"`
	Attributes []attributeDoc `yaml:"attributes"`
	Facts      [][]any        `yaml:"facts"`
	Rules      []ruleDoc      `yaml:"rules"`
	Queries    []queryDoc     `yaml:"queries"`
}

type attributeDoc struct {
	Key  string `yaml:"key"`
	Type string `yaml:"type"`

	pos token.Pos
}

type ruleDoc struct {
	Name  string   `yaml:"name"`
	When  [][]any  `yaml:"when"`
	Where []string `yaml:"where"`
	Then  [][]any  `yaml:"then"`

	pos token.Pos
}

type queryDoc struct {
	Name string  `yaml:"name"`
	Find [][]any `yaml:"find"`

	pos token.Pos
}
