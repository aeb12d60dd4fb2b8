package program

import (
	"github.com/roach88/factlog/internal/ir"
)

// Program is a compiled program file.
type Program struct {
	Name       string
	Source     string
	Attributes []ir.Attribute
	Facts      []ir.Fact
	Rules      []Rule
	Queries    []Query

	attrs map[string]ir.Attribute
}

// Rule derives the facts in Then for every context matching When whose
// guards all hold.
type Rule struct {
	Name  string
	When  []ir.Pattern
	Where []Guard
	Then  []ir.Pattern

	attrs map[string]ir.Attribute
}

// Query is a named conjunctive query.
type Query struct {
	Name string
	Find []ir.Pattern
}

// Attribute returns the declared attribute for key.
func (p *Program) Attribute(key string) (ir.Attribute, bool) {
	a, ok := p.attrs[key]
	return a, ok
}

// Query returns the named query.
func (p *Program) Query(name string) (Query, bool) {
	for _, q := range p.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}
