package ir

import (
	"fmt"
	"strings"
)

// Attribute names a property of an entity. Two attributes denote the same
// slot iff their keys are equal; Type is advisory.
type Attribute struct {
	Key  string
	Type Kind
}

// NewAttribute creates an attribute with an advisory type.
func NewAttribute(key string, typ Kind) Attribute {
	return Attribute{Key: key, Type: typ}
}

func (Attribute) attrTerm() {}

func (a Attribute) String() string { return a.Key }

// Term is one slot of a pattern: a literal Value or a Var.
type Term interface {
	term()
}

// AttrTerm is the attribute slot of a pattern: an Attribute or a Var.
type AttrTerm interface {
	attrTerm()
}

// Var is a named placeholder. The same name within one query must bind to
// the same value everywhere it appears.
type Var string

func (Var) term()     {}
func (Var) attrTerm() {}

func (v Var) String() string { return "?" + string(v) }

// Fact is an (entity, attribute, value) triple. Identity is structural over
// entity, attribute key and value.
type Fact struct {
	Entity Value
	Attr   Attribute
	Value  Value
}

// NewFact builds a fact.
func NewFact(entity Value, attr Attribute, value Value) Fact {
	return Fact{Entity: entity, Attr: attr, Value: value}
}

// FactKey is the comparable identity of a fact.
type FactKey struct {
	Entity Value
	Attr   string
	Value  Value
}

// Key returns the identity used for deduplication.
func (f Fact) Key() FactKey {
	return FactKey{Entity: f.Entity, Attr: f.Attr.Key, Value: f.Value}
}

// Valid reports whether every slot of the fact is populated.
func (f Fact) Valid() bool {
	return f.Entity != nil && f.Value != nil && f.Attr.Key != ""
}

// SameAs reports whether two facts have the same identity.
func (f Fact) SameAs(other Fact) bool {
	return f.Key() == other.Key()
}

func (f Fact) String() string {
	return fmt.Sprintf("(%s %s %s)", f.Entity, f.Attr.Key, f.Value)
}

// Pattern is a fact-shaped template whose slots may be variables.
type Pattern struct {
	Subject Term
	Attr    AttrTerm
	Value   Term
}

// P builds a pattern. Literal Values, Attributes and Vars are all accepted.
func P(subject Term, attr AttrTerm, value Term) Pattern {
	return Pattern{Subject: subject, Attr: attr, Value: value}
}

// Vars returns the variable names of the pattern in slot order, without
// duplicates.
func (p Pattern) Vars() []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if v, ok := p.Subject.(Var); ok {
		add(string(v))
	}
	if v, ok := p.Attr.(Var); ok {
		add(string(v))
	}
	if v, ok := p.Value.(Var); ok {
		add(string(v))
	}
	return names
}

func (p Pattern) String() string {
	return fmt.Sprintf("[%s %s %s]", termString(p.Subject), attrTermString(p.Attr), termString(p.Value))
}

func termString(t Term) string {
	switch v := t.(type) {
	case nil:
		return "<nil>"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func attrTermString(t AttrTerm) string {
	switch v := t.(type) {
	case nil:
		return "<nil>"
	case Attribute:
		return v.Key
	case Var:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// PatternsString renders a conjunctive query for logs.
func PatternsString(patterns []Pattern) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Field is a typed attribute with helpers for building facts and patterns.
//
//	age := ir.DefineField("person/age", ir.KindInt)
//	s.Assert(age.Of(ir.Int(1), ir.Int(30)))
//	s.Query([]ir.Pattern{age.Match(ir.Var("id"), ir.Var("age"))}, fn)
type Field struct {
	attr Attribute
}

// DefineField creates a field for the given attribute key.
func DefineField(key string, typ Kind) Field {
	return Field{attr: NewAttribute(key, typ)}
}

// Attribute returns the field's attribute.
func (f Field) Attribute() Attribute { return f.attr }

// Of builds a fact of this field.
func (f Field) Of(entity Value, value Value) Fact {
	return NewFact(entity, f.attr, value)
}

// Match builds a pattern over this field.
func (f Field) Match(subject Term, value Term) Pattern {
	return P(subject, f.attr, value)
}
