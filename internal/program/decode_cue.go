package program

import (
	"fmt"

	"cuelang.org/go/cue"
)

var topLevelFields = map[string]bool{
	"name":       true,
	"attributes": true,
	"facts":      true,
	"rules":      true,
	"queries":    true,
}

// decodeCUE walks a CUE value into a document.
//
// attributes, rules and queries may be lists (as in YAML) or structs keyed
// by attribute key / rule name / query name; struct order is declaration
// order.
func decodeCUE(v cue.Value) (*document, error) {
	doc := &document{}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !topLevelFields[iter.Selector().String()] {
			return nil, &CompileError{
				Field:   iter.Selector().String(),
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Name = name
	}

	if doc.Attributes, err = decodeAttributes(v.LookupPath(cue.ParsePath("attributes"))); err != nil {
		return nil, err
	}
	if doc.Facts, err = decodeTriples(v.LookupPath(cue.ParsePath("facts"))); err != nil {
		return nil, err
	}
	if doc.Rules, err = decodeRules(v.LookupPath(cue.ParsePath("rules"))); err != nil {
		return nil, err
	}
	if doc.Queries, err = decodeQueries(v.LookupPath(cue.ParsePath("queries"))); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeAttributes(v cue.Value) ([]attributeDoc, error) {
	if !v.Exists() {
		return nil, nil
	}
	var attrs []attributeDoc

	if v.IncompleteKind() == cue.StructKind {
		// {"person/age": "int"}
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			typ, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			attrs = append(attrs, attributeDoc{
				Key:  unquoteLabel(iter.Selector()),
				Type: typ,
				pos:  iter.Value().Pos(),
			})
		}
		return attrs, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		item := iter.Value()
		a := attributeDoc{pos: item.Pos()}
		if a.Key, err = optionalString(item, "key"); err != nil {
			return nil, err
		}
		if a.Type, err = optionalString(item, "type"); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func decodeRules(v cue.Value) ([]ruleDoc, error) {
	if !v.Exists() {
		return nil, nil
	}
	var rules []ruleDoc
	err := eachNamed(v, func(name string, item cue.Value) error {
		r := ruleDoc{Name: name, pos: item.Pos()}
		if name == "" {
			n, err := optionalString(item, "name")
			if err != nil {
				return err
			}
			r.Name = n
		}
		var err error
		if r.When, err = decodeTriples(item.LookupPath(cue.ParsePath("when"))); err != nil {
			return err
		}
		if r.Where, err = decodeStrings(item.LookupPath(cue.ParsePath("where"))); err != nil {
			return err
		}
		if r.Then, err = decodeTriples(item.LookupPath(cue.ParsePath("then"))); err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	return rules, err
}

func decodeQueries(v cue.Value) ([]queryDoc, error) {
	if !v.Exists() {
		return nil, nil
	}
	var queries []queryDoc
	err := eachNamed(v, func(name string, item cue.Value) error {
		q := queryDoc{Name: name, pos: item.Pos()}
		if name == "" {
			n, err := optionalString(item, "name")
			if err != nil {
				return err
			}
			q.Name = n
		}
		var err error
		if q.Find, err = decodeTriples(item.LookupPath(cue.ParsePath("find"))); err != nil {
			return err
		}
		queries = append(queries, q)
		return nil
	})
	return queries, err
}

// eachNamed visits the members of a struct (name = label) or a list
// (name = "").
func eachNamed(v cue.Value, fn func(name string, item cue.Value) error) error {
	if v.IncompleteKind() == cue.StructKind {
		iter, err := v.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := fn(unquoteLabel(iter.Selector()), iter.Value()); err != nil {
				return err
			}
		}
		return nil
	}

	iter, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn("", iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func decodeTriples(v cue.Value) ([][]any, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var triples [][]any
	for iter.Next() {
		inner, err := iter.Value().List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var triple []any
		for inner.Next() {
			scalar, err := decodeScalar(inner.Value())
			if err != nil {
				return nil, err
			}
			triple = append(triple, scalar)
		}
		triples = append(triples, triple)
	}
	return triples, nil
}

func decodeStrings(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeScalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: "value", Message: "floats are forbidden", Pos: v.Pos()}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("expected string, int or bool, got %s", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// unquoteLabel returns a field label without CUE quoting ("person/age"
// rather than "\"person/age\"").
func unquoteLabel(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}
