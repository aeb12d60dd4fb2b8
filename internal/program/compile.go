package program

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/factlog/internal/ir"
)

// slot identifies a triple position for term parsing.
type slot int

const (
	slotEntity slot = iota
	slotAttr
	slotValue
)

func (s slot) String() string {
	switch s {
	case slotEntity:
		return "entity"
	case slotAttr:
		return "attribute"
	default:
		return "value"
	}
}

// compiler turns a document into a Program, collecting every error rather
// than failing fast.
type compiler struct {
	prog *Program
	errs []error
}

func (c *compiler) errorf(field string, pos token.Pos, format string, args ...any) {
	c.errs = append(c.errs, &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func compileDocument(doc *document, source string) (*Program, error) {
	p := &Program{
		Name:   doc.Name,
		Source: source,
		attrs:  make(map[string]ir.Attribute),
	}
	c := &compiler{prog: p}

	for i, a := range doc.Attributes {
		field := fmt.Sprintf("attributes[%d]", i)
		key := norm.NFC.String(a.Key)
		if key == "" {
			c.errorf(field, a.pos, "key is required")
			continue
		}
		kind, err := ir.ParseKind(a.Type)
		if err != nil {
			c.errorf(field, a.pos, "%v", err)
			continue
		}
		if _, dup := p.attrs[key]; dup {
			c.errorf(field, a.pos, "duplicate attribute %q", key)
			continue
		}
		attr := ir.NewAttribute(key, kind)
		p.attrs[key] = attr
		p.Attributes = append(p.Attributes, attr)
	}

	for i, raw := range doc.Facts {
		field := fmt.Sprintf("facts[%d]", i)
		f, err := p.ParseFact(raw)
		if err != nil {
			c.errorf(field, token.NoPos, "%v", err)
			continue
		}
		p.Facts = append(p.Facts, f)
	}

	names := map[string]bool{}
	for i, rd := range doc.Rules {
		r, ok := c.compileRule(i, rd)
		if !ok {
			continue
		}
		if names[r.Name] {
			c.errorf(fmt.Sprintf("rules[%d]", i), rd.pos, "duplicate rule name %q", r.Name)
			continue
		}
		names[r.Name] = true
		p.Rules = append(p.Rules, r)
	}

	queryNames := map[string]bool{}
	for i, qd := range doc.Queries {
		field := fmt.Sprintf("queries[%d]", i)
		if qd.Name == "" {
			c.errorf(field, qd.pos, "name is required")
			continue
		}
		if queryNames[qd.Name] {
			c.errorf(field, qd.pos, "duplicate query name %q", qd.Name)
			continue
		}
		queryNames[qd.Name] = true
		find, ok := c.compilePatterns(field+".find", qd.pos, qd.Find)
		if !ok {
			continue
		}
		p.Queries = append(p.Queries, Query{Name: qd.Name, Find: find})
	}

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return p, nil
}

func (c *compiler) compileRule(i int, rd ruleDoc) (Rule, bool) {
	field := fmt.Sprintf("rules[%d]", i)
	name := rd.Name
	if name == "" {
		name = fmt.Sprintf("rule-%d", i+1)
	} else {
		field = fmt.Sprintf("rules[%s]", name)
	}

	before := len(c.errs)
	if len(rd.When) == 0 {
		c.errorf(field+".when", rd.pos, "at least one pattern is required")
	}
	if len(rd.Then) == 0 {
		c.errorf(field+".then", rd.pos, "at least one template is required")
	}

	when, _ := c.compilePatterns(field+".when", rd.pos, rd.When)
	then, _ := c.compilePatterns(field+".then", rd.pos, rd.Then)

	var where []Guard
	for j, src := range rd.Where {
		g, err := ParseGuard(src)
		if err != nil {
			c.errorf(fmt.Sprintf("%s.where[%d]", field, j), rd.pos, "%v", err)
			continue
		}
		where = append(where, g)
	}

	// Range restriction: then and where may only use variables bound by when.
	bound := map[string]bool{}
	for _, pat := range when {
		for _, v := range pat.Vars() {
			bound[v] = true
		}
	}
	for j, g := range where {
		for _, v := range g.Vars() {
			if !bound[v] {
				c.errorf(fmt.Sprintf("%s.where[%d]", field, j), rd.pos, "variable ?%s is not bound by when", v)
			}
		}
	}
	for j, tmpl := range then {
		for _, v := range tmpl.Vars() {
			if !bound[v] {
				c.errorf(fmt.Sprintf("%s.then[%d]", field, j), rd.pos, "variable ?%s is not bound by when", v)
			}
		}
	}

	if len(c.errs) > before {
		return Rule{}, false
	}
	return Rule{Name: name, When: when, Where: where, Then: then, attrs: c.prog.attrs}, true
}

func (c *compiler) compilePatterns(field string, pos token.Pos, raws [][]any) ([]ir.Pattern, bool) {
	ok := true
	patterns := make([]ir.Pattern, 0, len(raws))
	for j, raw := range raws {
		pat, err := c.prog.ParsePattern(raw)
		if err != nil {
			c.errorf(fmt.Sprintf("%s[%d]", field, j), pos, "%v", err)
			ok = false
			continue
		}
		patterns = append(patterns, pat)
	}
	return patterns, ok
}

// ParsePattern parses a raw triple whose slots may hold variables.
func (p *Program) ParsePattern(raw []any) (ir.Pattern, error) {
	if len(raw) != 3 {
		return ir.Pattern{}, fmt.Errorf("pattern must have 3 elements, got %d", len(raw))
	}
	subject, err := parseTerm(raw[0], slotEntity)
	if err != nil {
		return ir.Pattern{}, err
	}
	attr, err := p.parseAttrTerm(raw[1])
	if err != nil {
		return ir.Pattern{}, err
	}
	value, err := parseTerm(raw[2], slotValue)
	if err != nil {
		return ir.Pattern{}, err
	}
	return ir.P(subject, attr, value), nil
}

// ParseFact parses a raw triple of literals.
func (p *Program) ParseFact(raw []any) (ir.Fact, error) {
	pat, err := p.ParsePattern(raw)
	if err != nil {
		return ir.Fact{}, err
	}
	if vars := pat.Vars(); len(vars) > 0 {
		return ir.Fact{}, fmt.Errorf("facts cannot contain variables (?%s)", vars[0])
	}
	return ir.NewFact(pat.Subject.(ir.Value), pat.Attr.(ir.Attribute), pat.Value.(ir.Value)), nil
}

func (p *Program) parseAttrTerm(raw any) (ir.AttrTerm, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("attribute must be a string, got %T", raw)
	}
	s = norm.NFC.String(s)
	if strings.HasPrefix(s, "?") {
		return parseVar(s)
	}
	if s == "" {
		return nil, fmt.Errorf("attribute must not be empty")
	}
	return p.lookupAttribute(s)
}

// lookupAttribute resolves a literal attribute key. When the program
// declares attributes, undeclared keys are rejected.
func (p *Program) lookupAttribute(key string) (ir.Attribute, error) {
	if a, ok := p.attrs[key]; ok {
		return a, nil
	}
	if len(p.attrs) > 0 {
		return ir.Attribute{}, fmt.Errorf("undeclared attribute %q", key)
	}
	return ir.NewAttribute(key, ir.KindAny), nil
}

func parseTerm(raw any, s slot) (ir.Term, error) {
	switch v := raw.(type) {
	case string:
		v = norm.NFC.String(v)
		switch {
		case strings.HasPrefix(v, "?"):
			return parseVar(v)
		case strings.HasPrefix(v, "#") && len(v) > 1:
			return ir.TokenFor(v[1:]), nil
		}
		return ir.String(v), nil
	case int:
		return ir.Int(v), nil
	case int64:
		return ir.Int(v), nil
	case bool:
		return ir.Bool(v), nil
	case float64, float32:
		return nil, fmt.Errorf("%s: floats are forbidden: %v", s, v)
	case nil:
		return nil, fmt.Errorf("%s: null is not a value", s)
	default:
		return nil, fmt.Errorf("%s: unsupported %T", s, raw)
	}
}

func parseVar(s string) (ir.Var, error) {
	name := s[1:]
	if name == "" {
		return "", fmt.Errorf("empty variable name")
	}
	return ir.Var(name), nil
}

// ParseValue parses a single literal with the same rules as a fact slot.
func (p *Program) ParseValue(raw any) (ir.Value, error) {
	t, err := parseTerm(raw, slotValue)
	if err != nil {
		return nil, err
	}
	v, ok := t.(ir.Value)
	if !ok {
		return nil, fmt.Errorf("expected a literal, got variable %s", t)
	}
	return v, nil
}
