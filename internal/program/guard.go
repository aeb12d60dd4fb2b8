package program

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/factlog/internal/ir"
)

// Op is a guard comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Guard filters binding contexts of a rule: ?var OP operand, where operand
// is a literal or another variable. A guard over an unbound variable, or an
// ordering comparison between values that cannot be ordered, is false.
type Guard struct {
	Left  ir.Var
	Op    Op
	Right ir.Term
}

// ParseGuard parses "?age >= 18", "?name != 'Bob'", "?a == ?b".
func ParseGuard(s string) (Guard, error) {
	i := strings.IndexAny(s, "=!<>")
	if i < 0 {
		return Guard{}, fmt.Errorf("guard %q: missing operator", s)
	}
	op := Op(s[i : i+1])
	if i+1 < len(s) && s[i+1] == '=' {
		op = Op(s[i : i+2])
	}
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
	default:
		return Guard{}, fmt.Errorf("guard %q: unknown operator %q", s, op)
	}

	left := strings.TrimSpace(s[:i])
	right := strings.TrimSpace(s[i+len(op):])
	if !strings.HasPrefix(left, "?") || len(left) < 2 {
		return Guard{}, fmt.Errorf("guard %q: left side must be a variable", s)
	}
	if right == "" {
		return Guard{}, fmt.Errorf("guard %q: missing right operand", s)
	}

	operand, err := parseOperand(right)
	if err != nil {
		return Guard{}, fmt.Errorf("guard %q: %w", s, err)
	}
	return Guard{Left: ir.Var(left[1:]), Op: op, Right: operand}, nil
}

func parseOperand(s string) (ir.Term, error) {
	switch {
	case strings.HasPrefix(s, "?"):
		if len(s) < 2 {
			return nil, fmt.Errorf("empty variable name")
		}
		return ir.Var(s[1:]), nil
	case strings.HasPrefix(s, "#"):
		return ir.TokenFor(s[1:]), nil
	case len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]:
		return ir.String(norm.NFC.String(s[1 : len(s)-1])), nil
	case s == "true":
		return ir.Bool(true), nil
	case s == "false":
		return ir.Bool(false), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.Int(n), nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return nil, fmt.Errorf("floats are forbidden: %s", s)
	}
	return ir.String(norm.NFC.String(s)), nil
}

// Eval reports whether the guard holds for b.
func (g Guard) Eval(b ir.Bindings) bool {
	left, ok := b.Get(string(g.Left))
	if !ok {
		return false
	}
	var right ir.Value
	switch r := g.Right.(type) {
	case ir.Var:
		right, ok = b.Get(string(r))
		if !ok {
			return false
		}
	case ir.Value:
		right = r
	default:
		return false
	}

	switch g.Op {
	case OpEq:
		return ir.Equal(left, right)
	case OpNe:
		return !ir.Equal(left, right)
	}
	c, ok := ir.Compare(left, right)
	if !ok {
		return false
	}
	switch g.Op {
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// Vars returns the variables the guard reads.
func (g Guard) Vars() []string {
	vars := []string{string(g.Left)}
	if v, ok := g.Right.(ir.Var); ok {
		vars = append(vars, string(v))
	}
	return vars
}

func (g Guard) String() string {
	right := ""
	switch r := g.Right.(type) {
	case ir.Var:
		right = r.String()
	case ir.Value:
		right = r.String()
	}
	return fmt.Sprintf("%s %s %s", g.Left, g.Op, right)
}
