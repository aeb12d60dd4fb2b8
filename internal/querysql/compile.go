package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/factlog/internal/ir"
)

// Compiled is a parameterized SELECT plus the variables its columns bind.
// Column 2i is the kind and column 2i+1 the text of Vars[i].
type Compiled struct {
	SQL    string
	Params []any
	Vars   []string
}

// column is a (kind, text) pair of SQL expressions for one slot.
type column struct {
	kind string
	text string
}

// Compile converts a conjunctive pattern query to SQL.
//
// Literal slots become equality filters, the first occurrence of a variable
// becomes an output column, and later occurrences become join conditions.
// All literals are parameterized; every query has an ORDER BY.
func Compile(patterns []ir.Pattern) (Compiled, error) {
	if len(patterns) == 0 {
		// One empty binding context, as the evaluator returns.
		return Compiled{SQL: "SELECT 1"}, nil
	}

	var (
		from    []string
		where   []string
		params  []any
		order   []string
		vars    []string
		sources = map[string]column{}
	)

	bind := func(name string, col column) {
		if prev, ok := sources[name]; ok {
			where = append(where,
				fmt.Sprintf("%s = %s", col.kind, prev.kind),
				fmt.Sprintf("%s = %s", col.text, prev.text))
			return
		}
		sources[name] = col
		vars = append(vars, name)
	}

	for i, p := range patterns {
		alias := fmt.Sprintf("f%d", i)
		from = append(from, "facts AS "+alias)
		order = append(order, alias+".seq")

		entity := column{kind: alias + ".entity_kind", text: alias + ".entity"}
		value := column{kind: alias + ".value_kind", text: alias + ".value"}
		attr := column{kind: "'" + kindKeyword + "'", text: alias + ".attr"}

		if err := compileTerm(p.Subject, entity, bind, &where, &params); err != nil {
			return Compiled{}, fmt.Errorf("pattern %d subject: %w", i, err)
		}

		switch a := p.Attr.(type) {
		case ir.Attribute:
			where = append(where, attr.text+" = ?")
			params = append(params, a.Key)
		case ir.Var:
			bind(string(a), attr)
		default:
			return Compiled{}, fmt.Errorf("pattern %d attribute: unsupported term %T", i, p.Attr)
		}

		if err := compileTerm(p.Value, value, bind, &where, &params); err != nil {
			return Compiled{}, fmt.Errorf("pattern %d value: %w", i, err)
		}
	}

	selectList := "1"
	if len(vars) > 0 {
		cols := make([]string, 0, 2*len(vars))
		for _, v := range vars {
			c := sources[v]
			cols = append(cols, c.kind, c.text)
		}
		selectList = strings.Join(cols, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString(" FROM ")
	sb.WriteString(strings.Join(from, ", "))
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(order, ", "))

	return Compiled{SQL: sb.String(), Params: params, Vars: vars}, nil
}

func compileTerm(t ir.Term, col column, bind func(string, column), where *[]string, params *[]any) error {
	switch v := t.(type) {
	case ir.Var:
		bind(string(v), col)
		return nil
	case ir.Value:
		kind, text, err := encodeValue(v)
		if err != nil {
			return err
		}
		*where = append(*where, col.kind+" = ?", col.text+" = ?")
		*params = append(*params, kind, text)
		return nil
	default:
		return fmt.Errorf("unsupported term %T", t)
	}
}
