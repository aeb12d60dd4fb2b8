package ir

import (
	"slices"
	"strings"
)

// Bindings maps variable names to values. It is persistent: Extend returns a
// new context that shares structure with its parent, so a context handed to a
// rule or query callback can never be changed behind its back.
//
// The zero value is the empty context.
type Bindings struct {
	head *binding
	size int
}

type binding struct {
	name  string
	value Value
	next  *binding
}

// BindingsOf builds a context from a map. Names are bound in sorted order so
// the result is deterministic.
func BindingsOf(m map[string]Value) Bindings {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	var b Bindings
	for _, name := range names {
		b = b.Extend(name, m[name])
	}
	return b
}

// Extend returns a context with name bound to v. If name is already bound the
// new binding shadows it.
func (b Bindings) Extend(name string, v Value) Bindings {
	size := b.size
	if _, ok := b.Get(name); !ok {
		size++
	}
	return Bindings{head: &binding{name: name, value: v, next: b.head}, size: size}
}

// Get returns the value bound to name.
func (b Bindings) Get(name string) (Value, bool) {
	for n := b.head; n != nil; n = n.next {
		if n.name == name {
			return n.value, true
		}
	}
	return nil, false
}

// Has reports whether name is bound.
func (b Bindings) Has(name string) bool {
	_, ok := b.Get(name)
	return ok
}

// GetString returns the String bound to name.
func (b Bindings) GetString(name string) (string, bool) {
	v, ok := b.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// GetInt returns the Int bound to name.
func (b Bindings) GetInt(name string) (int64, bool) {
	v, ok := b.Get(name)
	if !ok {
		return 0, false
	}
	n, ok := v.(Int)
	return int64(n), ok
}

// GetBool returns the Bool bound to name.
func (b Bindings) GetBool(name string) (bool, bool) {
	v, ok := b.Get(name)
	if !ok {
		return false, false
	}
	x, ok := v.(Bool)
	return bool(x), ok
}

// Len returns the number of distinct bound names.
func (b Bindings) Len() int { return b.size }

// Names returns bound names in binding order, oldest first.
func (b Bindings) Names() []string {
	names := make([]string, 0, b.size)
	seen := make(map[string]bool, b.size)
	for n := b.head; n != nil; n = n.next {
		if !seen[n.name] {
			seen[n.name] = true
			names = append(names, n.name)
		}
	}
	slices.Reverse(names)
	return names
}

// Map copies the context into a plain map.
func (b Bindings) Map() map[string]Value {
	m := make(map[string]Value, b.size)
	for n := b.head; n != nil; n = n.next {
		if _, ok := m[n.name]; !ok {
			m[n.name] = n.value
		}
	}
	return m
}

// Native copies the context into a map of plain Go values (see Native).
func (b Bindings) Native() map[string]any {
	m := make(map[string]any, b.size)
	for name, v := range b.Map() {
		m[name] = Native(v)
	}
	return m
}

// Equal reports whether two contexts bind the same names to equal values,
// regardless of binding order.
func (b Bindings) Equal(other Bindings) bool {
	if b.size != other.size {
		return false
	}
	for name, v := range b.Map() {
		ov, ok := other.Get(name)
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

func (b Bindings) String() string {
	names := b.Names()
	slices.Sort(names)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := b.Get(name)
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(termString(v))
	}
	sb.WriteByte('}')
	return sb.String()
}
