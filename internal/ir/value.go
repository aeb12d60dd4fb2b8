package ir

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Kind tags the variant of a Value. KindAny is only meaningful as an
// attribute type, where it means "no advisory type".
type Kind uint8

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindBool
	KindToken
	KindKeyword
)

var kindNames = map[Kind]string{
	KindAny:     "any",
	KindString:  "string",
	KindInt:     "int",
	KindBool:    "bool",
	KindToken:   "token",
	KindKeyword: "keyword",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a kind name ("string", "int", ...) back to its Kind.
// The empty string parses as KindAny.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindAny, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("unknown kind %q", s)
}

// Value is a sealed interface over the scalar types a fact may hold.
// Only String, Int, Bool, Token and Keyword implement it.
// NO Float - floats are forbidden, they break exact equality and hashing.
//
// Every Value is also a Term, so literals can sit directly in a pattern slot.
type Value interface {
	Term
	fmt.Stringer
	Kind() Kind
	irValue() // Sealed - only these types implement it
}

// String is a string value.
type String string

func (String) irValue() {}
func (String) term() {}
func (String) Kind() Kind { return KindString }
func (v String) String() string { return strconv.Quote(string(v)) }

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) irValue() {}
func (Int) term() {}
func (Int) Kind() Kind { return KindInt }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}
func (Bool) term() {}
func (Bool) Kind() Kind { return KindBool }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// Token is an opaque unique identifier, usually an entity id.
type Token uuid.UUID

func (Token) irValue() {}
func (Token) term() {}
func (Token) Kind() Kind { return KindToken }
func (v Token) String() string { return "#" + uuid.UUID(v).String() }

// UUID returns the underlying uuid.
func (v Token) UUID() uuid.UUID { return uuid.UUID(v) }

// Keyword is an attribute key carried as a value. A variable in the
// attribute slot of a pattern binds to the Keyword of the matched attribute.
type Keyword string

func (Keyword) irValue() {}
func (Keyword) term() {}
func (Keyword) Kind() Kind { return KindKeyword }
func (v Keyword) String() string { return ":" + string(v) }

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Equal reports structural equality. Two nil values are equal.
func Equal(a, b Value) bool {
	return a == b
}

// ValueOf converts a native Go value into a Value.
// Accepts string, bool, uuid.UUID, any Value and every integer type;
// unsigned values above math.MaxInt64 are rejected.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil is not a value")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val)
	case bool:
		return Bool(val), nil
	case uuid.UUID:
		return Token(val), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustValueOf is like ValueOf but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Native converts a Value into a plain Go value for display and comparison
// with decoded documents. Tokens render as "#<uuid>", keywords as ":<key>".
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Token, Keyword:
		return val.String()
	default:
		return nil
	}
}

// Compare orders two values of the same comparable kind (Int or String).
// The second return is false when the values cannot be ordered.
func Compare(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case String:
		y, ok := b.(String)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
