package querysql

import (
	"fmt"
	"strconv"

	"github.com/roach88/factlog/internal/ir"
)

const (
	kindString  = "s"
	kindInt     = "i"
	kindBool    = "b"
	kindToken   = "t"
	kindKeyword = "k"
)

// encodeValue returns the (kind, text) columns for v.
func encodeValue(v ir.Value) (string, string, error) {
	switch val := v.(type) {
	case ir.String:
		return kindString, string(val), nil
	case ir.Int:
		return kindInt, strconv.FormatInt(int64(val), 10), nil
	case ir.Bool:
		return kindBool, strconv.FormatBool(bool(val)), nil
	case ir.Token:
		return kindToken, val.UUID().String(), nil
	case ir.Keyword:
		return kindKeyword, string(val), nil
	case nil:
		return "", "", fmt.Errorf("cannot encode nil value")
	default:
		return "", "", fmt.Errorf("unsupported value type %T", v)
	}
}

// decodeValue is the inverse of encodeValue.
func decodeValue(kind, text string) (ir.Value, error) {
	switch kind {
	case kindString:
		return ir.String(text), nil
	case kindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode int %q: %w", text, err)
		}
		return ir.Int(n), nil
	case kindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("decode bool %q: %w", text, err)
		}
		return ir.Bool(b), nil
	case kindToken:
		tok, err := ir.ParseToken(text)
		if err != nil {
			return nil, fmt.Errorf("decode token %q: %w", text, err)
		}
		return tok, nil
	case kindKeyword:
		return ir.Keyword(text), nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}
