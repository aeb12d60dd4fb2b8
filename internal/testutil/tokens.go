package testutil

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/roach88/factlog/internal/ir"
)

// Token returns a deterministic token for test entity n.
//
// This enables deterministic test execution and golden snapshot comparison.
func Token(n uint64) ir.Token {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[8:], n)
	return ir.Token(u)
}

// TokenSequence hands out Token(1), Token(2), ... in order.
// Not safe for concurrent use.
type TokenSequence struct {
	next uint64
}

// Next returns the next token of the sequence.
func (s *TokenSequence) Next() ir.Token {
	s.next++
	return Token(s.next)
}
