package ir

import (
	"github.com/google/uuid"
)

// tokenNamespace scopes name-derived tokens so they never collide with
// tokens from other uuid v5 users.
var tokenNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/factlog/token"))

// NewToken returns a fresh opaque token (UUIDv7, time-ordered).
func NewToken() Token {
	return Token(uuid.Must(uuid.NewV7()))
}

// TokenFor returns the deterministic token for a name. Program files use it
// so "#alice" resolves to the same entity on every load.
func TokenFor(name string) Token {
	return Token(uuid.NewSHA1(tokenNamespace, []byte(name)))
}

// ParseToken parses the "#<uuid>" rendering produced by Token.String, or a
// bare uuid.
func ParseToken(s string) (Token, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Token{}, err
	}
	return Token(u), nil
}
