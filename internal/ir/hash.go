package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFact     = "factlog/fact/v1"
	DomainBindings = "factlog/bindings/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactID computes the content-addressed id of a fact. Two facts with the same
// identity (entity, attribute key, value) always share an id; the advisory
// attribute type does not participate.
func FactID(f Fact) (string, error) {
	canonical, err := MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("FactID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}

// BindingsHash computes a content hash of a binding context, independent of
// binding order.
func BindingsHash(b Bindings) (string, error) {
	canonical, err := MarshalCanonical(b)
	if err != nil {
		return "", fmt.Errorf("BindingsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBindings, canonical), nil
}

// MustFactID is like FactID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFactID(f Fact) string {
	id, err := FactID(f)
	if err != nil {
		panic(err)
	}
	return id
}
