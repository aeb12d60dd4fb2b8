package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactIDStable(t *testing.T) {
	f := NewFact(Int(1), NewAttribute("person/age", KindInt), Int(30))
	same := NewFact(Int(1), NewAttribute("person/age", KindAny), Int(30))
	other := NewFact(Int(1), NewAttribute("person/age", KindInt), Int(31))

	id, err := FactID(f)
	require.NoError(t, err)
	assert.Len(t, id, 64)
	assert.Equal(t, id, MustFactID(same), "attribute type is not part of identity")
	assert.NotEqual(t, id, MustFactID(other))
}

func TestFactIDRejectsIncompleteFacts(t *testing.T) {
	_, err := FactID(Fact{})
	assert.Error(t, err)
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"x":1}`)
	assert.NotEqual(t,
		hashWithDomain(DomainFact, data),
		hashWithDomain(DomainBindings, data))
}

func TestBindingsHashOrderIndependent(t *testing.T) {
	a := Bindings{}.Extend("x", Int(1)).Extend("y", Int(2))
	b := Bindings{}.Extend("y", Int(2)).Extend("x", Int(1))

	ha, err := BindingsHash(a)
	require.NoError(t, err)
	hb, err := BindingsHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
