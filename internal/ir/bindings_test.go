package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingsZeroValueIsEmpty(t *testing.T) {
	var b Bindings
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Names())
	assert.Empty(t, b.Map())
	_, ok := b.Get("x")
	assert.False(t, ok)
	assert.Equal(t, "{}", b.String())
}

func TestBindingsExtendIsPersistent(t *testing.T) {
	base := Bindings{}.Extend("id", Int(1))
	left := base.Extend("name", String("Alice"))
	right := base.Extend("age", Int(30))

	assert.Equal(t, 1, base.Len())
	assert.False(t, base.Has("name"), "extending must not mutate the parent")
	assert.False(t, left.Has("age"))
	assert.False(t, right.Has("name"))

	assert.Equal(t, []string{"id", "name"}, left.Names())
	assert.Equal(t, map[string]Value{"id": Int(1), "age": Int(30)}, right.Map())
}

func TestBindingsShadowing(t *testing.T) {
	b := Bindings{}.Extend("x", Int(1)).Extend("x", Int(2))
	v, ok := b.Get("x")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []string{"x"}, b.Names())
}

func TestBindingsTypedGetters(t *testing.T) {
	b := BindingsOf(map[string]Value{
		"name":  String("Alice"),
		"age":   Int(30),
		"admin": Bool(true),
	})

	name, ok := b.GetString("name")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)

	age, ok := b.GetInt("age")
	require.True(t, ok)
	assert.Equal(t, int64(30), age)

	admin, ok := b.GetBool("admin")
	require.True(t, ok)
	assert.True(t, admin)

	_, ok = b.GetInt("name")
	assert.False(t, ok, "wrong variant")
	_, ok = b.GetString("missing")
	assert.False(t, ok)
}

func TestBindingsEqualIgnoresOrder(t *testing.T) {
	a := Bindings{}.Extend("x", Int(1)).Extend("y", Int(2))
	b := Bindings{}.Extend("y", Int(2)).Extend("x", Int(1))
	c := Bindings{}.Extend("x", Int(1))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "{x=1, y=2}", b.String())
}

func TestBindingsNative(t *testing.T) {
	b := BindingsOf(map[string]Value{"id": Int(4), "tag": String("adult")})
	assert.Equal(t, map[string]any{"id": int64(4), "tag": "adult"}, b.Native())
}
