package payload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundRemovesOversizedField(t *testing.T) {
	b := NewBounder(DefaultMaxFieldBytes)
	in := MapOf("message", "x", "reason", strings.Repeat("a", 1_000_000))

	out := b.Bound(in).(*Map)

	assert.Equal(t, []string{"message"}, out.Keys())
	v, _ := out.Get("message")
	assert.Equal(t, "x", v)
}

func TestBoundKeepsFieldAtCeiling(t *testing.T) {
	// "aaaa" serializes to 6 bytes with its quotes.
	b := NewBounder(6)
	out := b.Bound(MapOf("k", "aaaa", "drop", "aaaaa")).(*Map)
	assert.Equal(t, []string{"k"}, out.Keys())
}

func TestBoundPrunesChildrenBeforeParent(t *testing.T) {
	b := NewBounder(50)
	in := MapOf(
		"outer", MapOf(
			"big", strings.Repeat("b", 100),
			"small", "s",
		),
	)

	out := b.Bound(in).(*Map)

	outer, ok := out.Get("outer")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"small": "s"}, outer.(*Map).ToStd())
}

func TestBoundSequences(t *testing.T) {
	b := NewBounder(10)
	out := b.Bound(MapOf("list", []any{"ok", strings.Repeat("z", 20), 3})).(*Map)

	list, _ := out.Get("list")
	assert.Equal(t, []any{"ok", 3}, list)
}

func TestBoundNeverRemovesRoot(t *testing.T) {
	b := NewBounder(4)
	out := b.Bound(strings.Repeat("r", 10))
	assert.Equal(t, strings.Repeat("r", 10), out)
}

func TestBoundIsIdempotent(t *testing.T) {
	b := NewBounder(30)
	in := MapOf(
		"a", strings.Repeat("x", 40),
		"b", MapOf("c", strings.Repeat("y", 12), "d", []any{strings.Repeat("z", 31), 1}),
		"e", true,
	)

	once := b.Bound(in)
	twice := b.Bound(once)
	assert.Equal(t, once.(*Map).ToStd(), twice.(*Map).ToStd())
}

func TestBoundDoesNotMutateInput(t *testing.T) {
	in := MapOf("big", strings.Repeat("x", 100))
	_ = NewBounder(10).Bound(in)
	assert.True(t, in.Has("big"))
}

func TestNewBounderDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxFieldBytes, NewBounder(0).Max())
	assert.Equal(t, 12, NewBounder(12).Max())
}
