package formtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayAggregation(t *testing.T) {
	t.Run("value folds in order", func(t *testing.T) {
		arr := NewArray([]*Control{NewControl("a"), NewControl("b")})
		assert.Equal(t, []any{"a", "b"}, arr.Value())
	})

	t.Run("disabled child excluded from value, kept in raw value", func(t *testing.T) {
		first := NewControl("a")
		arr := NewArray([]*Control{first, NewControl("b")})

		first.Disable()
		assert.Equal(t, []any{"b"}, arr.Value())
		assert.Equal(t, []any{"a", "b"}, arr.RawValue())
	})

	t.Run("all children disabled disables the array", func(t *testing.T) {
		a := NewControl("a")
		b := NewControl("b")
		arr := NewArray([]*Control{a, b})

		a.Disable()
		b.Disable()
		assert.Equal(t, StatusDisabled, arr.Status())

		a.Enable()
		assert.Equal(t, StatusValid, arr.Status())
	})

	t.Run("invalid child invalidates the array", func(t *testing.T) {
		bad := NewControl("", WithValidators(requiredFn))
		arr := NewArray([]*Control{NewControl("x"), bad})

		assert.True(t, arr.Invalid())
		bad.SetValue("y")
		assert.True(t, arr.Valid())
	})
}

func TestArraySetValue(t *testing.T) {
	t.Run("strict positional set", func(t *testing.T) {
		arr := NewArray([]*Control{NewControl(""), NewControl("")})

		arr.SetValue([]any{"x", "y"})
		assert.Equal(t, []any{"x", "y"}, arr.RawValue())
	})

	t.Run("length mismatch panics", func(t *testing.T) {
		arr := NewArray([]*Control{NewControl(""), NewControl("")})
		assert.Panics(t, func() { arr.SetValue([]any{"x"}) })
	})

	t.Run("empty array panics", func(t *testing.T) {
		arr := NewArray(nil)
		assert.Panics(t, func() { arr.SetValue([]any{}) })
	})

	t.Run("patch updates a prefix", func(t *testing.T) {
		a := NewControl("a")
		b := NewControl("b")
		arr := NewArray([]*Control{a, b})

		arr.PatchValue([]any{"x"})
		assert.Equal(t, "x", a.Value())
		assert.Equal(t, "b", b.Value())
	})

	t.Run("patch ignores extra entries and nil", func(t *testing.T) {
		a := NewControl("a")
		arr := NewArray([]*Control{a})

		arr.PatchValue([]any{"x", "extra"})
		assert.Equal(t, "x", a.Value())

		arr.PatchValue(nil)
		assert.Equal(t, []any{"x"}, arr.Value())
	})
}

func TestArrayMembership(t *testing.T) {
	t.Run("push insert remove", func(t *testing.T) {
		arr := NewArray(nil)

		b := NewControl("b")
		arr.Push(b)
		arr.Insert(0, NewControl("a"))
		arr.Push(NewControl("c"))
		require.Equal(t, 3, arr.Len())
		assert.Equal(t, []any{"a", "b", "c"}, arr.Value())
		assert.Same(t, arr, b.Parent())

		arr.RemoveAt(1)
		assert.Nil(t, b.Parent())
		assert.Equal(t, []any{"a", "c"}, arr.Value())

		arr.RemoveAt(99) // ignored
		assert.Equal(t, 2, arr.Len())
	})

	t.Run("set control at index", func(t *testing.T) {
		old := NewControl("old")
		arr := NewArray([]*Control{old})

		repl := NewControl("new")
		arr.SetControlAt(0, repl)
		assert.Nil(t, old.Parent())
		assert.Equal(t, []any{"new"}, arr.Value())

		arr.SetControlAt(0, nil)
		assert.Equal(t, 0, arr.Len())
	})

	t.Run("clear detaches all", func(t *testing.T) {
		a := NewControl("a")
		arr := NewArray([]*Control{a, NewControl("b")})

		arr.Clear()
		assert.Equal(t, 0, arr.Len())
		assert.Nil(t, a.Parent())
		assert.Equal(t, []any{}, arr.Value())
	})

	t.Run("at bounds", func(t *testing.T) {
		a := NewControl("a")
		arr := NewArray([]*Control{a})

		assert.Same(t, a, arr.At(0))
		assert.Nil(t, arr.At(1))
		assert.Nil(t, arr.At(-1))
	})
}

func TestArrayReset(t *testing.T) {
	a := NewControl("", WithDefault(""))
	b := NewControl("", WithDefault(""))
	arr := NewArray([]*Control{a, b})

	arr.SetValue([]any{"x", "y"})
	a.MarkAsDirty()

	arr.Reset([]any{"r"})
	assert.Equal(t, "r", a.Value())
	assert.Equal(t, "", b.Value()) // past the reset slice, back to default
	assert.True(t, arr.Pristine())
}

func TestKindGuards(t *testing.T) {
	leaf := NewControl("")

	assert.Panics(t, func() { leaf.Push(NewControl("x")) })
	assert.Panics(t, func() { leaf.AddControl("a", NewControl("x")) })
	assert.Panics(t, func() { NewArray(nil).AddControl("a", NewControl("x")) })
	assert.Panics(t, func() { NewGroup(nil).Push(NewControl("x")) })

	SetChecksEnabled(false)
	defer SetChecksEnabled(true)
	assert.NotPanics(t, func() { leaf.Push(NewControl("x")) })
	assert.Equal(t, "", leaf.Value()) // untouched by the ignored call
}
