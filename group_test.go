package formtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAggregation(t *testing.T) {
	t.Run("value folds enabled children", func(t *testing.T) {
		name := NewControl("ada")
		age := NewControl(36)
		g := NewGroup(map[string]*Control{"name": name, "age": age})

		assert.Equal(t, map[string]any{"name": "ada", "age": 36}, g.Value())

		age.Disable()
		assert.Equal(t, map[string]any{"name": "ada"}, g.Value())
	})

	t.Run("raw value includes disabled children", func(t *testing.T) {
		name := NewControl("ada")
		age := NewControl(36)
		g := NewGroup(map[string]*Control{"name": name, "age": age})

		age.Disable()
		assert.Equal(t, map[string]any{"name": "ada", "age": 36}, g.RawValue())
	})

	t.Run("disabled group aggregates everything", func(t *testing.T) {
		name := NewControl("ada")
		age := NewControl(36)
		g := NewGroup(map[string]*Control{"name": name, "age": age})

		age.Disable()
		g.Disable()
		assert.Equal(t, map[string]any{"name": "ada", "age": 36}, g.Value())
	})

	t.Run("validity composition", func(t *testing.T) {
		a := NewControl("x", WithValidators(requiredFn))
		b := NewControl("y", WithValidators(requiredFn))
		g := NewGroup(map[string]*Control{"a": a, "b": b})
		assert.True(t, g.Valid())

		a.SetValue("")
		assert.True(t, g.Invalid())
		assert.Nil(t, g.Errors()) // the error lives on the child

		a.SetValue("x")
		assert.True(t, g.Valid())
	})

	t.Run("own validator outranks children pending", func(t *testing.T) {
		pending := NewControl("")
		pending.SetAsyncValidators(func(*Control) *Deferred { return NewDeferred() })
		g := NewGroup(map[string]*Control{"p": pending},
			WithValidators(func(*Control) Errors { return Errors{"broken": true} }))

		pending.UpdateValueAndValidity()
		require.Equal(t, StatusPending, pending.Status())
		assert.Equal(t, StatusInvalid, g.Status())
	})
}

func TestGroupSetValue(t *testing.T) {
	t.Run("strict round trip", func(t *testing.T) {
		g := NewGroup(map[string]*Control{
			"a": NewControl(""),
			"b": NewControl(""),
		})

		g.SetValue(map[string]any{"a": "x", "b": "y"})
		assert.Equal(t, map[string]any{"a": "x", "b": "y"}, g.RawValue())
	})

	t.Run("missing key panics", func(t *testing.T) {
		g := NewGroup(map[string]*Control{
			"a": NewControl(""),
			"b": NewControl(""),
		})

		assert.PanicsWithError(t,
			(&StructuralError{
				Op: "SetValue", ControlID: g.ID(), Key: "b",
				Reason: "value is missing a key for a registered child",
			}).Error(),
			func() { g.SetValue(map[string]any{"a": "x"}) })
	})

	t.Run("unknown key panics", func(t *testing.T) {
		g := NewGroup(map[string]*Control{"a": NewControl("")})

		assert.Panics(t, func() {
			g.SetValue(map[string]any{"a": "x", "zz": 1})
		})
	})

	t.Run("empty group panics", func(t *testing.T) {
		g := NewGroup(nil)
		assert.Panics(t, func() { g.SetValue(map[string]any{}) })
	})

	t.Run("aborted call leaves state untouched", func(t *testing.T) {
		a := NewControl("old")
		g := NewGroup(map[string]*Control{"a": a, "b": NewControl("")})

		assert.Panics(t, func() { g.SetValue(map[string]any{"a": "new"}) })
		assert.Equal(t, "old", a.Value())
	})

	t.Run("degrades to patch with checks off", func(t *testing.T) {
		SetChecksEnabled(false)
		defer SetChecksEnabled(true)

		a := NewControl("")
		g := NewGroup(map[string]*Control{"a": a, "b": NewControl("")})

		g.SetValue(map[string]any{"a": "x"})
		assert.Equal(t, "x", a.Value())
	})
}

func TestGroupPatchValue(t *testing.T) {
	t.Run("ignores missing and unknown keys", func(t *testing.T) {
		a := NewControl("keep")
		b := NewControl("old")
		g := NewGroup(map[string]*Control{"a": a, "b": b})

		g.PatchValue(map[string]any{"b": "new", "zz": 1})
		assert.Equal(t, "keep", a.Value())
		assert.Equal(t, "new", b.Value())
	})

	t.Run("nil is a no-op", func(t *testing.T) {
		g := NewGroup(map[string]*Control{"a": NewControl("v")})

		count := 0
		g.Events().Subscribe(func(Event) { count++ })

		g.PatchValue(nil)
		assert.Zero(t, count)
		assert.Equal(t, map[string]any{"a": "v"}, g.Value())
	})

	t.Run("patches nested composites", func(t *testing.T) {
		city := NewControl("")
		g := NewGroup(map[string]*Control{
			"address": NewGroup(map[string]*Control{"city": city}),
		})

		g.PatchValue(map[string]any{"address": map[string]any{"city": "Paris"}})
		assert.Equal(t, "Paris", city.Value())
		assert.Equal(t, map[string]any{"address": map[string]any{"city": "Paris"}}, g.Value())
	})
}

func TestGroupReset(t *testing.T) {
	a := NewControl("", WithDefault(""))
	b := NewControl(0)
	g := NewGroup(map[string]*Control{"a": a, "b": b})

	g.SetValue(map[string]any{"a": "x", "b": 5})
	a.MarkAsDirty()
	a.MarkAsTouched()

	g.Reset(map[string]any{"a": "r"})
	assert.Equal(t, "r", a.Value())
	assert.Nil(t, b.Value()) // no slice of the reset value, no default
	assert.True(t, g.Pristine())
	assert.True(t, a.Pristine())
	assert.True(t, a.Untouched())
}

func TestGroupMembership(t *testing.T) {
	t.Run("add and remove recompute", func(t *testing.T) {
		g := NewGroup(map[string]*Control{"a": NewControl(1)})

		b := NewControl(2)
		g.AddControl("b", b)
		assert.Same(t, g, b.Parent())
		assert.Equal(t, map[string]any{"a": 1, "b": 2}, g.Value())

		g.RemoveControl("b")
		assert.Nil(t, b.Parent())
		assert.Equal(t, map[string]any{"a": 1}, g.Value())
	})

	t.Run("register keeps existing child", func(t *testing.T) {
		a := NewControl(1)
		g := NewGroup(map[string]*Control{"a": a})

		got := g.RegisterControl("a", NewControl(99))
		assert.Same(t, a, got)
	})

	t.Run("set control replaces and detaches", func(t *testing.T) {
		old := NewControl(1)
		g := NewGroup(map[string]*Control{"a": old})

		repl := NewControl(2)
		g.SetControl("a", repl)
		assert.Nil(t, old.Parent())
		assert.Same(t, g, repl.Parent())
		assert.Equal(t, map[string]any{"a": 2}, g.Value())

		g.SetControl("a", nil)
		assert.Equal(t, map[string]any{}, g.Value())
	})

	t.Run("remove cancels in-flight async validation", func(t *testing.T) {
		d := NewDeferred()
		child := NewControl("")
		child.SetAsyncValidators(func(*Control) *Deferred { return d })
		g := NewGroup(map[string]*Control{"child": child})

		child.UpdateValueAndValidity()
		require.Equal(t, StatusPending, child.Status())

		g.RemoveControl("child")
		d.Resolve(Errors{"late": true})
		assert.Nil(t, child.Errors())
	})

	t.Run("contains reflects enablement", func(t *testing.T) {
		a := NewControl(1)
		g := NewGroup(map[string]*Control{"a": a})

		assert.True(t, g.Contains("a"))
		a.Disable()
		assert.False(t, g.Contains("a"))
		assert.False(t, g.Contains("zz"))
	})

	t.Run("names keep insertion order after construction", func(t *testing.T) {
		g := NewGroup(map[string]*Control{"b": NewControl(1), "a": NewControl(2)})
		g.AddControl("0first", NewControl(3))

		assert.Equal(t, []string{"a", "b", "0first"}, g.Names())
	})
}

func TestGroupDisableEnableScenario(t *testing.T) {
	name := NewControl("")
	age := NewControl(0)
	g := NewGroup(map[string]*Control{"name": name, "age": age})

	g.Disable()
	assert.Equal(t, StatusDisabled, g.Status())
	assert.Equal(t, StatusDisabled, g.Get("name").Status())

	g.Enable()
	assert.Equal(t, StatusValid, g.Status())
	assert.Equal(t, StatusValid, g.Get("name").Status())
}

func TestGetPath(t *testing.T) {
	city := NewControl("Lyon")
	alias0 := NewControl("grace")
	alias1 := NewControl("hopper")
	root := NewGroup(map[string]*Control{
		"address": NewGroup(map[string]*Control{"city": city}),
		"aliases": NewArray([]*Control{alias0, alias1}),
	})

	assert.Same(t, city, root.Get("address.city"))
	assert.Same(t, alias1, root.Get("aliases.1"))
	assert.Same(t, alias0, root.GetPath("aliases", "0"))

	assert.Nil(t, root.Get("address.zip"))
	assert.Nil(t, root.Get("aliases.7"))
	assert.Nil(t, root.Get("aliases.x"))
	assert.Nil(t, root.Get(""))
	assert.Nil(t, city.Get("anything"))
}

func TestReentrantMutation(t *testing.T) {
	// subscribers may add controls while an emission is in flight
	g := NewGroup(map[string]*Control{"a": NewControl(1)})

	added := false
	g.Events().Subscribe(func(e Event) {
		if _, ok := e.(ValueChangeEvent); ok && !added {
			added = true
			g.AddControl("b", NewControl(2), Silent())
		}
	})

	g.Get("a").SetValue(10)
	assert.NotNil(t, g.Get("b"))
	assert.Equal(t, map[string]any{"a": 10, "b": 2}, g.RawValue())
}
