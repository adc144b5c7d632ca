package formtree

import "slices"

// NewArray creates a composite control aggregating ordered children into a
// slice value.
func NewArray(children []*Control, opts ...Option) *Control {
	c := newControl(KindArray)
	c.items = make([]*Control, 0, len(children))
	for _, child := range children {
		c.items = append(c.items, child)
		c.adopt(child)
	}

	for _, opt := range opts {
		opt(c)
	}
	c.updateValueAndValidity(updateOpts{onlySelf: true, emit: false, source: c})
	return c
}

// Len returns the number of children, enabled or not.
func (c *Control) Len() int {
	if !c.mustBeKind(KindArray, "Len") {
		return 0
	}
	return len(c.items)
}

// At returns the child at index i, or nil when out of range.
func (c *Control) At(i int) *Control {
	if !c.mustBeKind(KindArray, "At") {
		return nil
	}
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Push appends a child and recomputes the array.
func (c *Control) Push(child *Control, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindArray, "Push") {
		return
	}
	c.items = append(c.items, child)
	c.adopt(child)
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// Insert places a child at index i, shifting later children up. Indices
// out of range clamp to the ends.
func (c *Control) Insert(i int, child *Control, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindArray, "Insert") {
		return
	}
	i = clampIndex(i, len(c.items))
	c.items = slices.Insert(c.items, i, child)
	c.adopt(child)
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// RemoveAt detaches the child at index i (clearing its parent link and
// cancelling any in-flight async validation). Out-of-range indices are
// ignored.
func (c *Control) RemoveAt(i int, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindArray, "RemoveAt") {
		return
	}
	if i >= 0 && i < len(c.items) {
		c.orphan(c.items[i])
		c.items = slices.Delete(c.items, i, i+1)
	}
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// SetControlAt replaces the child at index i, detaching the existing one.
// A nil child removes the entry.
func (c *Control) SetControlAt(i int, child *Control, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindArray, "SetControlAt") {
		return
	}
	if i >= 0 && i < len(c.items) {
		c.orphan(c.items[i])
		if child == nil {
			c.items = slices.Delete(c.items, i, i+1)
		} else {
			c.items[i] = child
			c.adopt(child)
		}
	} else if child != nil {
		c.items = append(c.items, child)
		c.adopt(child)
	}
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// Clear detaches every child and recomputes the array.
func (c *Control) Clear(opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindArray, "Clear") {
		return
	}
	for _, child := range c.items {
		c.orphan(child)
	}
	c.items = nil
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

func (c *Control) setArrayValue(value any, o updateOpts) {
	if !c.mustBeKind(KindArray, "SetValue") {
		return
	}
	vs, ok := value.([]any)
	if !ok {
		if ChecksEnabled() {
			c.structuralPanic("SetValue", "", "array value must be a []any")
		}
		return
	}

	if ChecksEnabled() {
		if len(c.items) == 0 {
			c.structuralPanic("SetValue", "", "array has no registered children")
		}
		if len(vs) != len(c.items) {
			c.structuralPanic("SetValue", "", "value length does not match the number of children")
		}
	}

	c.forEachChildIndexed(func(i int, child *Control) {
		if i < len(vs) {
			child.setValue(vs[i], updateOpts{onlySelf: true, emit: o.emit, source: child})
		}
	})
	c.updateValueAndValidity(o)
}

func (c *Control) patchArrayValue(value any, o updateOpts) {
	if !c.mustBeKind(KindArray, "PatchValue") {
		return
	}
	vs, ok := value.([]any)
	if !ok || vs == nil {
		return
	}

	for i, v := range vs {
		if i >= len(c.items) {
			break
		}
		c.items[i].patchValue(v, updateOpts{onlySelf: true, emit: o.emit, source: c.items[i]})
	}
	c.updateValueAndValidity(o)
}

func (c *Control) forEachChildIndexed(fn func(int, *Control)) {
	for i, child := range slices.Clone(c.items) {
		fn(i, child)
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
