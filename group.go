package formtree

import (
	"slices"
	"sort"
)

// NewGroup creates a composite control aggregating named children into a
// map value. Initial children are registered in sorted key order (Go maps
// have no insertion order); controls added later keep insertion order.
func NewGroup(children map[string]*Control, opts ...Option) *Control {
	c := newControl(KindGroup)
	c.byName = make(map[string]*Control, len(children))

	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.RegisterControl(name, children[name])
	}

	for _, opt := range opts {
		opt(c)
	}
	c.updateValueAndValidity(updateOpts{onlySelf: true, emit: false, source: c})
	return c
}

// Names returns the group's child keys in iteration order.
func (c *Control) Names() []string {
	if !c.mustBeKind(KindGroup, "Names") {
		return nil
	}
	return slices.Clone(c.names)
}

// Contains reports whether the group has an enabled child under name.
func (c *Control) Contains(name string) bool {
	if !c.mustBeKind(KindGroup, "Contains") {
		return false
	}
	child, ok := c.byName[name]
	return ok && child.Enabled()
}

// RegisterControl links a child under name without recomputing the group.
// If the name is taken the existing child is returned unchanged; otherwise
// the new child is returned.
func (c *Control) RegisterControl(name string, child *Control) *Control {
	if !c.mustBeKind(KindGroup, "RegisterControl") {
		return child
	}
	if existing, ok := c.byName[name]; ok {
		return existing
	}
	c.byName[name] = child
	c.names = append(c.names, name)
	c.adopt(child)
	return child
}

// AddControl registers a child under name and recomputes the group.
func (c *Control) AddControl(name string, child *Control, opts ...UpdateOpt) {
	c.checkAffinity()
	c.RegisterControl(name, child)
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// RemoveControl detaches the child under name (clearing its parent link
// and cancelling any in-flight async validation) and recomputes the group.
// Unknown names are ignored.
func (c *Control) RemoveControl(name string, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindGroup, "RemoveControl") {
		return
	}
	if child, ok := c.byName[name]; ok {
		c.orphan(child)
		delete(c.byName, name)
		c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	}
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

// SetControl replaces the child under name, detaching any existing one. A
// nil child just removes the entry.
func (c *Control) SetControl(name string, child *Control, opts ...UpdateOpt) {
	c.checkAffinity()
	if !c.mustBeKind(KindGroup, "SetControl") {
		return
	}
	if existing, ok := c.byName[name]; ok {
		c.orphan(existing)
		delete(c.byName, name)
		c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	}
	if child != nil {
		c.byName[name] = child
		c.names = append(c.names, name)
		c.adopt(child)
	}
	c.updateValueAndValidity(c.updateOptions(opts))
	c.notifyCollectionChange()
}

func (c *Control) adopt(child *Control) {
	child.SetParent(c)
	child.registerOnCollectionChange(c.notifyCollectionChange)
}

func (c *Control) orphan(child *Control) {
	child.cancelExistingSubscription()
	child.registerOnCollectionChange(nil)
	child.SetParent(nil)
}

func (c *Control) setGroupValue(value any, o updateOpts) {
	if !c.mustBeKind(KindGroup, "SetValue") {
		return
	}
	m, ok := value.(map[string]any)
	if !ok {
		if ChecksEnabled() {
			c.structuralPanic("SetValue", "", "group value must be a map[string]any")
		}
		return
	}

	if ChecksEnabled() {
		if len(c.names) == 0 {
			c.structuralPanic("SetValue", "", "group has no registered children")
		}
		for _, name := range c.names {
			if _, ok := m[name]; !ok {
				c.structuralPanic("SetValue", name, "value is missing a key for a registered child")
			}
		}
		for name := range m {
			if _, ok := c.byName[name]; !ok {
				c.structuralPanic("SetValue", name, "value has a key with no registered child")
			}
		}
	}

	c.forEachChildNamed(func(name string, child *Control) {
		if v, ok := m[name]; ok {
			child.setValue(v, updateOpts{onlySelf: true, emit: o.emit, source: child})
		}
	})
	c.updateValueAndValidity(o)
}

func (c *Control) patchGroupValue(value any, o updateOpts) {
	if !c.mustBeKind(KindGroup, "PatchValue") {
		return
	}
	m, ok := value.(map[string]any)
	if !ok || m == nil {
		return
	}

	for name, v := range m {
		if child, ok := c.byName[name]; ok {
			child.patchValue(v, updateOpts{onlySelf: true, emit: o.emit, source: child})
		}
	}
	c.updateValueAndValidity(o)
}

func (c *Control) forEachChildNamed(fn func(string, *Control)) {
	for _, name := range slices.Clone(c.names) {
		if child, ok := c.byName[name]; ok {
			fn(name, child)
		}
	}
}
