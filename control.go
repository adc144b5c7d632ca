// Package formtree implements a form control tree: leaves, named-children
// groups and indexed-children arrays sharing one state machine for value,
// validity status, pristine/touched flags and sync/async validation, with
// per-node multicast change notification.
package formtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Control is one node of the form tree. The kind tag selects leaf, group
// or array behavior; the state machine is shared.
type Control struct {
	kind ControlKind
	id   uuid.UUID

	value        any
	defaultValue any
	status       Status
	errors       Errors
	pristine     bool
	touched      bool

	validators        []ValidatorFn
	asyncValidators   []AsyncValidatorFn
	composedValidator ValidatorFn
	composedAsync     AsyncValidatorFn

	// parent is a non-owning back-reference used only for upward
	// propagation; the parent holds the authoritative child collection.
	parent *Control

	// group children, iteration in insertion order
	names  []string
	byName map[string]*Control

	// array children
	items []*Control

	updateOn UpdateOn

	pendingAsync *pendingAsync
	asyncCancel  func()

	events        *Stream[Event]
	valueChanges  *Stream[any]
	statusChanges *Stream[Status]

	onCollectionChange func()

	pinned int64
}

func newControl(kind ControlKind) *Control {
	return &Control{
		kind:     kind,
		id:       uuid.New(),
		status:   StatusValid,
		pristine: true,
		events:   &Stream[Event]{},
	}
}

// NewControl creates a leaf control holding value.
func NewControl(value any, opts ...Option) *Control {
	c := newControl(KindLeaf)
	c.value = value
	for _, opt := range opts {
		opt(c)
	}
	c.updateValueAndValidity(updateOpts{onlySelf: true, emit: false, source: c})
	return c
}

// Kind returns the control's variant tag.
func (c *Control) Kind() ControlKind { return c.kind }

// ID returns the control's stable identity, used in events and errors.
func (c *Control) ID() uuid.UUID { return c.id }

func (c *Control) String() string {
	return fmt.Sprintf("%s(%s %s)", c.kind, c.status, c.id.String()[:8])
}

// Value returns the control's current value. For composites this excludes
// disabled children unless the composite itself is disabled; see RawValue.
func (c *Control) Value() any { return c.value }

// Status returns the control's current validity state.
func (c *Control) Status() Status { return c.status }

// Errors returns the control's current error map, nil when it has none.
func (c *Control) Errors() Errors { return c.errors }

// Valid reports status == VALID.
func (c *Control) Valid() bool { return c.status == StatusValid }

// Invalid reports status == INVALID.
func (c *Control) Invalid() bool { return c.status == StatusInvalid }

// Pending reports status == PENDING.
func (c *Control) Pending() bool { return c.status == StatusPending }

// Disabled reports status == DISABLED.
func (c *Control) Disabled() bool { return c.status == StatusDisabled }

// Enabled reports status != DISABLED.
func (c *Control) Enabled() bool { return c.status != StatusDisabled }

// Pristine reports the user has not changed the value since creation or
// the last reset.
func (c *Control) Pristine() bool { return c.pristine }

// Dirty is the inverse of Pristine.
func (c *Control) Dirty() bool { return !c.pristine }

// Touched reports the user has interacted with the control.
func (c *Control) Touched() bool { return c.touched }

// Untouched is the inverse of Touched.
func (c *Control) Untouched() bool { return !c.touched }

// Parent returns the composite containing this control, nil for a root.
func (c *Control) Parent() *Control { return c.parent }

// SetParent rebinds the control's back-reference. Composites call this when
// children are registered or detached; call it directly only when moving a
// control between trees manually.
func (c *Control) SetParent(p *Control) { c.parent = p }

// Root walks up to the top of the tree.
func (c *Control) Root() *Control {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// UpdateOn resolves the control's scheduling hint, inheriting from the
// nearest ancestor that sets one and defaulting to UpdateOnChange.
func (c *Control) UpdateOn() UpdateOn {
	if c.updateOn != "" {
		return c.updateOn
	}
	if c.parent != nil {
		return c.parent.UpdateOn()
	}
	return UpdateOnChange
}

// Pin records the current goroutine as the owner of this control's tree.
// While checks are enabled, every mutating call on any node of the tree
// must then come from that goroutine, otherwise it panics with an
// AffinityError. The guard is a no-op on wasm builds.
func (c *Control) Pin() {
	c.Root().pinned = currentGoroutineID()
}

func (c *Control) checkAffinity() {
	if !ChecksEnabled() {
		return
	}
	pinned := c.Root().pinned
	if pinned == 0 {
		return
	}
	if cur := currentGoroutineID(); cur != pinned {
		panic(&AffinityError{ControlID: c.id, Pinned: pinned, Current: cur})
	}
}

// Events returns the control's multicast event stream. All notifications
// (value, status, pristine, touched) flow through it as tagged events.
func (c *Control) Events() *Stream[Event] { return c.events }

// ValueChanges returns a stream of this control's values, a filtered
// projection of Events for consumers that only care about values.
func (c *Control) ValueChanges() *Stream[any] {
	if c.valueChanges == nil {
		c.valueChanges = &Stream[any]{}
		c.events.Subscribe(func(e Event) {
			if ve, ok := e.(ValueChangeEvent); ok {
				c.valueChanges.emit(ve.Value)
			}
		})
	}
	return c.valueChanges
}

// StatusChanges returns a stream of this control's statuses, a filtered
// projection of Events.
func (c *Control) StatusChanges() *Stream[Status] {
	if c.statusChanges == nil {
		c.statusChanges = &Stream[Status]{}
		c.events.Subscribe(func(e Event) {
			if se, ok := e.(StatusChangeEvent); ok {
				c.statusChanges.emit(se.Status)
			}
		})
	}
	return c.statusChanges
}

// SetValue replaces the control's value. On a group the value must be a
// map whose keys exactly match the children; on an array a slice of the
// same length. Mismatches panic with a StructuralError while checks are
// enabled, and degrade to PatchValue semantics otherwise.
func (c *Control) SetValue(value any, opts ...UpdateOpt) {
	c.checkAffinity()
	c.setValue(value, c.updateOptions(opts))
}

func (c *Control) setValue(value any, o updateOpts) {
	switch c.kind {
	case KindLeaf:
		c.value = value
		c.updateValueAndValidity(o)
	case KindGroup:
		c.setGroupValue(value, o)
	case KindArray:
		c.setArrayValue(value, o)
	}
}

// PatchValue updates the control leniently: on composites, keys or indices
// missing from value keep their current state and unknown keys are
// ignored. A nil value is a no-op.
func (c *Control) PatchValue(value any, opts ...UpdateOpt) {
	c.checkAffinity()
	c.patchValue(value, c.updateOptions(opts))
}

func (c *Control) patchValue(value any, o updateOpts) {
	switch c.kind {
	case KindLeaf:
		c.value = value
		c.updateValueAndValidity(o)
	case KindGroup:
		c.patchGroupValue(value, o)
	case KindArray:
		c.patchArrayValue(value, o)
	}
}

// Reset restores the control to value (or to defaults when value is nil),
// clears dirty and touched throughout the subtree, and recomputes.
func (c *Control) Reset(value any, opts ...UpdateOpt) {
	c.checkAffinity()
	o := c.updateOptions(opts)
	c.reset(value, o)
}

func (c *Control) reset(value any, o updateOpts) {
	switch c.kind {
	case KindLeaf:
		if value == nil {
			c.value = c.defaultValue
		} else {
			c.value = value
		}
		c.markAsPristine(o)
		c.markAsUntouched(o)
		c.updateValueAndValidity(o)
	case KindGroup:
		m, _ := value.(map[string]any)
		c.forEachChildNamed(func(name string, child *Control) {
			child.reset(m[name], updateOpts{onlySelf: true, emit: o.emit, source: o.source})
		})
		c.updatePristine(o)
		c.updateTouched(o)
		c.updateValueAndValidity(o)
	case KindArray:
		vs, _ := value.([]any)
		c.forEachChildIndexed(func(i int, child *Control) {
			var v any
			if i < len(vs) {
				v = vs[i]
			}
			child.reset(v, updateOpts{onlySelf: true, emit: o.emit, source: o.source})
		})
		c.updatePristine(o)
		c.updateTouched(o)
		c.updateValueAndValidity(o)
	}
}

// RawValue aggregates the subtree's value including disabled children.
func (c *Control) RawValue() any {
	switch c.kind {
	case KindGroup:
		out := make(map[string]any, len(c.names))
		for _, name := range c.names {
			out[name] = c.byName[name].RawValue()
		}
		return out
	case KindArray:
		out := make([]any, len(c.items))
		for i, child := range c.items {
			out[i] = child.RawValue()
		}
		return out
	}
	return c.value
}

// UpdateValueAndValidity recomputes the control's value, errors and status
// and, unless OnlySelf is given, re-asserts the result up the ancestor
// chain.
func (c *Control) UpdateValueAndValidity(opts ...UpdateOpt) {
	c.checkAffinity()
	c.updateValueAndValidity(c.updateOptions(opts))
}

// updateValueAndValidity is the single recomputation routine every
// mutation funnels through. Events for this node fire only after value,
// errors and status have all reached their new state, and before the
// parent recomputes.
func (c *Control) updateValueAndValidity(o updateOpts) {
	c.setInitialStatus()
	c.updateValue()

	if c.Enabled() {
		owed := c.cancelExistingSubscription()
		c.errors = c.runValidator()
		c.status = c.calculateStatus()

		if c.status == StatusValid || c.status == StatusPending {
			c.runAsyncValidator(owed, o.emit)
		}
	}

	if o.emit {
		c.events.emit(ValueChangeEvent{Value: c.value, Source: o.source})
		c.events.emit(StatusChangeEvent{Status: c.status, Source: o.source})
	}

	if c.parent != nil && !o.onlySelf {
		c.parent.updateValueAndValidity(o)
	}
}

func (c *Control) setInitialStatus() {
	if c.allControlsDisabled() {
		c.status = StatusDisabled
	} else {
		c.status = StatusValid
	}
}

func (c *Control) updateValue() {
	switch c.kind {
	case KindGroup:
		out := make(map[string]any, len(c.names))
		for _, name := range c.names {
			child := c.byName[name]
			if child.Enabled() || c.Disabled() {
				out[name] = child.value
			}
		}
		c.value = out
	case KindArray:
		out := make([]any, 0, len(c.items))
		for _, child := range c.items {
			if child.Enabled() || c.Disabled() {
				out = append(out, child.value)
			}
		}
		c.value = out
	}
}

// calculateStatus ordering is significant: disabled overrides everything,
// an own error overrides children, pending outranks child invalid.
func (c *Control) calculateStatus() Status {
	switch {
	case c.allControlsDisabled():
		return StatusDisabled
	case c.errors != nil:
		return StatusInvalid
	case c.pendingAsync != nil || c.anyControlsHaveStatus(StatusPending):
		return StatusPending
	case c.anyControlsHaveStatus(StatusInvalid):
		return StatusInvalid
	}
	return StatusValid
}

func (c *Control) runValidator() Errors {
	if c.composedValidator == nil {
		return nil
	}
	return c.composedValidator(c)
}

func (c *Control) runAsyncValidator(owed, emit bool) {
	if c.composedAsync == nil {
		return
	}

	c.status = StatusPending
	c.pendingAsync = &pendingAsync{emitEvent: emit}

	d := c.composedAsync(c)
	cancel := d.then(func(errs Errors) {
		c.pendingAsync = nil
		c.asyncCancel = nil
		// a canceled prior run that had promised an emission transfers
		// that obligation to this resolution
		c.setErrorsAndPropagate(errs, emit || owed, c)
	})
	if c.pendingAsync != nil { // still in flight, resolution wasn't synchronous
		c.asyncCancel = cancel
	}
}

// cancelExistingSubscription drops the in-flight async run and reports
// whether that run still owed its subscribers an emission.
func (c *Control) cancelExistingSubscription() bool {
	if c.asyncCancel == nil {
		return false
	}
	c.asyncCancel()
	c.asyncCancel = nil

	owed := c.pendingAsync != nil && c.pendingAsync.emitEvent
	c.pendingAsync = nil
	return owed
}

// SetErrors imperatively overrides the control's error map (server-side
// validation, async results) and recomputes status up the ancestor chain
// without re-running synchronous validators.
func (c *Control) SetErrors(errs Errors, opts ...UpdateOpt) {
	c.checkAffinity()
	o := c.updateOptions(opts)
	c.setErrorsAndPropagate(errs, o.emit, o.source)
}

func (c *Control) setErrorsAndPropagate(errs Errors, emit bool, source *Control) {
	c.errors = errs
	c.updateControlsErrors(emit, source)
}

func (c *Control) updateControlsErrors(emit bool, source *Control) {
	c.status = c.calculateStatus()
	if emit {
		c.events.emit(StatusChangeEvent{Status: c.status, Source: source})
	}
	if c.parent != nil {
		c.parent.updateControlsErrors(emit, source)
	}
}

// Disable marks the whole subtree DISABLED, clears errors, cancels any
// in-flight async validation, and recomputes ancestors.
func (c *Control) Disable(opts ...UpdateOpt) {
	c.checkAffinity()
	o := c.updateOptions(opts)
	c.disable(o)
}

func (c *Control) disable(o updateOpts) {
	// remember whether the parent's dirtiness came from a direct call
	// rather than from its children, before this subtree changes
	skipPristineCheck := c.parentMarkedDirty(o.onlySelf)

	c.cancelExistingSubscription()
	c.status = StatusDisabled
	c.errors = nil
	c.forEachChild(func(child *Control) {
		child.disable(updateOpts{onlySelf: true, emit: o.emit, source: o.source})
	})
	c.updateValue()

	if o.emit {
		c.events.emit(ValueChangeEvent{Value: c.value, Source: o.source})
		c.events.emit(StatusChangeEvent{Status: c.status, Source: o.source})
	}

	c.updateAncestors(o, skipPristineCheck)
}

// Enable lifts DISABLED from the subtree and revalidates it bottom-up.
func (c *Control) Enable(opts ...UpdateOpt) {
	c.checkAffinity()
	o := c.updateOptions(opts)
	c.enable(o)
}

func (c *Control) enable(o updateOpts) {
	skipPristineCheck := c.parentMarkedDirty(o.onlySelf)

	c.status = StatusValid
	c.forEachChild(func(child *Control) {
		child.enable(updateOpts{onlySelf: true, emit: o.emit, source: o.source})
	})
	c.updateValueAndValidity(updateOpts{onlySelf: true, emit: o.emit, source: o.source})

	c.updateAncestors(o, skipPristineCheck)
}

func (c *Control) updateAncestors(o updateOpts, skipPristineCheck bool) {
	if c.parent == nil || o.onlySelf {
		return
	}
	c.parent.updateValueAndValidity(o)
	if !skipPristineCheck {
		c.parent.updatePristine(updateOpts{emit: o.emit, source: c})
	}
	c.parent.updateTouched(updateOpts{emit: o.emit, source: c})
}

// parentMarkedDirty reports whether the parent's dirty flag was forced by
// a direct markAsDirty call rather than derived from its children. In that
// case the ancestor pristine recalculation is skipped so disable/enable
// cycles don't silently revert the forced flag.
func (c *Control) parentMarkedDirty(onlySelf bool) bool {
	return !onlySelf && c.parent != nil && c.parent.Dirty() && !c.parent.anyControlsDirty()
}

// MarkAsTouched flags the control and its ancestors as touched.
func (c *Control) MarkAsTouched(opts ...UpdateOpt) {
	c.checkAffinity()
	c.markAsTouched(c.updateOptions(opts))
}

func (c *Control) markAsTouched(o updateOpts) {
	changed := !c.touched
	c.touched = true

	if c.parent != nil && !o.onlySelf {
		c.parent.markAsTouched(o)
	}
	if changed && o.emit {
		c.events.emit(TouchedChangeEvent{Touched: true, Source: o.source})
	}
}

// MarkAllAsTouched flags the control and every descendant as touched.
func (c *Control) MarkAllAsTouched(opts ...UpdateOpt) {
	c.checkAffinity()
	o := c.updateOptions(opts)
	c.markAllAsTouched(o)
}

func (c *Control) markAllAsTouched(o updateOpts) {
	c.markAsTouched(updateOpts{onlySelf: true, emit: o.emit, source: o.source})
	c.forEachChild(func(child *Control) { child.markAllAsTouched(o) })
}

// MarkAsUntouched clears touched on the subtree, then re-derives each
// ancestor's flag from all of its children.
func (c *Control) MarkAsUntouched(opts ...UpdateOpt) {
	c.checkAffinity()
	c.markAsUntouched(c.updateOptions(opts))
}

func (c *Control) markAsUntouched(o updateOpts) {
	changed := c.touched
	c.touched = false

	c.forEachChild(func(child *Control) {
		child.markAsUntouched(updateOpts{onlySelf: true, emit: o.emit, source: o.source})
	})
	if c.parent != nil && !o.onlySelf {
		c.parent.updateTouched(o)
	}
	if changed && o.emit {
		c.events.emit(TouchedChangeEvent{Touched: false, Source: o.source})
	}
}

// updateTouched re-derives the flag: a composite is touched iff any enabled
// child is.
func (c *Control) updateTouched(o updateOpts) {
	newTouched := c.anyControlsTouched()
	changed := c.touched != newTouched
	c.touched = newTouched

	if c.parent != nil && !o.onlySelf {
		c.parent.updateTouched(o)
	}
	if changed && o.emit {
		c.events.emit(TouchedChangeEvent{Touched: c.touched, Source: o.source})
	}
}

// MarkAsDirty flags the control and its ancestors as dirty.
func (c *Control) MarkAsDirty(opts ...UpdateOpt) {
	c.checkAffinity()
	c.markAsDirty(c.updateOptions(opts))
}

func (c *Control) markAsDirty(o updateOpts) {
	changed := c.pristine
	c.pristine = false

	if c.parent != nil && !o.onlySelf {
		c.parent.markAsDirty(o)
	}
	if changed && o.emit {
		c.events.emit(PristineChangeEvent{Pristine: false, Source: o.source})
	}
}

// MarkAsPristine clears dirty on the subtree, then re-derives each
// ancestor's flag from all of its children. Dirty is a monotonic OR over
// children on the way up; pristine must be reverified, hence the
// asymmetry.
func (c *Control) MarkAsPristine(opts ...UpdateOpt) {
	c.checkAffinity()
	c.markAsPristine(c.updateOptions(opts))
}

func (c *Control) markAsPristine(o updateOpts) {
	changed := !c.pristine
	c.pristine = true

	c.forEachChild(func(child *Control) {
		child.markAsPristine(updateOpts{onlySelf: true, emit: o.emit, source: o.source})
	})
	if c.parent != nil && !o.onlySelf {
		c.parent.updatePristine(o)
	}
	if changed && o.emit {
		c.events.emit(PristineChangeEvent{Pristine: true, Source: o.source})
	}
}

func (c *Control) updatePristine(o updateOpts) {
	newPristine := !c.anyControlsDirty()
	changed := c.pristine != newPristine
	c.pristine = newPristine

	if c.parent != nil && !o.onlySelf {
		c.parent.updatePristine(o)
	}
	if changed && o.emit {
		c.events.emit(PristineChangeEvent{Pristine: c.pristine, Source: o.source})
	}
}

// MarkAsPending forces status to PENDING on this control and, unless
// OnlySelf is given, its ancestors.
func (c *Control) MarkAsPending(opts ...UpdateOpt) {
	c.checkAffinity()
	c.markAsPending(c.updateOptions(opts))
}

func (c *Control) markAsPending(o updateOpts) {
	c.status = StatusPending
	if o.emit {
		c.events.emit(StatusChangeEvent{Status: c.status, Source: o.source})
	}
	if c.parent != nil && !o.onlySelf {
		c.parent.markAsPending(o)
	}
}

// Get walks a dot-delimited path ("address.city", "aliases.1") downward
// and returns the descendant, or nil if any segment is absent.
func (c *Control) Get(path string) *Control {
	if path == "" {
		return nil
	}
	return c.GetPath(strings.Split(path, ".")...)
}

// GetPath is Get with pre-split segments.
func (c *Control) GetPath(segments ...string) *Control {
	cur := c
	for _, seg := range segments {
		if cur == nil {
			return nil
		}
		cur = cur.find(seg)
	}
	return cur
}

func (c *Control) find(segment string) *Control {
	switch c.kind {
	case KindGroup:
		return c.byName[segment]
	case KindArray:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(c.items) {
			return nil
		}
		return c.items[i]
	}
	return nil
}

// GetError returns the detail for an error kind on this control, or on the
// descendant at path when given. Nil when the error is absent.
func (c *Control) GetError(code string, path ...string) any {
	ctrl := c
	if len(path) > 0 {
		ctrl = c.GetPath(path...)
	}
	if ctrl == nil || ctrl.errors == nil {
		return nil
	}
	return ctrl.errors[code]
}

// HasError reports whether GetError finds the error kind.
func (c *Control) HasError(code string, path ...string) bool {
	return c.GetError(code, path...) != nil
}

// child iteration: always over a snapshot, so callbacks may mutate
// membership reentrantly

func (c *Control) forEachChild(fn func(*Control)) {
	switch c.kind {
	case KindGroup:
		c.forEachChildNamed(func(_ string, child *Control) { fn(child) })
	case KindArray:
		c.forEachChildIndexed(func(_ int, child *Control) { fn(child) })
	}
}

func (c *Control) anyControls(pred func(*Control) bool) bool {
	found := false
	c.forEachChild(func(child *Control) {
		if !found && child.Enabled() && pred(child) {
			found = true
		}
	})
	return found
}

func (c *Control) anyControlsHaveStatus(s Status) bool {
	return c.anyControls(func(child *Control) bool { return child.status == s })
}

func (c *Control) anyControlsDirty() bool {
	return c.anyControls(func(child *Control) bool { return child.Dirty() })
}

func (c *Control) anyControlsTouched() bool {
	return c.anyControls(func(child *Control) bool { return child.touched })
}

func (c *Control) allControlsDisabled() bool {
	switch c.kind {
	case KindGroup:
		for _, name := range c.names {
			if c.byName[name].Enabled() {
				return false
			}
		}
		return len(c.names) > 0 || c.Disabled()
	case KindArray:
		for _, child := range c.items {
			if child.Enabled() {
				return false
			}
		}
		return len(c.items) > 0 || c.Disabled()
	}
	return c.Disabled()
}

func (c *Control) registerOnCollectionChange(fn func()) {
	c.onCollectionChange = fn
}

func (c *Control) notifyCollectionChange() {
	if c.onCollectionChange != nil {
		c.onCollectionChange()
	}
}
