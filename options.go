package formtree

import "slices"

// Option configures a control at construction time.
type Option func(*Control)

// WithValidators sets the control's synchronous validators.
func WithValidators(fns ...ValidatorFn) Option {
	return func(c *Control) {
		c.validators = slices.Clone(fns)
		c.composedValidator = Compose(c.validators...)
	}
}

// WithAsyncValidators sets the control's asynchronous validators.
func WithAsyncValidators(fns ...AsyncValidatorFn) Option {
	return func(c *Control) {
		c.asyncValidators = slices.Clone(fns)
		c.composedAsync = ComposeAsync(c.asyncValidators...)
	}
}

// WithUpdateOn sets the control's own update-on hint instead of inheriting
// it from an ancestor.
func WithUpdateOn(u UpdateOn) Option {
	return func(c *Control) { c.updateOn = u }
}

// WithDefault sets the value a leaf control returns to on Reset(nil).
// Without it the reset target is nil.
func WithDefault(v any) Option {
	return func(c *Control) { c.defaultValue = v }
}

type updateOpts struct {
	onlySelf bool
	emit     bool
	source   *Control
}

// UpdateOpt tunes propagation of a single mutating call.
type UpdateOpt func(*updateOpts)

// OnlySelf limits the call to this control; ancestors are not recomputed.
func OnlySelf() UpdateOpt {
	return func(o *updateOpts) { o.onlySelf = true }
}

// Silent suppresses every notification the call would otherwise emit.
func Silent() UpdateOpt {
	return func(o *updateOpts) { o.emit = false }
}

func (c *Control) updateOptions(opts []UpdateOpt) updateOpts {
	o := updateOpts{emit: true, source: c}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
