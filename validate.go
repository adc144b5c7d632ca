package formtree

import (
	"reflect"
	"slices"
)

// ValidatorFn checks a control synchronously and returns an error map, or
// nil when the value is acceptable. Validators must not mutate the control.
type ValidatorFn func(c *Control) Errors

// AsyncValidatorFn checks a control asynchronously. The returned Deferred
// settles with an error map or nil. A validator whose underlying operation
// fails (rather than rejects the value) should resolve with a reserved
// error kind instead of panicking; the state machine does not intercept
// panics.
type AsyncValidatorFn func(c *Control) *Deferred

// Compose merges validators into one that runs each in order and merges
// their error maps. Later keys overwrite earlier ones on collision.
// Returns nil when no validators are given.
func Compose(fns ...ValidatorFn) ValidatorFn {
	fns = presentFns(fns)
	if len(fns) == 0 {
		return nil
	}

	return func(c *Control) Errors {
		var merged Errors
		for _, fn := range fns {
			merged = mergeErrors(merged, fn(c))
		}
		return merged
	}
}

// ComposeAsync merges async validators into one whose Deferred settles when
// all of them have, with their error maps merged like Compose. Returns nil
// when no validators are given.
func ComposeAsync(fns ...AsyncValidatorFn) AsyncValidatorFn {
	fns = presentFns(fns)
	if len(fns) == 0 {
		return nil
	}

	return func(c *Control) *Deferred {
		out := NewDeferred()
		results := make([]Errors, len(fns))
		remaining := len(fns)

		for i, fn := range fns {
			i, fn := i, fn
			fn(c).then(func(errs Errors) {
				results[i] = errs
				remaining--
				if remaining == 0 {
					var merged Errors
					for _, r := range results {
						merged = mergeErrors(merged, r)
					}
					out.Resolve(merged)
				}
			})
		}

		return out
	}
}

func mergeErrors(dst, src Errors) Errors {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Errors, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func presentFns[F any](fns []F) []F {
	return slices.DeleteFunc(slices.Clone(fns), func(fn F) bool {
		return reflect.ValueOf(fn).IsNil()
	})
}

// fnPointer gives an identity for validator membership checks; Go funcs
// are not comparable with ==.
func fnPointer[F any](fn F) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func containsFn[F any](fns []F, fn F) bool {
	return slices.ContainsFunc(fns, func(x F) bool { return fnPointer(x) == fnPointer(fn) })
}

func addUniqueFns[F any](dst []F, fns []F) []F {
	for _, fn := range fns {
		if !containsFn(dst, fn) {
			dst = append(dst, fn)
		}
	}
	return dst
}

func removeFns[F any](dst []F, fns []F) []F {
	return slices.DeleteFunc(dst, func(x F) bool { return containsFn(fns, x) })
}

// SetValidators replaces the control's synchronous validators. The control
// is not revalidated; call UpdateValueAndValidity for the change to take
// effect.
func (c *Control) SetValidators(fns ...ValidatorFn) {
	c.validators = presentFns(fns)
	c.composedValidator = Compose(c.validators...)
}

// AddValidators appends validators not already present (by function
// identity).
func (c *Control) AddValidators(fns ...ValidatorFn) {
	c.validators = addUniqueFns(c.validators, presentFns(fns))
	c.composedValidator = Compose(c.validators...)
}

// RemoveValidators removes validators by function identity.
func (c *Control) RemoveValidators(fns ...ValidatorFn) {
	c.validators = removeFns(c.validators, fns)
	c.composedValidator = Compose(c.validators...)
}

// HasValidator reports whether fn is registered, by function identity.
func (c *Control) HasValidator(fn ValidatorFn) bool {
	return containsFn(c.validators, fn)
}

// ClearValidators removes all synchronous validators.
func (c *Control) ClearValidators() {
	c.validators = nil
	c.composedValidator = nil
}

// SetAsyncValidators replaces the control's async validators. Like
// SetValidators, it does not revalidate.
func (c *Control) SetAsyncValidators(fns ...AsyncValidatorFn) {
	c.asyncValidators = presentFns(fns)
	c.composedAsync = ComposeAsync(c.asyncValidators...)
}

// AddAsyncValidators appends async validators not already present.
func (c *Control) AddAsyncValidators(fns ...AsyncValidatorFn) {
	c.asyncValidators = addUniqueFns(c.asyncValidators, presentFns(fns))
	c.composedAsync = ComposeAsync(c.asyncValidators...)
}

// RemoveAsyncValidators removes async validators by function identity.
func (c *Control) RemoveAsyncValidators(fns ...AsyncValidatorFn) {
	c.asyncValidators = removeFns(c.asyncValidators, fns)
	c.composedAsync = ComposeAsync(c.asyncValidators...)
}

// HasAsyncValidator reports whether fn is registered, by function identity.
func (c *Control) HasAsyncValidator(fn AsyncValidatorFn) bool {
	return containsFn(c.asyncValidators, fn)
}

// ClearAsyncValidators removes all async validators.
func (c *Control) ClearAsyncValidators() {
	c.asyncValidators = nil
	c.composedAsync = nil
}

// Validators returns the raw synchronous validator list as supplied.
func (c *Control) Validators() []ValidatorFn {
	return slices.Clone(c.validators)
}

// AsyncValidators returns the raw async validator list as supplied.
func (c *Control) AsyncValidators() []AsyncValidatorFn {
	return slices.Clone(c.asyncValidators)
}
