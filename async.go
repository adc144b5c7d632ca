package formtree

import "slices"

// Deferred is the promise-like result of an async validator: it settles at
// most once with an error map (nil meaning valid).
//
// The tree is a cooperative single-threaded structure, so Resolve must be
// called from the goroutine that owns the tree. An adapter that performs
// real I/O should hop back to that goroutine (however the host application
// schedules work) before resolving.
type Deferred struct {
	settled bool
	errs    Errors
	subs    []*deferredSub
}

type deferredSub struct {
	fn       func(Errors)
	canceled bool
}

// NewDeferred creates an unsettled Deferred.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Resolved returns a Deferred that has already settled with errs. Useful
// for async validators that can sometimes answer synchronously.
func Resolved(errs Errors) *Deferred {
	return &Deferred{settled: true, errs: errs}
}

// Resolve settles the Deferred and notifies subscribers. Calls after the
// first are ignored.
func (d *Deferred) Resolve(errs Errors) {
	if d.settled {
		return
	}
	d.settled = true
	d.errs = errs

	subs := d.subs
	d.subs = nil
	for _, sub := range subs {
		if !sub.canceled {
			sub.fn(errs)
		}
	}
}

// Settled reports whether the Deferred has resolved.
func (d *Deferred) Settled() bool { return d.settled }

// then subscribes to the settlement. If already settled, fn runs
// immediately. The returned cancel detaches fn without settling.
func (d *Deferred) then(fn func(Errors)) (cancel func()) {
	if d.settled {
		fn(d.errs)
		return func() {}
	}

	sub := &deferredSub{fn: fn}
	d.subs = append(d.subs, sub)

	return func() {
		sub.canceled = true
		d.subs = slices.DeleteFunc(d.subs, func(x *deferredSub) bool { return x == sub })
	}
}

// pendingAsync marks a control whose own async validator is in flight,
// remembering whether that run was supposed to emit on resolution.
type pendingAsync struct {
	emitEvent bool
}
