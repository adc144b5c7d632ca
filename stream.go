package formtree

import "slices"

// Event is the tagged union carried by a control's event stream.
type Event interface{ isEvent() }

// ValueChangeEvent is emitted after a control's value settled into its new
// state. Source is the control whose direct mutation triggered the pass.
type ValueChangeEvent struct {
	Value  any
	Source *Control
}

// StatusChangeEvent is emitted after a control's status settled.
type StatusChangeEvent struct {
	Status Status
	Source *Control
}

// PristineChangeEvent is emitted when a control's pristine flag flips.
type PristineChangeEvent struct {
	Pristine bool
	Source   *Control
}

// TouchedChangeEvent is emitted when a control's touched flag flips.
type TouchedChangeEvent struct {
	Touched bool
	Source  *Control
}

func (ValueChangeEvent) isEvent()    {}
func (StatusChangeEvent) isEvent()   {}
func (PristineChangeEvent) isEvent() {}
func (TouchedChangeEvent) isEvent()  {}

// Stream is a multicast channel. Emission is synchronous: subscribers run
// on the caller's goroutine, in subscription order.
type Stream[T any] struct {
	subs []*subscriber[T]
}

type subscriber[T any] struct {
	fn       func(T)
	canceled bool
}

// Subscribe registers fn and returns a cancel function. Subscribing or
// canceling from inside a running subscriber is allowed.
func (s *Stream[T]) Subscribe(fn func(T)) (cancel func()) {
	sub := &subscriber[T]{fn: fn}
	s.subs = append(s.subs, sub)

	return func() {
		sub.canceled = true
		s.subs = slices.DeleteFunc(s.subs, func(x *subscriber[T]) bool { return x == sub })
	}
}

func (s *Stream[T]) emit(v T) {
	// snapshot so subscribers may mutate the list reentrantly
	for _, sub := range slices.Clone(s.subs) {
		if !sub.canceled {
			sub.fn(v)
		}
	}
}
