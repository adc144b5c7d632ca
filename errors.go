package formtree

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var checksEnabled atomic.Bool

func init() { checksEnabled.Store(true) }

// SetChecksEnabled toggles structural-misuse checks (strict SetValue key
// matching, kind assertions, the goroutine affinity guard). Checks are on
// by default; disabling them degrades strict operations to lenient ones
// instead of panicking.
func SetChecksEnabled(v bool) { checksEnabled.Store(v) }

// ChecksEnabled reports whether structural-misuse checks are enforced.
func ChecksEnabled() bool { return checksEnabled.Load() }

// StructuralError reports programmer misuse of the tree API, such as a
// strict SetValue whose keys don't match the composite's children. It is
// raised as a panic before any state is mutated.
type StructuralError struct {
	Op        string
	ControlID uuid.UUID
	Key       string
	Reason    string
}

func (e *StructuralError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("formtree: %s on control %s: %s (key %q)", e.Op, e.ControlID, e.Reason, e.Key)
	}
	return fmt.Sprintf("formtree: %s on control %s: %s", e.Op, e.ControlID, e.Reason)
}

// AffinityError reports a mutation from a goroutine other than the one the
// tree was pinned to. See Control.Pin.
type AffinityError struct {
	ControlID uuid.UUID
	Pinned    int64
	Current   int64
}

func (e *AffinityError) Error() string {
	return fmt.Sprintf("formtree: control %s mutated from goroutine %d, tree is pinned to goroutine %d",
		e.ControlID, e.Current, e.Pinned)
}

func (c *Control) structuralPanic(op, key, reason string) {
	panic(&StructuralError{Op: op, ControlID: c.id, Key: key, Reason: reason})
}

// mustBeKind guards kind-specific operations. With checks disabled the
// caller is expected to no-op instead.
func (c *Control) mustBeKind(k ControlKind, op string) bool {
	if c.kind == k {
		return true
	}
	if ChecksEnabled() {
		c.structuralPanic(op, "", fmt.Sprintf("operation requires a %s control, got %s", k, c.kind))
	}
	return false
}
