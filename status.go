package formtree

// Status is the validity state of a control. The four states are mutually
// exclusive; a control is always in exactly one of them.
type Status string

const (
	// StatusValid means the control passed all of its checks and no async
	// validation is outstanding for it or any enabled descendant.
	StatusValid Status = "VALID"
	// StatusInvalid means the control (or an enabled descendant) failed a check.
	StatusInvalid Status = "INVALID"
	// StatusPending means async validation is running for the control or an
	// enabled descendant.
	StatusPending Status = "PENDING"
	// StatusDisabled means the control is exempt from validation entirely.
	StatusDisabled Status = "DISABLED"
)

// Errors maps an error kind to its detail value. A nil map means no errors.
type Errors map[string]any

// ControlKind tags the variant of a control node.
type ControlKind int

const (
	// KindLeaf is a control with no children.
	KindLeaf ControlKind = iota
	// KindGroup aggregates named children into a map value.
	KindGroup
	// KindArray aggregates ordered children into a slice value.
	KindArray
)

func (k ControlKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGroup:
		return "group"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// UpdateOn is a scheduling hint for UI bindings: which interaction should
// push a new value into the control. The zero value inherits from the
// nearest ancestor that sets one, defaulting to UpdateOnChange.
type UpdateOn string

const (
	UpdateOnChange UpdateOn = "change"
	UpdateOnBlur   UpdateOn = "blur"
	UpdateOnSubmit UpdateOn = "submit"
)
