package chat

// Option update kinds.
const (
	optionNoChange  = "no_change"
	optionSetToNone = "set_to_none"
	optionSetTo     = "set_to_some"
)

// OptionUpdate is a tri-state update for an optional field: leave it alone,
// clear it, or set a new value. A plain pointer cannot express "clear", so
// deltas carry this instead wherever absence is a real transition.
type OptionUpdate[T any] struct {
	Kind  string `json:"kind"`
	Value T      `json:"value,omitempty"`
}

// NoChange leaves the current value untouched.
func NoChange[T any]() OptionUpdate[T] {
	return OptionUpdate[T]{Kind: optionNoChange}
}

// SetToNone clears the current value.
func SetToNone[T any]() OptionUpdate[T] {
	return OptionUpdate[T]{Kind: optionSetToNone}
}

// SetTo replaces the current value.
func SetTo[T any](v T) OptionUpdate[T] {
	return OptionUpdate[T]{Kind: optionSetTo, Value: v}
}

// Apply resolves the update against the current value. The zero value of
// OptionUpdate behaves as NoChange, so absent fields in decoded deltas are
// harmless.
func (u OptionUpdate[T]) Apply(current *T) *T {
	switch u.Kind {
	case optionSetToNone:
		return nil
	case optionSetTo:
		v := u.Value
		return &v
	default:
		return current
	}
}
