package instrument

import "errors"

// Errors reported by the wrappers themselves. Errors of the wrapped callables
// and hooks are always returned unchanged.
var (
	// ErrNotFunc is returned when a value that must be a function is not one.
	ErrNotFunc = errors.New("instrument: not a function")

	// ErrClass is returned when a class type cannot be instrumented.
	ErrClass = errors.New("instrument: invalid class type")

	// ErrConstructor is returned when a class constructor has an unusable signature.
	ErrConstructor = errors.New("instrument: invalid constructor")

	// ErrUnknownMember is returned when calling a member the type does not have.
	ErrUnknownMember = errors.New("instrument: unknown member")

	// ErrArgs is returned when call arguments do not fit the callee's parameters.
	ErrArgs = errors.New("instrument: invalid arguments")
)
