package lua

import "errors"

// Errors for Lua plugin operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script runs past its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrInvalidDefinition is returned for a malformed card or atom table.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrDuplicateName is returned when a card or atom name is defined twice.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrBadResult is returned when a render function returns something
	// other than a node, a string or nil.
	ErrBadResult = errors.New("render returned an unsupported value")
)
