package render

import (
	"errors"
	"fmt"
)

// Errors returned while rendering.
var (
	// ErrUnknownCard indicates a card with no registered definition and no
	// fallback.
	ErrUnknownCard = errors.New("unknown card")

	// ErrUnknownAtom indicates an atom with no registered definition and no
	// fallback.
	ErrUnknownAtom = errors.New("unknown atom")

	// ErrNodeAttached indicates a card or atom returned a node that already
	// has a parent.
	ErrNodeAttached = errors.New("rendered node is already attached")

	// ErrNotRendered indicates a model node with no render node.
	ErrNotRendered = errors.New("model node not rendered")
)

// RenderError reports a failing card or atom definition.
type RenderError struct {
	Kind string // "card" or "atom"
	Name string
	Err  error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s %q: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}
