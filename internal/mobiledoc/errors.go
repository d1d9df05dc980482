package mobiledoc

import (
	"errors"
	"fmt"
)

// Errors returned by Parse and Render.
var (
	// ErrUnknownVersion indicates a version this package cannot read or write.
	ErrUnknownVersion = errors.New("unknown mobiledoc version")

	// ErrInvalidJSON indicates input that is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid mobiledoc json")

	// ErrInvalidSection indicates a section tuple of unknown type or shape.
	ErrInvalidSection = errors.New("invalid section")

	// ErrInvalidMarker indicates a malformed marker tuple.
	ErrInvalidMarker = errors.New("invalid marker")

	// ErrInvalidReference indicates an index outside its definition table.
	ErrInvalidReference = errors.New("invalid table reference")
)

// ParseError reports where in the document parsing failed.
type ParseError struct {
	Path string // e.g. "sections.3"
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("mobiledoc %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
