package post

import "errors"

// Errors returned by model operations.
var (
	// ErrInvalidTagName indicates a tag name not allowed for the section or markup.
	ErrInvalidTagName = errors.New("invalid tag name")

	// ErrInvalidAttribute indicates an attribute key a section does not support.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrAtomSplit indicates an attempt to split an atom.
	ErrAtomSplit = errors.New("atoms cannot be split")

	// ErrOffsetOutOfRange indicates an offset outside a marker or section.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrWrongKind indicates an operation applied to an unsupported section kind.
	ErrWrongKind = errors.New("operation not supported for section kind")
)
