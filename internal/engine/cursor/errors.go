package cursor

import "errors"

// Errors returned when building positions.
var (
	// ErrOutOfRange indicates an offset past the end of a markerable section.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrNotAddressable indicates an offset that cannot hold a cursor, such as
	// an offset other than 0 or 1 on a card, or any offset on a list section.
	ErrNotAddressable = errors.New("position not addressable")
)
