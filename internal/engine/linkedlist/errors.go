package linkedlist

import "errors"

// Errors returned by list operations.
var (
	// ErrInvalidOperation indicates an ownership violation: inserting an item
	// that already belongs to a list, or removing or referencing an item that
	// belongs to a different list.
	ErrInvalidOperation = errors.New("invalid list operation")
)
