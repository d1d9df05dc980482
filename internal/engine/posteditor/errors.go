package posteditor

import (
	"errors"
	"fmt"
)

// Errors returned by the post editor.
var (
	// ErrInvalidOperation is the root of transaction misuse errors.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotInTransaction indicates a mutation outside Begin/Complete.
	ErrNotInTransaction = fmt.Errorf("%w: not in a transaction", ErrInvalidOperation)

	// ErrAlreadyCompleted indicates use of an editor after Complete.
	ErrAlreadyCompleted = fmt.Errorf("%w: transaction already completed", ErrInvalidOperation)

	// ErrInvalidPosition indicates a blank position or one whose section is
	// not part of the post.
	ErrInvalidPosition = errors.New("invalid position")
)
