package engine

import (
	"errors"

	"github.com/dshills/folio/internal/engine/history"
)

// Errors returned by engine operations.
var (
	// ErrDestroyed indicates the engine was destroyed.
	ErrDestroyed = errors.New("engine destroyed")

	// ErrPanic wraps a panic raised inside a transaction.
	ErrPanic = errors.New("panic in transaction")

	// ErrNoRange indicates an operation that needs a cursor while the range
	// is blank.
	ErrNoRange = errors.New("no range")

	// ErrRangeInvalid indicates a range that does not address the post.
	ErrRangeInvalid = errors.New("invalid range")

	// ErrJobCancelled indicates a reparse job was cancelled before it ran.
	ErrJobCancelled = errors.New("reparse job cancelled")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo
)
