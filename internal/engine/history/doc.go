// Package history provides undo/redo for posts.
//
// Every completed editing transaction is recorded as a pair of snapshots:
// a deep copy of the post before the transaction and one after it, each
// with the selection that was active at the time. Undoing a step restores
// the before snapshot; redoing it restores the after snapshot.
//
// # Coalescing
//
// Consecutive character edits of the same kind (typing, or deleting text)
// that arrive within the block timeout of each other join the step on top
// of the stack, so a burst of typing undoes as one unit. Structural edits
// always start a new step.
//
//	h := history.New(history.WithDepth(50), history.WithBlockTimeout(2*time.Second))
//
//	before := history.TakeSnapshot(p, r)
//	// ... run a transaction ...
//	h.Record(before, history.TakeSnapshot(p, e.Range()), e.Action())
//
//	snap, err := h.Undo()
//	if err == nil {
//	    r = snap.Restore(p)
//	}
//
// # Grouping
//
// Several transactions can be grouped as a single undo step:
//
//	h.BeginGroup("Paste")
//	// ... multiple transactions ...
//	h.EndGroup()
//
// A depth of zero disables undo entirely.
package history
