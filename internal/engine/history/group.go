package history

// GroupScope provides a convenient way to group edits using defer.
// Usage:
//
//	func reformat(h *History) {
//	    defer h.GroupScope("Reformat").End()
//	    // ... several recorded transactions ...
//	}
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
// Call End() or use with defer to properly close the group.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{
		history: h,
		active:  true,
	}
}

// End ends the group scope.
// Safe to call multiple times; only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group scope without recording a step.
// Note: edits already made still affect the post.
func (g *GroupScope) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Transaction runs fn within a grouped undo context.
// If fn returns an error, the group is cancelled.
// Otherwise, the group is ended normally.
func (h *History) Transaction(name string, fn func() error) error {
	h.BeginGroup(name)

	err := fn()
	if err != nil {
		h.CancelGroup()
		return err
	}

	h.EndGroup()
	return nil
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current history position.
// Later edits are kept out of the step that was on top so the checkpoint
// stays reachable.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noCoalesce = true
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes every step taken since the checkpoint and returns
// the snapshot to restore, or nil when there was nothing to undo.
func (h *History) UndoToCheckpoint(cp Checkpoint) (*Snapshot, error) {
	var snap *Snapshot
	for h.UndoCount() > cp.undoDepth {
		s, err := h.Undo()
		if err != nil {
			return snap, err
		}
		snap = s
	}
	return snap, nil
}

// RedoToCheckpoint redoes steps until the checkpoint depth is reached and
// returns the snapshot to restore, or nil when nothing was redone.
// Note: This only works if the redo stack has the steps.
func (h *History) RedoToCheckpoint(cp Checkpoint) (*Snapshot, error) {
	var snap *Snapshot
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		s, err := h.Redo()
		if err != nil {
			return snap, err
		}
		snap = s
	}
	return snap, nil
}
