package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/folio/internal/engine/posteditor"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Default configuration values.
const (
	DefaultDepth        = 5
	DefaultBlockTimeout = 5 * time.Second
)

// undoEntry is one undo step: the state before its first edit and after its
// last one.
type undoEntry struct {
	name      string
	before    *Snapshot
	after     *Snapshot
	action    posteditor.EditAction
	timestamp time.Time
}

// OperationInfo describes an undo or redo step.
type OperationInfo struct {
	Description string
	Action      posteditor.EditAction
	Timestamp   time.Time
}

func (e *undoEntry) info() OperationInfo {
	desc := e.name
	if desc == "" {
		desc = e.action.String()
	}
	return OperationInfo{Description: desc, Action: e.action, Timestamp: e.timestamp}
}

// Option configures a History.
type Option func(*History)

// WithDepth sets how many undo steps are kept. Zero disables undo.
func WithDepth(depth int) Option {
	return func(h *History) {
		if depth >= 0 {
			h.depth = depth
		}
	}
}

// WithBlockTimeout sets the window in which consecutive character edits
// coalesce into one undo step.
func WithBlockTimeout(d time.Duration) Option {
	return func(h *History) {
		if d >= 0 {
			h.timeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		if now != nil {
			h.now = now
		}
	}
}

// History manages undo/redo state for a post.
type History struct {
	mu sync.Mutex

	undoStack []*undoEntry
	redoStack []*undoEntry

	// Grouping state
	grouping  bool
	groupName string
	group     *undoEntry

	// noCoalesce makes the next edit start a new step
	noCoalesce bool

	// Configuration
	depth   int
	timeout time.Duration
	now     func() time.Time
}

// New creates a history with the default depth and block timeout.
func New(opts ...Option) *History {
	h := &History{
		depth:   DefaultDepth,
		timeout: DefaultBlockTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record stores one transaction: the post before it, the post after it and
// what kind of edit it was. Consecutive character edits of the same kind
// within the block timeout of each other merge into one step. Recording
// clears the redo stack.
func (h *History) Record(before, after *Snapshot, action posteditor.EditAction) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth == 0 || action == posteditor.ActionNone {
		return
	}
	now := h.now()

	if h.grouping {
		if h.group == nil {
			h.group = &undoEntry{name: h.groupName, before: before, action: action}
		} else if h.group.action != action {
			h.group.action = posteditor.ActionStructural
		}
		h.group.after = after
		h.group.timestamp = now
		return
	}

	if top := h.top(); top != nil && h.canCoalesce(top, action, now) {
		top.after = after
		top.timestamp = now
		h.redoStack = nil
		return
	}
	h.noCoalesce = false
	h.pushLocked(&undoEntry{before: before, after: after, action: action, timestamp: now})
}

func (h *History) top() *undoEntry {
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1]
}

func (h *History) canCoalesce(top *undoEntry, action posteditor.EditAction, now time.Time) bool {
	if h.noCoalesce || top.name != "" {
		return false
	}
	if !action.IsCharacterEdit() || top.action != action {
		return false
	}
	return now.Sub(top.timestamp) <= h.timeout
}

// pushLocked adds an entry without acquiring the lock.
func (h *History) pushLocked(e *undoEntry) {
	h.undoStack = append(h.undoStack, e)

	// Clear redo stack
	h.redoStack = nil

	// Enforce depth
	if len(h.undoStack) > h.depth {
		excess := len(h.undoStack) - h.depth
		h.undoStack = h.undoStack[excess:]
	}
}

// BreakCoalescing makes the next recorded edit start a new undo step.
func (h *History) BreakCoalescing() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noCoalesce = true
}

// Undo pops the most recent step and returns the snapshot to restore: the
// post as it was before the step, with the range active at that time.
func (h *History) Undo() (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return nil, ErrNothingToUndo
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, entry)
	h.noCoalesce = true
	return entry.before, nil
}

// Redo re-applies the most recently undone step and returns the snapshot to
// restore.
func (h *History) Redo() (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return nil, ErrNothingToRedo
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, entry)
	h.noCoalesce = true
	return entry.after, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo steps available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo steps available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// BeginGroup starts a group. Every edit recorded until EndGroup becomes a
// single undo step.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}
	h.grouping = true
	h.groupName = name
	h.group = nil
}

// EndGroup finishes a group and pushes it as one step.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false
	if h.group == nil {
		return
	}
	if h.group.name == "" {
		h.group.name = "group"
	}
	h.pushLocked(h.group)
	h.group = nil
}

// CancelGroup ends a group without recording it.
// Note: edits already made still affect the post!
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.group = nil
}

// IsGrouping returns true if currently in a group.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.group = nil
}

// UndoInfo returns info about available undo steps, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]OperationInfo, len(h.undoStack))
	for i, entry := range h.undoStack {
		result[i] = entry.info()
	}
	return result
}

// PeekUndo returns info about the next undo step without removing it.
func (h *History) PeekUndo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns info about the next redo step without removing it.
func (h *History) PeekRedo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return OperationInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// SetDepth changes how many undo steps are kept. If the current stack is
// larger, oldest entries are removed. Zero disables undo and clears it.
func (h *History) SetDepth(depth int) {
	if depth < 0 {
		depth = 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.depth = depth
	if len(h.undoStack) > depth {
		excess := len(h.undoStack) - depth
		h.undoStack = h.undoStack[excess:]
	}
	if depth == 0 {
		h.redoStack = nil
	}
}

// Depth returns the maximum number of undo steps.
func (h *History) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}
