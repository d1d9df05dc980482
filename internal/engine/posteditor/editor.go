package posteditor

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// Scheduler receives render scheduling for model nodes touched by a
// primitive. The render tree implements it.
type Scheduler interface {
	MarkDirty(postNode any)
	ScheduleForRemoval(postNode any)
}

type nopScheduler struct{}

func (nopScheduler) MarkDirty(any)          {}
func (nopScheduler) ScheduleForRemoval(any) {}

// EditAction classifies the mutations of a transaction for undo grouping.
type EditAction uint8

const (
	// ActionNone means nothing was mutated.
	ActionNone EditAction = iota

	// ActionInsertText means only text was inserted inside one section.
	ActionInsertText

	// ActionDeleteText means only text was deleted inside one section.
	ActionDeleteText

	// ActionStructural covers everything else.
	ActionStructural
)

// String returns the action name.
func (a EditAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInsertText:
		return "insert-text"
	case ActionDeleteText:
		return "delete-text"
	case ActionStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// IsCharacterEdit reports whether the action may coalesce with neighbouring
// edits in the undo history.
func (a EditAction) IsCharacterEdit() bool {
	return a == ActionInsertText || a == ActionDeleteText
}

type txState uint8

const (
	stateIdle txState = iota
	stateOpen
	stateCompleted
)

// Option configures a PostEditor.
type Option func(*PostEditor)

// WithScheduler sets the receiver of render scheduling.
func WithScheduler(s Scheduler) Option {
	return func(e *PostEditor) {
		if s != nil {
			e.sched = s
		}
	}
}

// WithRange sets the range active when the transaction starts.
func WithRange(r cursor.Range) Option {
	return func(e *PostEditor) {
		e.rng = r
	}
}

// WithCompleteHook registers fn to run after Complete has closed the
// transaction.
func WithCompleteHook(fn func(*PostEditor)) Option {
	return func(e *PostEditor) {
		if fn != nil {
			e.hooks = append(e.hooks, fn)
		}
	}
}

// PostEditor performs one transaction of mutations on a post.
// A PostEditor is single use: after Complete it rejects further calls.
type PostEditor struct {
	post    *post.Post
	builder *post.Builder
	sched   Scheduler

	state    txState
	rng      cursor.Range
	rangeSet bool
	action   EditAction
	hooks    []func(*PostEditor)
}

// New creates a post editor for p. Markups of inserted content are interned
// through b.
func New(p *post.Post, b *post.Builder, opts ...Option) *PostEditor {
	e := &PostEditor{
		post:    p,
		builder: b,
		sched:   nopScheduler{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin opens the transaction.
func (e *PostEditor) Begin() error {
	switch e.state {
	case stateOpen:
		return fmt.Errorf("begin: %w: transaction already open", ErrInvalidOperation)
	case stateCompleted:
		return fmt.Errorf("begin: %w", ErrAlreadyCompleted)
	}
	e.state = stateOpen
	return nil
}

// Complete closes the transaction. A post left without sections receives a
// blank section. Completion hooks run afterwards.
func (e *PostEditor) Complete() error {
	if err := e.check("complete"); err != nil {
		return err
	}
	if e.post.Sections.IsEmpty() {
		blank := e.builder.CreateBlankSection()
		if err := e.post.Sections.Append(blank); err != nil {
			return err
		}
		e.dirty(blank)
		if !e.rangeSet || e.rng.Head.Section == nil || e.rng.Head.Section.Post() != e.post {
			e.land(cursor.Head(blank))
		}
	}
	e.state = stateCompleted
	for _, fn := range e.hooks {
		fn(e)
	}
	return nil
}

// InTransaction reports whether the transaction is open.
func (e *PostEditor) InTransaction() bool { return e.state == stateOpen }

// IsCompleted reports whether Complete has run.
func (e *PostEditor) IsCompleted() bool { return e.state == stateCompleted }

// Post returns the post being edited.
func (e *PostEditor) Post() *post.Post { return e.post }

// Builder returns the builder used for new model objects.
func (e *PostEditor) Builder() *post.Builder { return e.builder }

// Range returns the range to restore after the transaction.
func (e *PostEditor) Range() cursor.Range { return e.rng }

// RangeChanged reports whether a primitive or SetRange recorded a range.
func (e *PostEditor) RangeChanged() bool { return e.rangeSet }

// Action returns the classification of the mutations made so far.
func (e *PostEditor) Action() EditAction { return e.action }

// SetRange records the range to restore after the transaction.
func (e *PostEditor) SetRange(r cursor.Range) error {
	if err := e.check("set range"); err != nil {
		return err
	}
	e.rng = r
	e.rangeSet = true
	return nil
}

func (e *PostEditor) check(op string) error {
	switch e.state {
	case stateOpen:
		return nil
	case stateCompleted:
		return fmt.Errorf("%s: %w", op, ErrAlreadyCompleted)
	default:
		return fmt.Errorf("%s: %w", op, ErrNotInTransaction)
	}
}

func (e *PostEditor) checkPosition(op string, pos cursor.Position) error {
	if err := e.check(op); err != nil {
		return err
	}
	if pos.Section == nil || pos.Section.Post() != e.post {
		return fmt.Errorf("%s at %s: %w", op, pos, ErrInvalidPosition)
	}
	return nil
}

func (e *PostEditor) record(a EditAction) {
	switch e.action {
	case ActionNone:
		e.action = a
	case a:
	default:
		e.action = ActionStructural
	}
}

// land records a collapsed range at pos and returns pos.
func (e *PostEditor) land(pos cursor.Position) cursor.Position {
	e.rng = cursor.Collapsed(pos)
	e.rangeSet = true
	return pos
}

func (e *PostEditor) dirty(n any)   { e.sched.MarkDirty(n) }
func (e *PostEditor) removed(n any) { e.sched.ScheduleForRemoval(n) }
