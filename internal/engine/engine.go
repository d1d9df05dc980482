package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/history"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/posteditor"
	"github.com/dshills/folio/internal/mobiledoc"
	"github.com/dshills/folio/internal/render"
)

// Logger receives the engine's debug output. *app.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

type event uint8

const (
	eventPostChanged event = 1 << iota
	eventCursorChanged
)

type callbacks struct {
	postDidChange   []func()
	cursorDidChange []func()
	willRender      []func()
	didRender       []func()
}

// Engine is the main facade of the editing engine. It owns a post, the
// render tree displaying it, the undo history and the current range, and
// serialises every mutation.
//
// All methods are safe for concurrent use. Callbacks registered with
// OnPostDidChange and OnCursorDidChange run after the engine lock has been
// released. OnWillRender and OnDidRender callbacks run inside a render pass
// and must not call back into the engine.
type Engine struct {
	mu sync.Mutex

	// Core components
	id       string
	post     *post.Post
	builder  *post.Builder
	tree     *render.Tree
	renderer *render.Renderer
	history  *history.History
	reparse  *reparseQueue
	logger   Logger

	// Selection state
	rng           cursor.Range
	activeMarkups []*post.Markup
	activeSet     bool

	// Lifecycle
	rendered  bool
	destroyed bool
	rendering atomic.Bool
	events    event
	callbacks callbacks

	// Card and atom requests made during a render pass
	dmu      sync.Mutex
	deferred []func() error

	// Initialization
	initPost      *post.Post
	initMobiledoc []byte
	root          *html.Node
	renderOpts    []render.Option
	parsers       []render.ParserPlugin
	historyOpts   []history.Option
	reparseDelay  time.Duration
}

// New creates an engine with the given options. Without WithPost or
// WithMobiledoc the engine edits a post holding one blank paragraph. The
// range starts collapsed at the end of the post.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:           uuid.NewString(),
		builder:      post.NewBuilder(),
		logger:       nopLogger{},
		reparseDelay: DefaultReparseDelay,
	}

	// Apply options to get configuration
	for _, opt := range opts {
		opt(e)
	}

	p := e.initPost
	if p == nil && e.initMobiledoc != nil {
		var err error
		if p, err = mobiledoc.ParseWithBuilder(e.builder, e.initMobiledoc); err != nil {
			return nil, fmt.Errorf("load mobiledoc: %w", err)
		}
	}
	if p == nil {
		p, _ = e.builder.CreatePost()
	}
	if p.Sections.IsEmpty() {
		if err := p.Sections.Append(e.builder.CreateBlankSection()); err != nil {
			return nil, err
		}
	}
	e.post = p
	e.initPost, e.initMobiledoc = nil, nil

	if e.root == nil {
		e.root = dom.NewRoot()
	}
	e.tree = render.NewTree(p, e.root)
	e.tree.UseParserPlugins(e.parsers...)
	e.renderer = render.NewRenderer(append(e.renderOpts, render.WithHost(cardHost{e}))...)
	e.history = history.New(e.historyOpts...)
	e.reparse = newReparseQueue(e, e.reparseDelay)
	e.rng = cursor.Collapsed(cursor.PostTail(p))

	e.logger.Debug("engine %s created: %d sections", e.id, p.Sections.Len())
	return e, nil
}

// unlock releases the engine lock and then runs the callbacks of the events
// raised while it was held.
func (e *Engine) unlock() {
	ev := e.events
	e.events = 0
	var fns []func()
	if ev&eventPostChanged != 0 {
		fns = append(fns, e.callbacks.postDidChange...)
	}
	if ev&eventCursorChanged != 0 {
		fns = append(fns, e.callbacks.cursorDidChange...)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ============================================================================
// Accessors
// ============================================================================

// ID returns the unique identifier of the engine.
func (e *Engine) ID() string { return e.id }

// Post returns the edited post. Mutate it only through Run.
func (e *Engine) Post() *post.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.post
}

// Builder returns the builder of the post.
func (e *Engine) Builder() *post.Builder { return e.builder }

// Element returns the root element the post renders into.
func (e *Engine) Element() *html.Node { return e.tree.Element() }

// Tree returns the render tree.
func (e *Engine) Tree() *render.Tree { return e.tree }

// HTML returns the rendered content of the root element.
func (e *Engine) HTML() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return dom.InnerHTML(e.tree.Element())
}

// Serialize writes the post as a mobiledoc document of the given version.
func (e *Engine) Serialize(version string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mobiledoc.Render(e.post, version)
}

// IsDestroyed reports whether Destroy has been called.
func (e *Engine) IsDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// ============================================================================
// Transactions
// ============================================================================

// Run executes fn as one editing transaction. The transaction always
// completes, even when fn fails or panics; a panic is returned as an error
// wrapping ErrPanic. A successful edit is recorded for undo and, once the
// engine has rendered, re-rendered. When fn fails, the post and range are
// rolled back to their state before the transaction and nothing is recorded.
// Sections fn touched are replaced by copies during the rollback.
//
// fn must not call methods of the engine.
func (e *Engine) Run(fn func(pe *posteditor.PostEditor) error) error {
	e.mu.Lock()
	defer e.unlock()
	return e.run("run", fn)
}

func (e *Engine) run(name string, fn func(pe *posteditor.PostEditor) error) (err error) {
	if e.destroyed {
		return ErrDestroyed
	}
	e.reparse.flushPending()

	before := history.TakeSnapshot(e.post, e.rng)
	pe := posteditor.New(e.post, e.builder,
		posteditor.WithScheduler(e.tree),
		posteditor.WithRange(e.rng),
	)
	if err := pe.Begin(); err != nil {
		return err
	}
	err = call(fn, pe)
	if cerr := pe.Complete(); cerr != nil && err == nil {
		err = cerr
	}

	action := pe.Action()
	if err != nil {
		e.logger.Warn("transaction %s: %v", name, err)
		if action != posteditor.ActionNone {
			e.rollback(before)
			if rerr := e.renderIfMounted(); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}

	if action != posteditor.ActionNone {
		if e.history.Depth() > 0 {
			e.history.Record(before, history.TakeSnapshot(e.post, pe.Range()), action)
		}
		e.events |= eventPostChanged
	}
	e.setRange(pe.Range())
	e.logger.Debug("transaction %s: action=%s", name, action)
	return e.renderIfMounted()
}

// rollback restores the post saved before a failed transaction. The
// restored copy re-renders in full.
func (e *Engine) rollback(before *history.Snapshot) {
	for s := range e.post.Sections.All() {
		e.tree.ScheduleForRemoval(s)
	}
	r := before.Restore(e.post)
	e.tree.MarkDirty(e.post)
	e.rng = r
	e.logger.Debug("transaction rolled back")
}

func call(fn func(pe *posteditor.PostEditor) error, pe *posteditor.PostEditor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(pe)
}

// ============================================================================
// Rendering
// ============================================================================

// Render runs a render pass. The first pass renders the whole post; after
// it, every transaction re-renders what it changed.
func (e *Engine) Render() error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	return e.render()
}

// IsRendered reports whether a render pass has run.
func (e *Engine) IsRendered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rendered
}

func (e *Engine) renderIfMounted() error {
	if !e.rendered {
		return nil
	}
	return e.render()
}

func (e *Engine) render() error {
	for _, fn := range e.callbacks.willRender {
		fn()
	}
	e.rendering.Store(true)
	err := e.renderer.Render(e.tree)
	e.rendering.Store(false)
	e.rendered = true
	for _, fn := range e.callbacks.didRender {
		fn()
	}
	if err != nil {
		e.logger.Warn("render: %v", err)
		return err
	}
	return e.runDeferred()
}

// deferOp queues op to run after the current render pass.
func (e *Engine) deferOp(op func() error) {
	e.dmu.Lock()
	e.deferred = append(e.deferred, op)
	e.dmu.Unlock()
}

func (e *Engine) runDeferred() error {
	e.dmu.Lock()
	ops := e.deferred
	e.deferred = nil
	e.dmu.Unlock()

	var errs []error
	for _, op := range ops {
		if err := op(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetCardMode switches a card section between display and edit mode and
// re-renders it.
func (e *Engine) SetCardMode(section *post.Section, mode render.CardMode) error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	e.tree.SetCardMode(section, mode)
	return e.renderIfMounted()
}

// ============================================================================
// Range and Selection
// ============================================================================

// Range returns the current range.
func (e *Engine) Range() cursor.Range {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng
}

// SetRange moves the range. A blank range is allowed.
func (e *Engine) SetRange(r cursor.Range) error {
	e.mu.Lock()
	defer e.unlock()
	if !r.IsBlank() && !e.validRange(r) {
		return fmt.Errorf("set %s: %w", r, ErrRangeInvalid)
	}
	e.setRange(r)
	return nil
}

// SelectionDidChange reports a new native selection. The range follows it.
func (e *Engine) SelectionDidChange(sel dom.Selection) {
	e.mu.Lock()
	defer e.unlock()
	e.setRange(e.tree.RangeFromSelection(sel))
}

// DOMSelection returns the native selection matching the current range.
func (e *Engine) DOMSelection() (dom.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.SelectionFromRange(e.rng)
}

func (e *Engine) setRange(r cursor.Range) {
	if r.Equal(e.rng) && r.Direction == e.rng.Direction {
		return
	}
	e.rng = r
	e.activeMarkups, e.activeSet = nil, false
	e.events |= eventCursorChanged
}

func (e *Engine) validRange(r cursor.Range) bool {
	return e.validPosition(r.Head) && e.validPosition(r.Tail)
}

func (e *Engine) validPosition(p cursor.Position) bool {
	return p.Section != nil && p.Section.IsLeaf() && p.Section.Post() == e.post &&
		p.Offset >= 0 && p.Offset <= p.Section.Length()
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo restores the post and range as they were before the last undo step.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	e.reparse.flushPending()
	snap, err := e.history.Undo()
	if err != nil {
		return err
	}
	e.restore(snap)
	e.logger.Debug("undo")
	return e.renderIfMounted()
}

// Redo re-applies the last undone step.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	e.reparse.flushPending()
	snap, err := e.history.Redo()
	if err != nil {
		return err
	}
	e.restore(snap)
	e.logger.Debug("redo")
	return e.renderIfMounted()
}

func (e *Engine) restore(snap *history.Snapshot) {
	for s := range e.post.Sections.All() {
		e.tree.ScheduleForRemoval(s)
	}
	r := snap.Restore(e.post)
	e.tree.MarkDirty(e.post)
	e.setRange(r)
	e.events |= eventPostChanged
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// UndoCount returns the number of undo steps available.
func (e *Engine) UndoCount() int { return e.history.UndoCount() }

// RedoCount returns the number of redo steps available.
func (e *Engine) RedoCount() int { return e.history.RedoCount() }

// BeginUndoGroup starts grouping transactions into one undo step.
func (e *Engine) BeginUndoGroup(name string) { e.history.BeginGroup(name) }

// EndUndoGroup ends the current undo group.
func (e *Engine) EndUndoGroup() { e.history.EndGroup() }

// CancelUndoGroup ends the current group without recording it.
func (e *Engine) CancelUndoGroup() { e.history.CancelGroup() }

// UndoGroup runs fn with every transaction it triggers recorded as one undo
// step. When fn fails nothing is recorded.
func (e *Engine) UndoGroup(name string, fn func() error) error {
	return e.history.Transaction(name, fn)
}

// ClearHistory removes all undo/redo history.
func (e *Engine) ClearHistory() { e.history.Clear() }

// BreakUndoCoalescing makes the next edit start a new undo step.
func (e *Engine) BreakUndoCoalescing() { e.history.BreakCoalescing() }

// Checkpoint marks the current history position.
func (e *Engine) Checkpoint() history.Checkpoint { return e.history.CreateCheckpoint() }

// RevertToCheckpoint undoes every step taken since cp.
func (e *Engine) RevertToCheckpoint(cp history.Checkpoint) error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	e.reparse.flushPending()
	snap, err := e.history.UndoToCheckpoint(cp)
	if snap != nil {
		e.restore(snap)
	}
	if err != nil {
		return err
	}
	return e.renderIfMounted()
}

// ============================================================================
// Lifecycle
// ============================================================================

// OnPostDidChange registers fn to run after each transaction that changed
// the post, and after undo and redo.
func (e *Engine) OnPostDidChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks.postDidChange = append(e.callbacks.postDidChange, fn)
}

// OnCursorDidChange registers fn to run whenever the range changes.
func (e *Engine) OnCursorDidChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks.cursorDidChange = append(e.callbacks.cursorDidChange, fn)
}

// OnWillRender registers fn to run before each render pass.
func (e *Engine) OnWillRender(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks.willRender = append(e.callbacks.willRender, fn)
}

// OnDidRender registers fn to run after each render pass.
func (e *Engine) OnDidRender(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks.didRender = append(e.callbacks.didRender, fn)
}

// Destroy tears down the rendered DOM, cancels pending reparses and makes
// every later mutation fail with ErrDestroyed. Safe to call more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.reparse.stop()
	// teardown callbacks may call back through their Env
	e.rendering.Store(true)
	e.tree.Destroy()
	e.rendering.Store(false)
	e.dmu.Lock()
	e.deferred = nil
	e.dmu.Unlock()
	e.logger.Debug("engine %s destroyed", e.id)
}
