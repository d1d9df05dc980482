package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/history"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/posteditor"
)

// Job tracks one scheduled reparse of DOM mutations.
type Job struct {
	ID string

	q    *reparseQueue
	once sync.Once
	done chan struct{}
	err  error
}

func newJob(q *reparseQueue) *Job {
	return &Job{ID: uuid.NewString(), q: q, done: make(chan struct{})}
}

func (j *Job) finish(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}

// Done returns a channel closed once the job has run or was cancelled.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the result of the job. It is nil until Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job has finished or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel drops the job if it has not run yet. The mutated sections are
// re-rendered from the post, discarding the DOM changes.
func (j *Job) Cancel() {
	if j.q == nil {
		return
	}
	e := j.q.e
	e.mu.Lock()
	defer e.unlock()
	j.q.cancel(j)
}

// reparseQueue collects DOM mutations until they are reparsed. It is
// guarded by the engine lock.
type reparseQueue struct {
	e   *Engine
	deb *debouncer

	job        *Job
	sections   map[*post.Section]bool
	order      []*post.Section
	whole      bool
	structural bool
}

func newReparseQueue(e *Engine, delay time.Duration) *reparseQueue {
	q := &reparseQueue{e: e}
	if delay > 0 {
		q.deb = newDebouncer(delay, func() {
			e.mu.Lock()
			defer e.unlock()
			q.flush()
		})
	}
	return q
}

// add queues the sections touched by records and returns the job that will
// reparse them. Mutations inside card or atom content are ignored.
func (q *reparseQueue) add(records []dom.MutationRecord) *Job {
	relevant := false
	for _, rec := range records {
		if rec.Target == nil || q.e.tree.IsInsideContent(rec.Target) {
			continue
		}
		relevant = true
		if rec.Type != dom.MutationCharacterData {
			q.structural = true
		}
		q.addSection(q.sectionOf(rec))
	}
	if !relevant {
		j := newJob(nil)
		j.finish(nil)
		return j
	}
	if q.job == nil {
		q.job = newJob(q)
	}
	j := q.job
	if q.deb == nil {
		q.flush()
	} else {
		q.deb.Call()
	}
	return j
}

// sectionOf returns the markerable section a mutation belongs to, or nil
// when the whole post must be reparsed.
func (q *reparseQueue) sectionOf(rec dom.MutationRecord) *post.Section {
	rn := q.e.tree.Owner(rec.Target)
	if rn == nil {
		return nil
	}
	switch pn := rn.PostNode.(type) {
	case *post.Marker:
		return pn.Section()
	case *post.Section:
		if pn.IsMarkerable() && rec.Type != dom.MutationAttributes && onlyInline(rec) {
			return pn
		}
	}
	return nil
}

// onlyInline reports whether a child list mutation added or removed nothing
// but text and inline elements.
func onlyInline(rec dom.MutationRecord) bool {
	for _, list := range [][]*html.Node{rec.Added, rec.Removed} {
		for _, n := range list {
			if dom.IsElement(n, "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "ul", "ol", "li", "div") {
				return false
			}
		}
	}
	return true
}

func (q *reparseQueue) addSection(s *post.Section) {
	if s == nil {
		q.whole = true
		return
	}
	if q.sections == nil {
		q.sections = make(map[*post.Section]bool)
	}
	if !q.sections[s] {
		q.sections[s] = true
		q.order = append(q.order, s)
	}
}

func (q *reparseQueue) reset() (*Job, []*post.Section, bool, bool) {
	j, order, whole, structural := q.job, q.order, q.whole, q.structural
	q.job, q.sections, q.order, q.whole, q.structural = nil, nil, nil, false, false
	return j, order, whole, structural
}

// flush reparses everything queued.
func (q *reparseQueue) flush() {
	j, order, whole, structural := q.reset()
	if j == nil {
		return
	}
	if q.e.destroyed {
		j.finish(ErrDestroyed)
		return
	}
	j.finish(q.e.applyReparse(order, whole, structural))
}

// flushPending reparses queued mutations before an edit reads the post.
func (q *reparseQueue) flushPending() {
	if q.job == nil {
		return
	}
	if q.deb != nil {
		q.deb.Cancel()
	}
	q.flush()
}

// stop drops queued mutations for good.
func (q *reparseQueue) stop() {
	if q.deb != nil {
		q.deb.Cancel()
	}
	if j, _, _, _ := q.reset(); j != nil {
		j.finish(ErrDestroyed)
	}
}

// cancel drops j if it is still queued and re-renders the sections it
// would have reparsed.
func (q *reparseQueue) cancel(j *Job) {
	if q.job != j {
		return
	}
	if q.deb != nil {
		q.deb.Cancel()
	}
	_, order, whole, _ := q.reset()
	j.finish(ErrJobCancelled)
	if q.e.destroyed {
		return
	}
	if whole {
		q.e.tree.Root.MarkDirty()
		for s := range q.e.post.Sections.All() {
			q.e.tree.MarkDirty(s)
		}
	}
	for _, s := range order {
		q.e.tree.MarkDirty(s)
	}
	if err := q.e.renderIfMounted(); err != nil {
		q.e.logger.Warn("re-render after cancelled reparse: %v", err)
	}
}

// applyReparse reads the queued sections back from the DOM and records the
// change for undo.
func (e *Engine) applyReparse(sections []*post.Section, whole, structural bool) error {
	var snap *history.Snapshot
	if e.history.Depth() > 0 {
		snap = history.TakeSnapshot(e.post, e.rng)
	}
	before := post.Describe(e.post)
	head, tail := anchorAt(e.rng.Head), anchorAt(e.rng.Tail)

	if whole {
		if err := e.tree.ReparsePost(e.builder); err != nil {
			e.logger.Warn("reparse post: %v", err)
			return err
		}
	} else {
		for _, s := range sections {
			if s.Post() != e.post {
				continue
			}
			if err := e.tree.ReparseSection(e.builder, s); err != nil {
				e.logger.Warn("reparse section: %v", err)
				return err
			}
		}
	}
	if e.post.Sections.IsEmpty() {
		if err := e.post.Sections.Append(e.builder.CreateBlankSection()); err != nil {
			return err
		}
		e.tree.MarkDirty(e.post)
	}
	if !e.rng.IsBlank() {
		h, hok := e.resolveAnchor(head)
		tl, tok := e.resolveAnchor(tail)
		if hok && tok {
			e.setRange(cursor.NewRange(h, tl, e.rng.Direction))
		} else {
			e.setRange(cursor.Collapsed(cursor.PostTail(e.post)))
		}
	}
	if post.Describe(e.post) == before {
		return nil
	}

	action := posteditor.ActionInsertText
	if structural {
		action = posteditor.ActionStructural
	}
	if snap != nil {
		e.history.Record(snap, history.TakeSnapshot(e.post, e.rng), action)
	}
	e.events |= eventPostChanged
	e.logger.Debug("reparsed %d sections (whole=%t)", len(sections), whole)
	return e.renderIfMounted()
}

// anchor remembers a position by the text marker holding it, so that it
// can be found again after a reparse rewrote the marker.
type anchor struct {
	pos    cursor.Position
	marker *post.Marker
	value  string
	inner  int
}

func anchorAt(p cursor.Position) anchor {
	a := anchor{pos: p}
	if p.Section == nil || !p.Section.IsMarkerable() {
		return a
	}
	if m, inner := p.Section.MarkerAtOffset(p.Offset, false); m != nil && !m.IsAtom() {
		a.marker, a.value, a.inner = m, m.Value, inner
	}
	return a
}

// resolveAnchor maps an anchor onto the reparsed post. A surviving marker
// keeps the position at the same place in its text; otherwise the offset is
// clamped to the surviving section.
func (e *Engine) resolveAnchor(a anchor) (cursor.Position, bool) {
	if m := a.marker; m != nil {
		if s := m.Section(); s != nil && s.Post() == e.post {
			inner := remapOffset(a.value, m.Value, a.inner)
			return cursor.Position{Section: s, Offset: s.OffsetOfMarker(m) + inner}, true
		}
	}
	s := a.pos.Section
	if s == nil || !s.IsLeaf() || s.Post() != e.post {
		return cursor.Position{}, false
	}
	return cursor.Position{Section: s, Offset: min(max(a.pos.Offset, 0), s.Length())}, true
}

// remapOffset moves a rune offset in before to the matching offset in
// after. Only the span between the common prefix and suffix changed; an
// offset at the edge of that span ends up behind the new text.
func remapOffset(before, after string, offset int) int {
	a, b := []rune(before), []rune(after)
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	switch {
	case offset >= len(a)-suffix:
		return min(max(len(b)-(len(a)-offset), 0), len(b))
	case offset <= prefix:
		return offset
	default:
		return len(b) - suffix
	}
}

// ============================================================================
// DOM Mutations
// ============================================================================

// DidMutate reports mutations the user made to the rendered DOM. The
// affected sections are reparsed into the post after the reparse delay, or
// before the next edit, whichever comes first. Reports arriving before the
// job has run join it.
func (e *Engine) DidMutate(records []dom.MutationRecord) *Job {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		j := newJob(nil)
		j.finish(ErrDestroyed)
		return j
	}
	return e.reparse.add(records)
}

// FlushMutations reparses queued mutations now.
func (e *Engine) FlushMutations() error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	j := e.reparse.job
	e.reparse.flushPending()
	if j == nil {
		return nil
	}
	return j.err
}
