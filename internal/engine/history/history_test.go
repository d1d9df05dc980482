package history

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/post/posttest"
	"github.com/dshills/folio/internal/engine/posteditor"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

// fixture runs transactions against a post and records them.
type fixture struct {
	t   *testing.T
	d   *posttest.DSL
	p   *post.Post
	h   *History
	rng cursor.Range
}

func newFixture(t *testing.T, h *History, sections func(d *posttest.DSL) []*post.Section) *fixture {
	d := posttest.New(t)
	p := d.Post(sections(d)...)
	return &fixture{t: t, d: d, p: p, h: h, rng: cursor.Collapsed(cursor.PostTail(p))}
}

func (f *fixture) run(fn func(e *posteditor.PostEditor) error) {
	f.t.Helper()
	before := TakeSnapshot(f.p, f.rng)
	e := posteditor.New(f.p, f.d.B, posteditor.WithRange(f.rng))
	if err := e.Begin(); err != nil {
		f.t.Fatalf("Begin: %v", err)
	}
	if err := fn(e); err != nil {
		f.t.Fatalf("edit: %v", err)
	}
	if err := e.Complete(); err != nil {
		f.t.Fatalf("Complete: %v", err)
	}
	f.rng = e.Range()
	f.h.Record(before, TakeSnapshot(f.p, f.rng), e.Action())
}

func (f *fixture) typeText(text string) {
	f.t.Helper()
	f.run(func(e *posteditor.PostEditor) error {
		_, err := e.InsertText(f.rng.Head, text)
		return err
	})
}

func (f *fixture) undo() {
	f.t.Helper()
	snap, err := f.h.Undo()
	if err != nil {
		f.t.Fatalf("Undo: %v", err)
	}
	f.rng = snap.Restore(f.p)
}

func (f *fixture) redo() {
	f.t.Helper()
	snap, err := f.h.Redo()
	if err != nil {
		f.t.Fatalf("Redo: %v", err)
	}
	f.rng = snap.Restore(f.p)
}

func (f *fixture) assert(want string) {
	f.t.Helper()
	if got := post.Describe(f.p); got != want {
		f.t.Errorf("post = %s, want %s", got, want)
	}
}

func text(s string) func(d *posttest.DSL) []*post.Section {
	return func(d *posttest.DSL) []*post.Section {
		if s == "" {
			return []*post.Section{d.P()}
		}
		return []*post.Section{d.Text(s)}
	}
}

func TestTypingWithinTimeoutCoalesces(t *testing.T) {
	c := newClock()
	f := newFixture(t, New(WithClock(c.now)), text(""))

	f.typeText("a")
	c.advance(time.Second)
	f.typeText("b")
	c.advance(time.Second)
	f.typeText("c")
	if n := f.h.UndoCount(); n != 1 {
		t.Fatalf("UndoCount = %d, want 1", n)
	}

	c.advance(DefaultBlockTimeout + time.Millisecond)
	f.typeText("d")
	if n := f.h.UndoCount(); n != 2 {
		t.Fatalf("UndoCount = %d, want 2", n)
	}

	f.undo()
	f.assert(`[p("abc")]`)
	f.undo()
	f.assert(`[p()]`)
	if f.h.CanUndo() {
		t.Error("CanUndo after undoing everything")
	}
}

func TestStructuralEditBreaksCoalescing(t *testing.T) {
	c := newClock()
	f := newFixture(t, New(WithClock(c.now)), text("ab"))

	f.typeText("c")
	f.run(func(e *posteditor.PostEditor) error {
		return e.ToggleMarkup("b", nil, cursor.PostRange(f.p))
	})
	f.typeText("d")
	if n := f.h.UndoCount(); n != 3 {
		t.Fatalf("UndoCount = %d, want 3", n)
	}
	info, ok := f.h.PeekUndo()
	if !ok || info.Action != posteditor.ActionInsertText {
		t.Errorf("PeekUndo = %+v, %v", info, ok)
	}
}

func TestDeleteDoesNotCoalesceWithTyping(t *testing.T) {
	c := newClock()
	f := newFixture(t, New(WithClock(c.now)), text("ab"))

	f.typeText("c")
	f.run(func(e *posteditor.PostEditor) error {
		_, err := e.DeleteAtPosition(f.rng.Head, cursor.Backward, posteditor.UnitChar)
		return err
	})
	f.run(func(e *posteditor.PostEditor) error {
		_, err := e.DeleteAtPosition(f.rng.Head, cursor.Backward, posteditor.UnitChar)
		return err
	})
	if n := f.h.UndoCount(); n != 2 {
		t.Fatalf("UndoCount = %d, want 2", n)
	}
	f.undo()
	f.assert(`[p("abc")]`)
}

func TestUndoRestoresRange(t *testing.T) {
	f := newFixture(t, New(), func(d *posttest.DSL) []*post.Section {
		return []*post.Section{d.Text("abc"), d.Text("def")}
	})
	start := cursor.NewRange(
		cursor.Position{Section: f.p.FirstLeaf(), Offset: 1},
		cursor.Position{Section: f.p.LastLeaf(), Offset: 2},
		cursor.Forward,
	)
	f.rng = start
	f.run(func(e *posteditor.PostEditor) error {
		_, err := e.DeleteRange(start)
		return err
	})
	f.assert(`[p("af")]`)

	f.undo()
	f.assert(`[p("abc"), p("def")]`)
	if f.rng.Head.Section != f.p.FirstLeaf() || f.rng.Head.Offset != 1 {
		t.Errorf("head = %v", f.rng.Head)
	}
	if f.rng.Tail.Section != f.p.LastLeaf() || f.rng.Tail.Offset != 2 {
		t.Errorf("tail = %v", f.rng.Tail)
	}
	if f.rng.Direction != cursor.Forward {
		t.Errorf("direction = %v", f.rng.Direction)
	}

	f.redo()
	f.assert(`[p("af")]`)
	if !f.rng.IsCollapsed() || f.rng.Head.Offset != 1 {
		t.Errorf("range after redo = %v", f.rng)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	f := newFixture(t, New(), text("a"))
	f.typeText("b")
	f.undo()
	if !f.h.CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}
	f.typeText("c")
	if f.h.CanRedo() {
		t.Error("CanRedo = true after a new edit")
	}
	if _, err := f.h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo err = %v", err)
	}
}

func TestUndoAfterUndoStartsNewStep(t *testing.T) {
	f := newFixture(t, New(), text(""))
	f.typeText("a")
	f.typeText("b")
	f.undo()
	f.typeText("x")
	if n := f.h.UndoCount(); n != 1 {
		t.Fatalf("UndoCount = %d, want 1", n)
	}
	f.typeText("y")
	if n := f.h.UndoCount(); n != 1 {
		t.Errorf("UndoCount = %d, typing after a fresh step should coalesce", n)
	}
}

func TestDepth(t *testing.T) {
	t.Run("evicts oldest", func(t *testing.T) {
		h := New(WithDepth(2), WithBlockTimeout(0))
		f := newFixture(t, h, text(""))
		for _, s := range []string{"a", "b", "c"} {
			h.BreakCoalescing()
			f.typeText(s)
		}
		if n := h.UndoCount(); n != 2 {
			t.Fatalf("UndoCount = %d, want 2", n)
		}
		f.undo()
		f.undo()
		f.assert(`[p("a")]`)
		if _, err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
			t.Errorf("Undo err = %v", err)
		}
	})
	t.Run("zero disables", func(t *testing.T) {
		h := New(WithDepth(0))
		f := newFixture(t, h, text(""))
		f.typeText("a")
		if h.CanUndo() {
			t.Error("CanUndo with depth 0")
		}
		if _, err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
			t.Errorf("Undo err = %v", err)
		}
	})
	t.Run("default", func(t *testing.T) {
		if d := New().Depth(); d != DefaultDepth {
			t.Errorf("Depth = %d, want %d", d, DefaultDepth)
		}
	})
	t.Run("shrink", func(t *testing.T) {
		h := New()
		f := newFixture(t, h, text(""))
		for _, s := range []string{"a", "b", "c"} {
			h.BreakCoalescing()
			f.typeText(s)
		}
		h.SetDepth(1)
		if n := h.UndoCount(); n != 1 {
			t.Errorf("UndoCount = %d, want 1", n)
		}
	})
}

func TestGroup(t *testing.T) {
	h := New()
	f := newFixture(t, h, text("a"))

	err := h.Transaction("Reformat", func() error {
		f.typeText("b")
		f.run(func(e *posteditor.PostEditor) error {
			return e.ToggleMarkup("i", nil, cursor.PostRange(f.p))
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := h.UndoCount(); n != 1 {
		t.Fatalf("UndoCount = %d, want 1", n)
	}
	info, _ := h.PeekUndo()
	if info.Description != "Reformat" || info.Action != posteditor.ActionStructural {
		t.Errorf("info = %+v", info)
	}
	f.undo()
	f.assert(`[p("a")]`)

	t.Run("cancel", func(t *testing.T) {
		h.Clear()
		scope := h.GroupScope("discarded")
		f.typeText("z")
		scope.Cancel()
		scope.End()
		if h.CanUndo() || h.IsGrouping() {
			t.Error("cancelled group should leave no step")
		}
	})
	t.Run("error cancels", func(t *testing.T) {
		h.Clear()
		boom := errors.New("boom")
		if err := h.Transaction("x", func() error { return boom }); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
		if h.IsGrouping() {
			t.Error("still grouping")
		}
	})
}

func TestCheckpoint(t *testing.T) {
	h := New(WithDepth(10))
	f := newFixture(t, h, text(""))
	f.typeText("a")
	cp := h.CreateCheckpoint()
	f.typeText("b")
	h.BreakCoalescing()
	f.typeText("c")

	snap, err := h.UndoToCheckpoint(cp)
	if err != nil || snap == nil {
		t.Fatalf("UndoToCheckpoint = %v, %v", snap, err)
	}
	f.rng = snap.Restore(f.p)
	f.assert(`[p("a")]`)

	snap, err = h.RedoToCheckpoint(Checkpoint{undoDepth: 3})
	if err != nil || snap == nil {
		t.Fatalf("RedoToCheckpoint = %v, %v", snap, err)
	}
	f.rng = snap.Restore(f.p)
	f.assert(`[p("abc")]`)
}

func TestSnapshotIsIndependent(t *testing.T) {
	d := posttest.New(t)
	s := d.Text("abc")
	p := d.Post(s)
	snap := TakeSnapshot(p, cursor.Collapsed(cursor.Tail(s)))

	e := posteditor.New(p, d.B)
	if err := e.Begin(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.InsertText(cursor.Tail(s), "d"); err != nil {
		t.Fatal(err)
	}
	if err := e.Complete(); err != nil {
		t.Fatal(err)
	}
	if got := post.Describe(snap.Post()); got != `[p("abc")]` {
		t.Errorf("snapshot post = %s", got)
	}

	r := snap.Restore(p)
	if got := post.Describe(p); got != `[p("abc")]` {
		t.Errorf("restored = %s", got)
	}
	if r.Head.Section != p.FirstLeaf() || r.Head.Offset != 3 {
		t.Errorf("range = %v", r)
	}
	if p.Sections.Contains(s) {
		t.Error("replaced section should be detached")
	}
}
