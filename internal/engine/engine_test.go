package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/post/posttest"
	"github.com/dshills/folio/internal/engine/posteditor"
	"github.com/dshills/folio/internal/render"
)

// ============================================================================
// Helpers
// ============================================================================

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Destroy)
	return e
}

func assertPost(t *testing.T, e *Engine, want string) {
	t.Helper()
	if got := post.Describe(e.Post()); got != want {
		t.Errorf("post = %s\nwant   %s", got, want)
	}
}

func assertHTML(t *testing.T, e *Engine, want string) {
	t.Helper()
	got, err := e.HTML()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("html = %s\nwant   %s", got, want)
	}
}

func at(s *post.Section, offset int) cursor.Position {
	return cursor.Position{Section: s, Offset: offset}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	e := newEngine(t)
	assertPost(t, e, `[p()]`)
	r := e.Range()
	if !r.IsCollapsed() || !r.Head.Equal(cursor.PostTail(e.Post())) {
		t.Errorf("range = %v", r)
	}
	if e.ID() == "" {
		t.Error("engine should have an id")
	}
	if e.IsRendered() {
		t.Error("engine should not render before Render")
	}
}

func TestNewWithContent(t *testing.T) {
	t.Run("post", func(t *testing.T) {
		d := posttest.New(t)
		p := d.Post(d.Text("abc"))
		e := newEngine(t, WithPost(p), WithBuilder(d.B))
		if e.Post() != p {
			t.Error("engine should edit the given post")
		}
		if got := e.Range().Head; !got.Equal(at(p.FirstLeaf(), 3)) {
			t.Errorf("head = %v", got)
		}
	})
	t.Run("mobiledoc", func(t *testing.T) {
		doc := `{"version":"0.3.2","atoms":[],"cards":[],"markups":[],` +
			`"sections":[[1,"h2",[[0,[],0,"Title"]]]]}`
		e := newEngine(t, WithMobiledoc([]byte(doc)))
		assertPost(t, e, `[h2("Title")]`)
	})
	t.Run("invalid mobiledoc", func(t *testing.T) {
		if _, err := New(WithMobiledoc([]byte(`{"version":"9.9"}`))); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("empty post", func(t *testing.T) {
		d := posttest.New(t)
		e := newEngine(t, WithPost(d.Post()), WithBuilder(d.B))
		assertPost(t, e, `[p()]`)
	})
}

// ============================================================================
// Editing
// ============================================================================

func TestInsertText(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{name: "plain", input: []string{"abc"}, want: `[p("abc")]`},
		{name: "consecutive", input: []string{"a", "b", "c"}, want: `[p("abc")]`},
		{name: "newline", input: []string{"ab\ncd"}, want: `[p("ab"), p("cd")]`},
		{name: "crlf", input: []string{"ab\r\ncd"}, want: `[p("ab"), p("cd")]`},
		{name: "trailing newline", input: []string{"ab\n"}, want: `[p("ab"), p()]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			for _, s := range tt.input {
				mustDo(t, e.InsertText(s))
			}
			assertPost(t, e, tt.want)
		})
	}
}

func TestInsertTextReplacesSelection(t *testing.T) {
	d := posttest.New(t)
	s := d.Text("abcd")
	e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
	mustDo(t, e.SetRange(cursor.NewRange(at(s, 1), at(s, 3), cursor.Forward)))
	mustDo(t, e.InsertText("X"))
	assertPost(t, e, `[p("aXd")]`)
	if got := e.Range().Head; !got.Equal(at(s, 2)) {
		t.Errorf("head = %v", got)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		forward bool
		unit    DeleteUnit
		offset  int
		want    string
	}{
		{name: "backward char", offset: 3, want: `[p("ab def")]`},
		{name: "forward char", forward: true, offset: 3, want: `[p("abcdef")]`},
		{name: "backward word", unit: UnitWord, offset: 7, want: `[p("abc ")]`},
		{name: "at start", offset: 0, want: `[p("abc def")]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := posttest.New(t)
			s := d.Text("abc def")
			e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
			mustDo(t, e.SetRange(cursor.Collapsed(at(s, tt.offset))))
			if tt.forward {
				mustDo(t, e.DeleteForward(tt.unit))
			} else {
				mustDo(t, e.DeleteBackward(tt.unit))
			}
			assertPost(t, e, tt.want)
		})
	}
}

func TestDeleteSelection(t *testing.T) {
	d := posttest.New(t)
	a, b := d.Text("abc"), d.Text("def")
	e := newEngine(t, WithPost(d.Post(a, b)), WithBuilder(d.B))
	mustDo(t, e.SetRange(cursor.NewRange(at(a, 1), at(b, 2), cursor.Forward)))
	mustDo(t, e.DeleteBackward(UnitChar))
	assertPost(t, e, `[p("af")]`)
	if r := e.Range(); !r.IsCollapsed() || !r.Head.Equal(at(a, 1)) {
		t.Errorf("range = %v", r)
	}
}

func TestBlankRange(t *testing.T) {
	e := newEngine(t)
	mustDo(t, e.SetRange(cursor.Range{}))
	if err := e.InsertText("x"); !errors.Is(err, ErrNoRange) {
		t.Errorf("InsertText err = %v", err)
	}
	if err := e.DeleteBackward(UnitChar); !errors.Is(err, ErrNoRange) {
		t.Errorf("DeleteBackward err = %v", err)
	}
}

func TestSetRangeRejectsForeignPosition(t *testing.T) {
	e := newEngine(t)
	d := posttest.New(t)
	other := d.Text("x")
	d.Post(other)
	err := e.SetRange(cursor.Collapsed(at(other, 0)))
	if !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("err = %v", err)
	}
	d2 := posttest.New(t)
	s := d2.Text("ab")
	e2 := newEngine(t, WithPost(d2.Post(s)), WithBuilder(d2.B))
	if err := e2.SetRange(cursor.Collapsed(at(s, 3))); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("out of bounds err = %v", err)
	}
}

func TestToggleMarkup(t *testing.T) {
	t.Run("selection", func(t *testing.T) {
		d := posttest.New(t)
		s := d.Text("abc")
		e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
		mustDo(t, e.SetRange(cursor.NewRange(at(s, 0), at(s, 2), cursor.Forward)))
		mustDo(t, e.ToggleMarkup("b", nil))
		assertPost(t, e, `[p(<b>"ab","c")]`)
		mustDo(t, e.ToggleMarkup("b", nil))
		assertPost(t, e, `[p("abc")]`)
	})
	t.Run("collapsed", func(t *testing.T) {
		e := newEngine(t)
		mustDo(t, e.InsertText("a"))
		mustDo(t, e.ToggleMarkup("b", nil))
		if !e.HasActiveMarkup("b") {
			t.Error("b should be active")
		}
		assertPost(t, e, `[p("a")]`)
		mustDo(t, e.InsertText("b"))
		mustDo(t, e.InsertText("c"))
		assertPost(t, e, `[p("a",<b>"bc")]`)
		mustDo(t, e.ToggleMarkup("B", nil))
		if e.HasActiveMarkup("b") {
			t.Error("b should be inactive")
		}
		mustDo(t, e.InsertText("d"))
		assertPost(t, e, `[p("a",<b>"bc","d")]`)
	})
	t.Run("moving clears toggles", func(t *testing.T) {
		d := posttest.New(t)
		s := d.Text("abc")
		e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
		mustDo(t, e.ToggleMarkup("em", nil))
		mustDo(t, e.SetRange(cursor.Collapsed(at(s, 1))))
		if len(e.ActiveMarkups()) != 0 {
			t.Errorf("active = %v", e.ActiveMarkups())
		}
	})
	t.Run("invalid tag", func(t *testing.T) {
		e := newEngine(t)
		if err := e.ToggleMarkup("blink", nil); !errors.Is(err, post.ErrInvalidTagName) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestSectionFormatting(t *testing.T) {
	d := posttest.New(t)
	s := d.Text("abc")
	e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
	mustDo(t, e.ToggleSection("h2"))
	assertPost(t, e, `[h2("abc")]`)
	mustDo(t, e.SetAttribute("data-md-text-align", "center"))
	assertPost(t, e, `[h2{data-md-text-align=center}("abc")]`)
	mustDo(t, e.RemoveAttribute("data-md-text-align"))
	assertPost(t, e, `[h2("abc")]`)
	mustDo(t, e.ToggleSection("h2"))
	assertPost(t, e, `[p("abc")]`)
}

func TestInsertCardAndAtom(t *testing.T) {
	d := posttest.New(t)
	s := d.Text("ab")
	e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
	mustDo(t, e.SetRange(cursor.Collapsed(at(s, 1))))
	mustDo(t, e.InsertAtom("mention", "@bob", map[string]any{"id": 7}))
	assertPost(t, e, `[p("a",@mention("@bob")map[id:7],"b")]`)

	mustDo(t, e.InsertCard("hr", nil))
	cards := 0
	for sec := range e.Post().Sections.All() {
		if sec.IsCardSection() && sec.Name == "hr" {
			cards++
		}
	}
	if cards != 1 {
		t.Errorf("post = %s", post.Describe(e.Post()))
	}
}

// ============================================================================
// Transactions
// ============================================================================

func TestRun(t *testing.T) {
	t.Run("edit", func(t *testing.T) {
		e := newEngine(t)
		err := e.Run(func(pe *posteditor.PostEditor) error {
			_, err := pe.InsertText(cursor.PostHead(pe.Post()), "hi")
			return err
		})
		mustDo(t, err)
		assertPost(t, e, `[p("hi")]`)
		if e.UndoCount() != 1 {
			t.Errorf("undo count = %d", e.UndoCount())
		}
	})
	t.Run("error", func(t *testing.T) {
		e := newEngine(t)
		boom := errors.New("boom")
		err := e.Run(func(pe *posteditor.PostEditor) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
		if e.CanUndo() {
			t.Error("a transaction without changes should not be recorded")
		}
	})
	t.Run("error after edits", func(t *testing.T) {
		e := newEngine(t)
		mustDo(t, e.Render())
		mustDo(t, e.InsertText("ab"))
		undo := e.UndoCount()
		boom := errors.New("boom")
		err := e.Run(func(pe *posteditor.PostEditor) error {
			if _, err := pe.InsertText(cursor.PostTail(pe.Post()), "cd"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		assertPost(t, e, `[p("ab")]`)
		assertHTML(t, e, `<p>ab</p>`)
		if e.UndoCount() != undo {
			t.Errorf("undo count = %d, want %d", e.UndoCount(), undo)
		}
		if r := e.Range(); !r.IsCollapsed() || !r.Head.Equal(cursor.PostTail(e.Post())) {
			t.Errorf("range = %v", r)
		}
		mustDo(t, e.InsertText("!"))
		assertPost(t, e, `[p("ab!")]`)
	})
	t.Run("panic", func(t *testing.T) {
		e := newEngine(t)
		err := e.Run(func(pe *posteditor.PostEditor) error { panic("kaboom") })
		if !errors.Is(err, ErrPanic) {
			t.Fatalf("err = %v", err)
		}
		mustDo(t, e.InsertText("ok"))
		assertPost(t, e, `[p("ok")]`)
	})
}

// ============================================================================
// Undo/Redo
// ============================================================================

func TestUndoCoalescing(t *testing.T) {
	c := newClock()
	e := newEngine(t, WithClock(c.Now))
	for _, s := range []string{"a", "b", "c"} {
		mustDo(t, e.InsertText(s))
		c.Advance(time.Second)
	}
	c.Advance(10 * time.Second)
	mustDo(t, e.InsertText("d"))
	assertPost(t, e, `[p("abcd")]`)
	if e.UndoCount() != 2 {
		t.Fatalf("undo count = %d, want 2", e.UndoCount())
	}

	mustDo(t, e.Undo())
	assertPost(t, e, `[p("abc")]`)
	mustDo(t, e.Undo())
	assertPost(t, e, `[p()]`)
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("err = %v", err)
	}

	mustDo(t, e.Redo())
	assertPost(t, e, `[p("abc")]`)
	if got := e.Range().Head; !got.Equal(at(e.Post().FirstLeaf(), 3)) {
		t.Errorf("head after redo = %v", got)
	}
}

func TestUndoRestoresSelection(t *testing.T) {
	d := posttest.New(t)
	s := d.Text("abc")
	e := newEngine(t, WithPost(d.Post(s)), WithBuilder(d.B))
	sel := cursor.NewRange(at(s, 1), at(s, 3), cursor.Forward)
	mustDo(t, e.SetRange(sel))
	mustDo(t, e.DeleteBackward(UnitChar))
	assertPost(t, e, `[p("a")]`)

	mustDo(t, e.Undo())
	assertPost(t, e, `[p("abc")]`)
	leaf := e.Post().FirstLeaf()
	r := e.Range()
	if !r.Head.Equal(at(leaf, 1)) || !r.Tail.Equal(at(leaf, 3)) || r.Direction != cursor.Forward {
		t.Errorf("range = %v", r)
	}
	if leaf == s {
		t.Error("undo should restore a copy of the section")
	}
}

func TestUndoDepth(t *testing.T) {
	e := newEngine(t, WithUndoDepth(0))
	mustDo(t, e.InsertText("a"))
	if e.CanUndo() {
		t.Error("depth 0 should disable undo")
	}

	e2 := newEngine(t, WithUndoDepth(2))
	for _, tag := range []string{"h1", "h2", "h3"} {
		mustDo(t, e2.ToggleSection(tag))
	}
	if e2.UndoCount() != 2 {
		t.Errorf("undo count = %d, want 2", e2.UndoCount())
	}
}

func TestUndoGroup(t *testing.T) {
	d := posttest.New(t)
	e := newEngine(t, WithPost(d.Post(d.Text("abc"))), WithBuilder(d.B))
	err := e.UndoGroup("Reformat", func() error {
		if err := e.ToggleSection("h2"); err != nil {
			return err
		}
		return e.SetAttribute("data-md-text-align", "center")
	})
	mustDo(t, err)
	if e.UndoCount() != 1 {
		t.Fatalf("undo count = %d", e.UndoCount())
	}
	mustDo(t, e.Undo())
	assertPost(t, e, `[p("abc")]`)
}

func TestRevertToCheckpoint(t *testing.T) {
	e := newEngine(t)
	mustDo(t, e.InsertText("keep"))
	cp := e.Checkpoint()
	mustDo(t, e.ToggleSection("h1"))
	mustDo(t, e.InsertText("!"))
	mustDo(t, e.RevertToCheckpoint(cp))
	assertPost(t, e, `[p("keep")]`)
}

// ============================================================================
// Rendering
// ============================================================================

func TestRender(t *testing.T) {
	e := newEngine(t)
	mustDo(t, e.Render())
	assertHTML(t, e, `<p><br/></p>`)

	mustDo(t, e.InsertText("ab"))
	assertHTML(t, e, `<p>ab</p>`)
	mustDo(t, e.ToggleSection("h1"))
	assertHTML(t, e, `<h1>ab</h1>`)
	mustDo(t, e.Undo())
	assertHTML(t, e, `<p>ab</p>`)

	if _, ok := e.DOMSelection(); !ok {
		t.Error("collapsed range should map to a DOM point")
	}
}

func TestRenderCallbacks(t *testing.T) {
	e := newEngine(t)
	var order []string
	e.OnWillRender(func() { order = append(order, "will") })
	e.OnDidRender(func() { order = append(order, "did") })
	mustDo(t, e.Render())
	if len(order) != 2 || order[0] != "will" || order[1] != "did" {
		t.Errorf("order = %v", order)
	}
}

func TestChangeCallbacks(t *testing.T) {
	e := newEngine(t)
	posts, cursors := 0, 0
	e.OnPostDidChange(func() {
		posts++
		_ = e.Range() // callbacks may re-enter the engine
	})
	e.OnCursorDidChange(func() { cursors++ })

	mustDo(t, e.InsertText("a"))
	if posts != 1 || cursors != 1 {
		t.Errorf("after insert: posts=%d cursors=%d", posts, cursors)
	}
	mustDo(t, e.SetRange(e.Range()))
	if cursors != 1 {
		t.Errorf("unchanged range fired cursor callback")
	}
	mustDo(t, e.Undo())
	if posts != 2 {
		t.Errorf("after undo: posts=%d", posts)
	}
	_ = e.Run(func(pe *posteditor.PostEditor) error { return nil })
	if posts != 2 {
		t.Errorf("empty transaction fired post callback")
	}
}

func TestCardSaveDuringRender(t *testing.T) {
	d := posttest.New(t)
	card := d.Card("counter")
	saved := false
	c := render.Card{
		Name: "counter",
		Render: func(env *render.Env, payload map[string]any) (*html.Node, error) {
			if !saved {
				saved = true
				env.Save(map[string]any{"n": 1}, false)
			}
			return dom.NewText("card"), nil
		},
	}
	e := newEngine(t, WithPost(d.Post(card)), WithBuilder(d.B), WithCards(c))
	mustDo(t, e.Render())

	head := e.Post().Sections.Head()
	if head.Payload["n"] != 1 {
		t.Errorf("payload = %v", head.Payload)
	}
	if !e.CanUndo() {
		t.Error("saving a card should be undoable")
	}
}

func TestCardModes(t *testing.T) {
	d := posttest.New(t)
	card := d.Card("c")
	c := render.Card{
		Name: "c",
		Render: func(env *render.Env, payload map[string]any) (*html.Node, error) {
			return dom.NewText("show"), nil
		},
		Edit: func(env *render.Env, payload map[string]any) (*html.Node, error) {
			return dom.NewText("edit"), nil
		},
	}
	e := newEngine(t, WithPost(d.Post(card)), WithBuilder(d.B), WithCards(c))
	mustDo(t, e.Render())
	mustDo(t, e.SetCardMode(card, render.CardEdit))
	if rn := e.Tree().Lookup(card); rn == nil || rn.CardMode() != render.CardEdit {
		t.Fatal("card should be in edit mode")
	}
	if !containsText(e.Element(), "edit") {
		got, _ := e.HTML()
		t.Errorf("html = %s", got)
	}
}

func containsText(n *html.Node, s string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsText(c) && c.Data == s {
			return true
		}
		if containsText(c, s) {
			return true
		}
	}
	return false
}

// ============================================================================
// Serialization
// ============================================================================

func TestSerialize(t *testing.T) {
	e := newEngine(t)
	mustDo(t, e.InsertText("hello"))
	out, err := e.Serialize("0.3.2")
	mustDo(t, err)
	e2 := newEngine(t, WithMobiledoc(out))
	assertPost(t, e2, `[p("hello")]`)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestDestroy(t *testing.T) {
	e := newEngine(t)
	mustDo(t, e.InsertText("a"))
	mustDo(t, e.Render())
	e.Destroy()
	e.Destroy()

	if !e.IsDestroyed() {
		t.Error("engine should report destroyed")
	}
	assertHTML(t, e, ``)
	if err := e.InsertText("b"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("InsertText err = %v", err)
	}
	if err := e.Undo(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Undo err = %v", err)
	}
	if err := e.Render(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Render err = %v", err)
	}
}

func TestDestroyWithTeardownCallbacks(t *testing.T) {
	d := posttest.New(t)
	atom := d.Atom("mention", "@x")
	card := d.Card("c")
	var calls int
	c := render.Card{
		Name: "c",
		Render: func(env *render.Env, payload map[string]any) (*html.Node, error) {
			env.OnTeardown(func() {
				calls++
				env.Save(map[string]any{"n": 2}, true)
				env.Remove()
			})
			return dom.NewText("card"), nil
		},
	}
	a := render.Atom{
		Name: "mention",
		Render: func(env *render.Env, value string, payload map[string]any) (*html.Node, error) {
			env.OnTeardown(func() {
				calls++
				env.Remove()
			})
			return dom.NewText(value), nil
		},
	}
	e := newEngine(t, WithPost(d.Post(d.P(atom), card)), WithBuilder(d.B), WithCards(c), WithAtoms(a))
	mustDo(t, e.Render())

	done := make(chan struct{})
	go func() {
		e.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy did not return")
	}
	if calls != 2 {
		t.Errorf("teardown calls = %d, want 2", calls)
	}
	if err := e.InsertText("x"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("InsertText err = %v", err)
	}
}

func TestConcurrentEdits(t *testing.T) {
	e := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = e.InsertText("x")
				_ = e.Range()
			}
		}()
	}
	wg.Wait()
	if got := len(e.Post().Text()); got != 80 {
		t.Errorf("text length = %d, want 80", got)
	}
}
