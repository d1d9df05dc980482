package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/render"
)

const cardsScript = `
folio.card{
	name = "counter",
	render = function(env, payload)
		return folio.el("button", {class = "counter", disabled = true}, "clicked ", payload.n or 0)
	end,
	edit = function(env, payload)
		env.save({n = (payload.n or 0) + 1}, true)
		return "saving"
	end,
}

folio.atom{
	name = "mention",
	render = function(env, value, payload)
		return folio.el("span", {["data-id"] = payload.id, class = "mention"}, value)
	end,
}

folio.card{
	name = "raw",
	render = function(env, payload)
		return folio.html(payload.html)
	end,
}
`

func newRegistry(t *testing.T, script string, opts ...Option) *Registry {
	t.Helper()
	r := New(opts...)
	t.Cleanup(r.Close)
	if err := r.LoadString("test", script); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return r
}

func serialize(t *testing.T, fn func() (string, error)) string {
	t.Helper()
	s, err := fn()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDefinitions(t *testing.T) {
	r := newRegistry(t, cardsScript)
	cards, atoms := r.Cards(), r.Atoms()
	if len(cards) != 2 || cards[0].Name != "counter" || cards[1].Name != "raw" {
		t.Fatalf("cards = %v", cards)
	}
	if cards[0].Edit == nil || cards[1].Edit != nil {
		t.Error("only counter defines an edit function")
	}
	if len(atoms) != 1 || atoms[0].Name != "mention" {
		t.Fatalf("atoms = %v", atoms)
	}
}

func TestRenderCard(t *testing.T) {
	r := newRegistry(t, cardsScript)
	tests := []struct {
		name    string
		card    int
		payload map[string]any
		want    string
	}{
		{"empty payload", 0, map[string]any{}, `<button class="counter" disabled="">clicked 0</button>`},
		{"integer", 0, map[string]any{"n": int64(3)}, `<button class="counter" disabled="">clicked 3</button>`},
		{"parsed number", 0, map[string]any{"n": float64(4)}, `<button class="counter" disabled="">clicked 4</button>`},
		{"html fragment", 1, map[string]any{"html": "<em>x</em>"}, `<em>x</em>`},
		{"several nodes", 1, map[string]any{"html": "<b>x</b>y"}, `<div><b>x</b>y</div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := r.Cards()[tt.card]
			n, err := c.Render(&render.Env{Name: c.Name}, tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			if got := serialize(t, func() (string, error) { return dom.Serialize(n) }); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderAtom(t *testing.T) {
	r := newRegistry(t, cardsScript)
	a := r.Atoms()[0]
	n, err := a.Render(&render.Env{Name: a.Name}, "@bob", map[string]any{"id": int64(7)})
	if err != nil {
		t.Fatal(err)
	}
	want := `<span class="mention" data-id="7">@bob</span>`
	if got := serialize(t, func() (string, error) { return dom.Serialize(n) }); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRenderResults(t *testing.T) {
	r := newRegistry(t, `
folio.card{name = "none", render = function() return nil end}
folio.card{name = "number", render = function() return 42 end}
folio.card{name = "fails", render = function() error("boom") end}
`)
	cards := r.Cards()

	n, err := cards[0].Render(&render.Env{Name: "none"}, nil)
	if err != nil || n != nil {
		t.Errorf("nil result = %v, %v", n, err)
	}
	if _, err := cards[1].Render(&render.Env{Name: "number"}, nil); !errors.Is(err, ErrBadResult) {
		t.Errorf("number result error = %v", err)
	}
	if _, err := cards[2].Render(&render.Env{Name: "fails"}, nil); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error result = %v", err)
	}
}

func TestInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"missing name", `folio.card{render = function() end}`, "name must be"},
		{"missing render", `folio.card{name = "x"}`, "render function required"},
		{"edit not a function", `folio.card{name = "x", render = function() end, edit = 1}`, "edit must be a function"},
		{"duplicate card", `
folio.card{name = "x", render = function() end}
folio.card{name = "x", render = function() end}`, ErrDuplicateName.Error()},
		{"bad child", `folio.el("p", true)`, "node, string or table expected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			defer r.Close()
			err := r.LoadString(tt.name, tt.script)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSandbox(t *testing.T) {
	for _, code := range []string{
		`os.exit(1)`,
		`io.open("/etc/passwd")`,
		`dofile("x.lua")`,
		`require("os")`,
		`load("return 1")`,
	} {
		t.Run(code, func(t *testing.T) {
			r := New()
			defer r.Close()
			if err := r.LoadString("sandbox", code); err == nil {
				t.Errorf("%s should fail", code)
			}
		})
	}
}

func TestExecutionTimeout(t *testing.T) {
	r := New(WithStateOptions(WithExecutionTimeout(50 * time.Millisecond)))
	defer r.Close()
	err := r.LoadString("loop", `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("error = %v, want ErrExecutionTimeout", err)
	}
	// The state stays usable.
	if err := r.LoadString("after", `folio.card{name = "ok", render = function() end}`); err != nil {
		t.Errorf("LoadString after timeout: %v", err)
	}
}

func TestClosed(t *testing.T) {
	r := newRegistry(t, cardsScript)
	c := r.Cards()[0]
	r.Close()
	if _, err := c.Render(&render.Env{Name: c.Name}, nil); !errors.Is(err, ErrStateClosed) {
		t.Errorf("error = %v, want ErrStateClosed", err)
	}
}

type recordingLogger struct{ lines []string }

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.lines = append(l.lines, strings.TrimSpace(strings.ReplaceAll(msg, "%s", args[0].(string))))
}
func (l *recordingLogger) Warn(string, ...any) {}

func TestPrint(t *testing.T) {
	l := &recordingLogger{}
	newRegistry(t, `print("hello", 1)`, WithLogger(l))
	if len(l.lines) != 1 || l.lines[0] != "lua: hello\t1" {
		t.Errorf("lines = %q", l.lines)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.lua")
	if err := os.WriteFile(path, []byte(cardsScript), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New()
	defer r.Close()
	if err := r.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if len(r.Cards()) != 2 {
		t.Errorf("cards = %d", len(r.Cards()))
	}
	if err := r.LoadFile(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestEngineCards(t *testing.T) {
	r := newRegistry(t, cardsScript)
	doc := `{"version":"0.3.2","atoms":[["mention","@bob",{"id":7}]],` +
		`"cards":[["counter",{"n":1}]],"markups":[],` +
		`"sections":[[10,0],[1,"p",[[1,[],0,0]]]]}`
	e, err := engine.New(
		engine.WithMobiledoc([]byte(doc)),
		engine.WithCards(r.Cards()...),
		engine.WithAtoms(r.Atoms()...),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Destroy()
	if err := e.Render(); err != nil {
		t.Fatal(err)
	}
	out := serialize(t, e.HTML)
	for _, want := range []string{"clicked 1", `data-id="7"`, "@bob"} {
		if !strings.Contains(out, want) {
			t.Errorf("html %s should contain %s", out, want)
		}
	}

	// Edit mode saves an incremented payload and returns to display.
	card := e.Post().Sections.Head()
	if err := e.SetCardMode(card, render.CardEdit); err != nil {
		t.Fatal(err)
	}
	if n := e.Post().Sections.Head().Payload["n"]; n != int64(2) {
		t.Errorf("payload n = %v (%T), want 2", n, n)
	}
	if out := serialize(t, e.HTML); !strings.Contains(out, "clicked 2") {
		t.Errorf("html %s should show the saved payload", out)
	}
}
