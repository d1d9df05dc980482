package lua

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/render"
)

// Logger receives script output. print() in a script logs at debug level.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger receiving print() output.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStateOptions configures the interpreter.
func WithStateOptions(opts ...StateOption) Option {
	return func(r *Registry) {
		r.stateOpts = append(r.stateOpts, opts...)
	}
}

// Registry runs plugin scripts and collects the cards and atoms they
// define. Scripts share one interpreter.
type Registry struct {
	mu        sync.Mutex
	state     *State
	stateOpts []StateOption
	logger    Logger

	cards     []render.Card
	atoms     []render.Atom
	cardNames map[string]bool
	atomNames map[string]bool
}

// New creates a registry with the folio module installed.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:    nopLogger{},
		cardNames: make(map[string]bool),
		atomNames: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state = NewState(r.stateOpts...)
	r.install(r.state.L)
	return r
}

func (r *Registry) install(L *lua.LState) {
	registerNodeType(L)
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"card": r.luaCard,
		"atom": r.luaAtom,
		"el":   luaElement,
		"text": luaText,
		"html": luaHTML,
	})
	L.SetGlobal("folio", mod)
	L.SetGlobal("print", L.NewFunction(r.luaPrint))
}

// LoadFile runs the script at path.
func (r *Registry) LoadFile(path string) error {
	if err := r.state.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadString runs a script held in memory. name is used in errors.
func (r *Registry) LoadString(name, code string) error {
	if err := r.state.DoString(code); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// Cards returns the cards defined so far.
func (r *Registry) Cards() []render.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]render.Card(nil), r.cards...)
}

// Atoms returns the atoms defined so far.
func (r *Registry) Atoms() []render.Atom {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]render.Atom(nil), r.atoms...)
}

// Close releases the interpreter. Cards and atoms rendered afterwards fail
// with ErrStateClosed.
func (r *Registry) Close() {
	r.state.Close()
}

// ============================================================================
// Lua API
// ============================================================================

func (r *Registry) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	r.logger.Debug("lua: %s", strings.Join(parts, "\t"))
	return 0
}

// definition reads the name and callbacks of a folio.card or folio.atom
// table.
func definition(L *lua.LState, kind string, fields ...string) (string, map[string]*lua.LFunction) {
	def := L.CheckTable(1)
	name, ok := def.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		L.RaiseError("%s: %v: name must be a non-empty string", kind, ErrInvalidDefinition)
	}
	fns := make(map[string]*lua.LFunction)
	for _, f := range fields {
		switch v := def.RawGetString(f).(type) {
		case *lua.LFunction:
			fns[f] = v
		case *lua.LNilType:
		default:
			L.RaiseError("%s %q: %v: %s must be a function", kind, string(name), ErrInvalidDefinition, f)
		}
	}
	if fns["render"] == nil {
		L.RaiseError("%s %q: %v: render function required", kind, string(name), ErrInvalidDefinition)
	}
	return string(name), fns
}

// luaCard implements folio.card{name=..., render=fn(env, payload), edit=fn}.
func (r *Registry) luaCard(L *lua.LState) int {
	name, fns := definition(L, "card", "render", "edit")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cardNames[name] {
		L.RaiseError("card %q: %v", name, ErrDuplicateName)
	}
	r.cardNames[name] = true

	c := render.Card{Name: name, Render: r.cardFunc(fns["render"])}
	if fns["edit"] != nil {
		c.Edit = r.cardFunc(fns["edit"])
	}
	r.cards = append(r.cards, c)
	return 0
}

// luaAtom implements folio.atom{name=..., render=fn(env, value, payload)}.
func (r *Registry) luaAtom(L *lua.LState) int {
	name, fns := definition(L, "atom", "render")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.atomNames[name] {
		L.RaiseError("atom %q: %v", name, ErrDuplicateName)
	}
	r.atomNames[name] = true

	fn := fns["render"]
	r.atoms = append(r.atoms, render.Atom{
		Name: name,
		Render: func(env *render.Env, value string, payload map[string]any) (*html.Node, error) {
			return r.invoke(fn, env, lua.LString(value), payload)
		},
	})
	return 0
}

func (r *Registry) cardFunc(fn *lua.LFunction) func(*render.Env, map[string]any) (*html.Node, error) {
	return func(env *render.Env, payload map[string]any) (*html.Node, error) {
		return r.invoke(fn, env, nil, payload)
	}
}

// invoke calls a render callback as fn(env, payload), or
// fn(env, value, payload) for atoms.
func (r *Registry) invoke(fn *lua.LFunction, env *render.Env, value lua.LValue, payload map[string]any) (*html.Node, error) {
	ret, err := r.state.Call(fn, func(L *lua.LState) []lua.LValue {
		args := []lua.LValue{r.envTable(L, env)}
		if value != nil {
			args = append(args, value)
		}
		return append(args, mapToTable(L, payload))
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.Name, err)
	}
	n, err := resultNode(ret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", env.Name, err, ret.Type())
	}
	return n, nil
}

// envTable exposes env to a script:
//
//	env.name, env.is_atom
//	env.save(payload [, transition]), env.cancel(), env.edit(), env.remove()
//	env.on_teardown(fn)
func (r *Registry) envTable(L *lua.LState, env *render.Env) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(env.Name))
	t.RawSetString("is_atom", lua.LBool(env.IsAtom()))
	t.RawSetString("save", L.NewFunction(func(L *lua.LState) int {
		env.Save(toMap(L.Get(1)), lua.LVAsBool(L.Get(2)))
		return 0
	}))
	t.RawSetString("cancel", L.NewFunction(func(*lua.LState) int {
		env.Cancel()
		return 0
	}))
	t.RawSetString("edit", L.NewFunction(func(*lua.LState) int {
		env.Edit()
		return 0
	}))
	t.RawSetString("remove", L.NewFunction(func(*lua.LState) int {
		env.Remove()
		return 0
	}))
	t.RawSetString("on_teardown", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		env.OnTeardown(func() {
			if _, err := r.state.Call(fn, nil); err != nil {
				r.logger.Warn("%s teardown: %v", env.Name, err)
			}
		})
		return 0
	}))
	return t
}
