package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/mobiledoc"
	"github.com/dshills/folio/internal/plugin/lua"
)

// Options configures an Application.
type Options struct {
	// ConfigPath is the TOML config file. Empty uses defaults and the
	// environment only.
	ConfigPath string

	// LogLevel overrides logging.level when set.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// PluginScripts are loaded after the scripts named in the config.
	PluginScripts []string

	// Watch reloads the config file when it changes.
	Watch bool

	// Environ replaces the process environment, for tests.
	Environ []string
}

// Application holds the configuration, logger and plugins shared by the
// engines it creates.
type Application struct {
	mu       sync.RWMutex
	opts     Options
	cfg      *config.Config
	settings config.Settings
	logger   *Logger
	plugins  *lua.Registry
	closed   bool
}

// New loads the configuration and plugin scripts.
func New(ctx context.Context, opts Options) (*Application, error) {
	logCfg := DefaultLoggerConfig()
	logCfg.Output = opts.LogOutput
	app := &Application{opts: opts, logger: NewLogger(logCfg)}

	cfgOpts := []config.Option{
		config.WithPath(opts.ConfigPath),
		config.WithWatcher(opts.Watch),
		config.WithVersions(mobiledoc.Versions()...),
		config.WithErrorHandler(func(err error) {
			app.logger.Warn("config reload: %v", err)
		}),
	}
	if opts.Environ != nil {
		cfgOpts = append(cfgOpts, config.WithEnviron(opts.Environ))
	}
	app.cfg = config.New(cfgOpts...)
	if err := app.cfg.Load(ctx); err != nil {
		app.cfg.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	settings, err := app.cfg.Settings()
	if err != nil {
		app.cfg.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	app.applySettings(settings)
	app.cfg.OnReload(func(s config.Settings) {
		app.applySettings(s)
		app.logger.Info("config reloaded from %s", app.cfg.Path())
	})

	app.plugins = lua.New(lua.WithLogger(app.logger.WithComponent("lua")))
	scripts := append(slices.Clone(settings.Plugins.Scripts), opts.PluginScripts...)
	for _, path := range scripts {
		if err := app.plugins.LoadFile(path); err != nil {
			app.Close()
			return nil, fmt.Errorf("%w: %w", ErrInitialization, NewOperationError("load plugin", path, err))
		}
		app.logger.Debug("loaded plugin %s", path)
	}
	return app, nil
}

func (a *Application) applySettings(s config.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	level := s.Logging.Level
	if a.opts.LogLevel != "" {
		level = a.opts.LogLevel
	}
	a.logger.SetLevel(ParseLogLevel(level))
}

// Logger returns the application logger.
func (a *Application) Logger() *Logger { return a.logger }

// Settings returns the current settings.
func (a *Application) Settings() config.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Plugins returns the registry holding the Lua cards and atoms.
func (a *Application) Plugins() *lua.Registry { return a.plugins }

// EngineOptions returns the engine options derived from the settings and
// plugins.
func (a *Application) EngineOptions() []engine.Option {
	s := a.Settings()
	return []engine.Option{
		engine.WithUndoDepth(s.Undo.Depth),
		engine.WithUndoBlockTimeout(s.Undo.BlockTimeout),
		engine.WithReparseDelay(s.Reparse.Delay),
		engine.WithLogger(a.logger.WithComponent("engine")),
		engine.WithCards(a.plugins.Cards()...),
		engine.WithAtoms(a.plugins.Atoms()...),
	}
}

// NewEngine creates an engine holding the document data in format f.
// Loading text or HTML is not recorded in the undo history.
func (a *Application) NewEngine(data []byte, f Format, extra ...engine.Option) (*engine.Engine, error) {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !f.CanRead() {
		return nil, fmt.Errorf("%w: cannot read %s", ErrUnsupportedFormat, f)
	}

	opts := a.EngineOptions()
	if f == FormatMobiledoc && len(data) > 0 {
		opts = append(opts, engine.WithMobiledoc(data))
	}
	e, err := engine.New(append(opts, extra...)...)
	if err != nil {
		return nil, NewOperationError("load", f.String(), err)
	}

	switch f {
	case FormatText:
		err = e.Paste(engine.Clipboard{Text: string(data)})
	case FormatHTML:
		err = loadHTML(e, data)
	}
	if err != nil {
		e.Destroy()
		return nil, NewOperationError("load", f.String(), err)
	}
	e.ClearHistory()
	a.logger.Debug("engine %s loaded %d bytes of %s", e.ID(), len(data), f)
	return e, nil
}

// loadHTML renders e, replaces its DOM with the parsed fragment and lets
// the engine reparse it.
func loadHTML(e *engine.Engine, data []byte) error {
	nodes, err := dom.ParseFragment(string(data))
	if err != nil {
		return err
	}
	if err := e.Render(); err != nil {
		return err
	}
	root := e.Element()
	removed := dom.Children(root)
	dom.Clear(root)
	var added []*html.Node
	for _, n := range nodes {
		// Indentation between blocks.
		if dom.IsText(n) && strings.TrimSpace(n.Data) == "" {
			continue
		}
		dom.Append(root, n)
		added = append(added, n)
	}
	job := e.DidMutate([]dom.MutationRecord{{
		Type:    dom.MutationChildList,
		Target:  root,
		Added:   added,
		Removed: removed,
	}})
	if err := e.FlushMutations(); err != nil {
		return err
	}
	<-job.Done()
	return job.Err()
}

// Write encodes the post of e in format f. Mobiledoc uses the configured
// version.
func (a *Application) Write(e *engine.Engine, f Format) ([]byte, error) {
	switch f {
	case FormatMobiledoc:
		return e.Serialize(a.Settings().Mobiledoc.Version)
	case FormatHTML:
		if !e.IsRendered() {
			if err := e.Render(); err != nil {
				return nil, err
			}
		}
		s, err := e.HTML()
		return []byte(s), err
	case FormatText:
		return []byte(e.Post().Text()), nil
	case FormatDescribe:
		return []byte(post.Describe(e.Post())), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// Convert reads data in one format and writes it in another.
func (a *Application) Convert(data []byte, from, to Format) ([]byte, error) {
	e, err := a.NewEngine(data, from)
	if err != nil {
		return nil, err
	}
	defer e.Destroy()
	out, err := a.Write(e, to)
	if err != nil {
		return nil, NewOperationError("write", to.String(), err)
	}
	return out, nil
}

// Close stops watching the config and releases the plugins.
func (a *Application) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cfg.Close()
	if a.plugins != nil {
		a.plugins.Close()
	}
}
