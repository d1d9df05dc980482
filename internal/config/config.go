package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dshills/folio/internal/config/loader"
	"github.com/dshills/folio/internal/config/watcher"
)

// Setting paths.
const (
	PathUndoDepth        = "undo.depth"
	PathUndoBlockTimeout = "undo.block_timeout"
	PathReparseDelay     = "reparse.delay"
	PathLogLevel         = "logging.level"
	PathMobiledocVersion = "mobiledoc.version"
	PathPluginScripts    = "plugins.scripts"
)

// LogLevels lists the accepted values of logging.level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config provides layered access to the Folio configuration.
type Config struct {
	mu sync.RWMutex

	path      string
	envPrefix string
	fs        loader.FileSystem
	environ   []string
	watch     bool
	versions  []string

	defaults map[string]any
	file     map[string]any
	env      map[string]any
	merged   map[string]any

	watcher  *watcher.Watcher
	handlers []func(Settings)
	onError  func(error)
	closed   bool
}

// Option configures a Config instance.
type Option func(*Config)

// WithPath sets the config file. A missing file is not an error.
func WithPath(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithEnvPrefix sets the environment variable prefix, "FOLIO_" by default.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnviron reads env instead of the process environment.
func WithEnviron(env []string) Option {
	return func(c *Config) {
		c.environ = env
	}
}

// WithFS reads the config file from fsys.
func WithFS(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithWatcher enables reloading the config file when it changes.
func WithWatcher(enable bool) Option {
	return func(c *Config) {
		c.watch = enable
	}
}

// WithVersions sets the accepted values of mobiledoc.version.
func WithVersions(versions ...string) Option {
	return func(c *Config) {
		c.versions = versions
	}
}

// WithErrorHandler receives errors of background reloads.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Config) {
		c.onError = fn
	}
}

// New creates a new Config instance with the given options.
func New(opts ...Option) *Config {
	c := &Config{
		envPrefix: loader.DefaultEnvPrefix,
		fs:        loader.DefaultFS(),
		defaults:  defaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.merged = loader.Clone(c.defaults)
	return c
}

// Load reads the config file and the environment, validates the result
// and, if enabled, starts watching the file.
func (c *Config) Load(_ context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.loadFile(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.loadEnvironment(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.remerge()
	if _, err := c.settingsLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	start := c.watch && c.path != "" && c.watcher == nil
	c.mu.Unlock()

	// Start file watcher outside the lock
	if start {
		return c.startWatcher()
	}
	return nil
}

func (c *Config) loadFile() error {
	c.file = nil
	if c.path == "" {
		return nil
	}
	data, err := loader.NewTOMLLoaderWithFS(c.fs, c.path).LoadWithIncludes(c.path, 8)
	if err != nil {
		return err
	}
	c.file = data
	return nil
}

func (c *Config) loadEnvironment() error {
	var l *loader.EnvLoader
	if c.environ != nil {
		l = loader.NewEnvLoaderFrom(c.envPrefix, c.environ)
	} else {
		l = loader.NewEnvLoader(c.envPrefix)
	}
	data, err := l.Load()
	if err != nil {
		return err
	}
	c.env = data
	return nil
}

func (c *Config) remerge() {
	merged := loader.Clone(c.defaults)
	merged = loader.DeepMerge(merged, loader.Clone(c.file))
	c.merged = loader.DeepMerge(merged, loader.Clone(c.env))
}

func (c *Config) startWatcher() error {
	w, err := watcher.New()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Watch(c.path); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", c.path, err)
	}
	w.OnChange(c.handleFileChange)

	c.mu.Lock()
	if c.closed || c.watcher != nil {
		c.mu.Unlock()
		w.Stop()
		return nil
	}
	c.watcher = w
	c.mu.Unlock()
	w.Start()
	return nil
}

// handleFileChange reloads the config file after the watcher saw it change.
// A file that fails to load or validate leaves the previous settings active.
func (c *Config) handleFileChange(event watcher.Event) {
	abs, _ := filepath.Abs(c.path)
	if event.Path != abs {
		return
	}
	if err := c.Reload(); err != nil {
		c.mu.RLock()
		onError := c.onError
		c.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
	}
}

// Reload re-reads the config file and notifies reload handlers.
func (c *Config) Reload() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prevFile, prevMerged := c.file, c.merged
	if err := c.loadFile(); err != nil {
		c.file = prevFile
		c.mu.Unlock()
		return err
	}
	c.remerge()
	s, err := c.settingsLocked()
	if err != nil {
		c.file, c.merged = prevFile, prevMerged
		c.mu.Unlock()
		return err
	}
	handlers := slices.Clone(c.handlers)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(s)
	}
	return nil
}

// OnReload registers fn to receive the settings after each reload.
func (c *Config) OnReload(fn func(Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// Close stops watching the config file.
func (c *Config) Close() {
	c.mu.Lock()
	c.closed = true
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// Path returns the config file path.
func (c *Config) Path() string { return c.path }

// ============================================================================
// Access
// ============================================================================

// Get returns the raw value at a dot-separated path.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.GetByPath(c.merged, path)
}

// Merged returns a copy of the merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.merged)
}

// GetString returns the string at path.
func (c *Config) GetString(path string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getString(path)
}

// GetInt returns the integer at path.
func (c *Config) GetInt(path string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getInt(path)
}

// GetDuration returns the duration at path. Strings are parsed with
// time.ParseDuration and integers are milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getDuration(path)
}

// GetStringSlice returns the list of strings at path.
func (c *Config) GetStringSlice(path string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getStringSlice(path)
}

func (c *Config) lookup(path string) (any, error) {
	v, ok := loader.GetByPath(c.merged, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	return v, nil
}

func (c *Config) getString(path string) (string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int64, float64:
		// Environment values such as FOLIO_MOBILEDOC_VERSION=0.2 parse as numbers.
		return fmt.Sprint(s), nil
	}
	return "", &TypeError{Path: path, Expected: "string", Actual: fmt.Sprintf("%T", v)}
}

func (c *Config) getInt(path string) (int, error) {
	v, err := c.lookup(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "integer", Actual: fmt.Sprintf("%T", v)}
}

func (c *Config) getDuration(path string) (time.Duration, error) {
	v, err := c.lookup(path)
	if err != nil {
		return 0, err
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, &ValidationError{Path: path, Message: "invalid duration", Value: d}
		}
		return parsed, nil
	case int64:
		return time.Duration(d) * time.Millisecond, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("%T", v)}
}

func (c *Config) getStringSlice(path string) ([]string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), nil
	case string:
		if list == "" {
			return nil, nil
		}
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &TypeError{Path: path, Expected: "string array", Actual: fmt.Sprintf("[]%T", item)}
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &TypeError{Path: path, Expected: "string array", Actual: fmt.Sprintf("%T", v)}
}

// ============================================================================
// Settings
// ============================================================================

// Settings is the typed, validated view of the configuration.
type Settings struct {
	Undo struct {
		Depth        int
		BlockTimeout time.Duration
	}
	Reparse struct {
		Delay time.Duration
	}
	Logging struct {
		Level string
	}
	Mobiledoc struct {
		Version string
	}
	Plugins struct {
		Scripts []string
	}
}

// Settings returns the typed settings.
func (c *Config) Settings() (Settings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settingsLocked()
}

func (c *Config) settingsLocked() (Settings, error) {
	var s Settings
	var err error
	if s.Undo.Depth, err = c.getInt(PathUndoDepth); err != nil {
		return s, err
	}
	if s.Undo.Depth < 0 {
		return s, &ValidationError{Path: PathUndoDepth, Message: "must not be negative", Value: s.Undo.Depth}
	}
	if s.Undo.BlockTimeout, err = c.getDuration(PathUndoBlockTimeout); err != nil {
		return s, err
	}
	if s.Reparse.Delay, err = c.getDuration(PathReparseDelay); err != nil {
		return s, err
	}
	if s.Logging.Level, err = c.getString(PathLogLevel); err != nil {
		return s, err
	}
	s.Logging.Level = strings.ToLower(s.Logging.Level)
	if !slices.Contains(LogLevels, s.Logging.Level) {
		return s, &ValidationError{Path: PathLogLevel, Message: "unknown level", Value: s.Logging.Level}
	}
	if s.Mobiledoc.Version, err = c.getString(PathMobiledocVersion); err != nil {
		return s, err
	}
	if len(c.versions) > 0 && !slices.Contains(c.versions, s.Mobiledoc.Version) {
		return s, &ValidationError{Path: PathMobiledocVersion, Message: "unsupported version", Value: s.Mobiledoc.Version}
	}
	if s.Plugins.Scripts, err = c.getStringSlice(PathPluginScripts); err != nil {
		return s, err
	}
	if c.path != "" {
		base := filepath.Dir(c.path)
		for i, p := range s.Plugins.Scripts {
			if !filepath.IsAbs(p) {
				s.Plugins.Scripts[i] = filepath.Join(base, p)
			}
		}
	}
	return s, nil
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"undo": map[string]any{
			"depth":         5,
			"block_timeout": "5s",
		},
		"reparse": map[string]any{
			"delay": "10ms",
		},
		"logging": map[string]any{
			"level": "info",
		},
		"mobiledoc": map[string]any{
			"version": "0.3.2",
		},
		"plugins": map[string]any{
			"scripts": []any{},
		},
	}
}
