// Package config provides the configuration system for Folio.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← FOLIO_UNDO_DEPTH=10
//	├─────────────────────────────┤
//	│  2. Config File             │  ← folio.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: TOML and environment variable loading
//   - watcher: File watching for live reload
//
// # Settings
//
//	[undo]
//	depth = 5               # undo steps kept, 0 disables undo
//	block_timeout = "5s"    # typing within this window is one undo step
//
//	[reparse]
//	delay = "10ms"          # how long DOM mutations are collected
//
//	[logging]
//	level = "info"          # debug, info, warn, error
//
//	[mobiledoc]
//	version = "0.3.2"       # format written by Serialize
//
//	[plugins]
//	scripts = ["cards.lua"] # Lua files defining cards and atoms
//
// # Basic Usage
//
//	cfg := config.New(config.WithPath("folio.toml"))
//	if err := cfg.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer cfg.Close()
//
//	s, err := cfg.Settings()
//	depth := s.Undo.Depth
//
// # Live Reload
//
// With WithWatcher(true) the config file is watched and reloaded when it
// changes. Reload handlers receive the new settings:
//
//	cfg.OnReload(func(s config.Settings) {
//	    logger.SetLevel(s.Logging.Level)
//	})
package config
