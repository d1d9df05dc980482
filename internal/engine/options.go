package engine

import (
	"time"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/engine/history"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/render"
)

// Default configuration values.
const (
	DefaultUndoDepth        = history.DefaultDepth
	DefaultUndoBlockTimeout = history.DefaultBlockTimeout
	DefaultReparseDelay     = 10 * time.Millisecond
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithPost sets the post to edit. The engine takes ownership of it.
func WithPost(p *post.Post) Option {
	return func(e *Engine) {
		e.initPost = p
	}
}

// WithMobiledoc sets the initial content from a mobiledoc document.
// Ignored when WithPost is also given.
func WithMobiledoc(data []byte) Option {
	return func(e *Engine) {
		e.initMobiledoc = data
	}
}

// WithBuilder sets the builder used to create model objects. It must be the
// builder that created the post given to WithPost.
func WithBuilder(b *post.Builder) Option {
	return func(e *Engine) {
		if b != nil {
			e.builder = b
		}
	}
}

// WithRoot sets the element the post renders into.
func WithRoot(root *html.Node) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// WithCards registers card definitions.
func WithCards(cards ...render.Card) Option {
	return func(e *Engine) {
		e.renderOpts = append(e.renderOpts, render.WithCards(cards...))
	}
}

// WithAtoms registers atom definitions.
func WithAtoms(atoms ...render.Atom) Option {
	return func(e *Engine) {
		e.renderOpts = append(e.renderOpts, render.WithAtoms(atoms...))
	}
}

// WithUnknownCardHandler sets the card rendering unregistered card names.
func WithUnknownCardHandler(c render.Card) Option {
	return func(e *Engine) {
		e.renderOpts = append(e.renderOpts, render.WithUnknownCardHandler(c))
	}
}

// WithUnknownAtomHandler sets the atom rendering unregistered atom names.
func WithUnknownAtomHandler(a render.Atom) Option {
	return func(e *Engine) {
		e.renderOpts = append(e.renderOpts, render.WithUnknownAtomHandler(a))
	}
}

// WithParserPlugins registers plugins that turn unknown DOM into post
// content when mutations are reparsed.
func WithParserPlugins(plugins ...render.ParserPlugin) Option {
	return func(e *Engine) {
		e.parsers = append(e.parsers, plugins...)
	}
}

// WithUndoDepth sets how many undo steps are kept. Zero disables undo.
func WithUndoDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 0 {
			e.historyOpts = append(e.historyOpts, history.WithDepth(depth))
		}
	}
}

// WithUndoBlockTimeout sets the window in which consecutive typing or
// deleting merges into one undo step.
func WithUndoBlockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.historyOpts = append(e.historyOpts, history.WithBlockTimeout(d))
	}
}

// WithClock replaces the clock used for undo coalescing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.historyOpts = append(e.historyOpts, history.WithClock(now))
	}
}

// WithReparseDelay sets how long DOM mutations are collected before they
// are reparsed. Zero or less reparses synchronously inside DidMutate.
func WithReparseDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.reparseDelay = d
	}
}

// WithLogger sets the logger receiving debug output.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
