package engine

import (
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/posteditor"
	"github.com/dshills/folio/internal/render"
)

// cardHost receives the requests cards and atoms make through their Env.
// Requests made while a render pass is running wait until it has finished
// and then run as their own transactions.
type cardHost struct{ e *Engine }

func (h cardHost) SaveCard(s *post.Section, payload map[string]any, transition bool) {
	h.e.dispatch("save card", func() error {
		if transition {
			h.e.tree.SetCardMode(s, render.CardDisplay)
		}
		return h.e.run("save card", func(pe *posteditor.PostEditor) error {
			return pe.SetCardPayload(s, payload)
		})
	})
}

func (h cardHost) EditCard(s *post.Section) {
	h.e.dispatch("edit card", func() error {
		h.e.tree.SetCardMode(s, render.CardEdit)
		return h.e.renderIfMounted()
	})
}

func (h cardHost) DisplayCard(s *post.Section) {
	h.e.dispatch("display card", func() error {
		h.e.tree.SetCardMode(s, render.CardDisplay)
		return h.e.renderIfMounted()
	})
}

func (h cardHost) RemoveSection(s *post.Section) {
	h.e.dispatch("remove card", func() error {
		return h.e.run("remove card", func(pe *posteditor.PostEditor) error {
			if s.Post() != pe.Post() {
				return nil
			}
			return pe.RemoveSection(s)
		})
	})
}

func (h cardHost) RemoveAtom(m *post.Marker) {
	h.e.dispatch("remove atom", func() error {
		return h.e.run("remove atom", func(pe *posteditor.PostEditor) error {
			if s := m.Section(); s == nil || s.Post() != pe.Post() {
				return nil
			}
			return pe.RemoveMarker(m)
		})
	})
}

// dispatch runs op now, or after the render pass in progress.
func (e *Engine) dispatch(name string, op func() error) {
	if e.rendering.Load() {
		e.deferOp(op)
		return
	}
	e.mu.Lock()
	defer e.unlock()
	if err := op(); err != nil {
		e.logger.Warn("%s: %v", name, err)
	}
}
