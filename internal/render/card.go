package render

import (
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/engine/post"
)

// Card defines how a card section renders.
type Card struct {
	Name string

	// Render returns the display DOM of the card. A nil node renders nothing.
	Render func(env *Env, payload map[string]any) (*html.Node, error)

	// Edit returns the edit-mode DOM. When nil, Render is used.
	Edit func(env *Env, payload map[string]any) (*html.Node, error)
}

// Atom defines how an atom marker renders.
type Atom struct {
	Name string

	// Render returns the DOM of the atom. A nil node renders nothing.
	Render func(env *Env, value string, payload map[string]any) (*html.Node, error)
}

// Host receives the requests cards and atoms make through their Env. The
// editor implements it; calls made while a render pass is running are
// deferred to a new transaction.
type Host interface {
	SaveCard(section *post.Section, payload map[string]any, transition bool)
	EditCard(section *post.Section)
	DisplayCard(section *post.Section)
	RemoveSection(section *post.Section)
	RemoveAtom(marker *post.Marker)
}

// Env is passed to card and atom callbacks.
type Env struct {
	// Name is the card or atom name.
	Name string

	// Post is the post being edited.
	Post *post.Post

	// Section is the card section, or the section holding the atom.
	Section *post.Section

	// Marker is the atom marker, nil for cards.
	Marker *post.Marker

	host     Host
	node     *RenderNode
	renderer *Renderer
}

// IsAtom reports whether the env belongs to an atom.
func (e *Env) IsAtom() bool { return e.Marker != nil }

// Save stores a new card payload. With transition the card returns to
// display mode.
func (e *Env) Save(payload map[string]any, transition bool) {
	if e.host != nil && !e.IsAtom() {
		e.host.SaveCard(e.Section, payload, transition)
	}
}

// Cancel returns the card to display mode without saving.
func (e *Env) Cancel() {
	if e.host != nil && !e.IsAtom() {
		e.host.DisplayCard(e.Section)
	}
}

// Edit switches the card to edit mode.
func (e *Env) Edit() {
	if e.host != nil && !e.IsAtom() {
		e.host.EditCard(e.Section)
	}
}

// Remove deletes the card section or the atom.
func (e *Env) Remove() {
	if e.host == nil {
		return
	}
	if e.IsAtom() {
		e.host.RemoveAtom(e.Marker)
		return
	}
	e.host.RemoveSection(e.Section)
}

// OnTeardown registers fn to run when the rendered content is discarded.
func (e *Env) OnTeardown(fn func()) {
	e.node.teardowns = append(e.node.teardowns, fn)
}

// DidRender registers fn to run once the current render pass has finished.
func (e *Env) DidRender(fn func()) {
	e.renderer.didRender = append(e.renderer.didRender, fn)
}
