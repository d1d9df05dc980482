package render

import (
	"sort"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/post"
)

// Class names of renderer-owned wrappers.
const (
	CardClass = "__mobiledoc-card"
	AtomClass = "-mobiledoc-kit__atom"
)

// Renderer replays model dirtiness onto a Tree.
type Renderer struct {
	cards       map[string]Card
	atoms       map[string]Atom
	unknownCard *Card
	unknownAtom *Atom
	host        Host

	didRender []func()
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCards registers card definitions.
func WithCards(cards ...Card) Option {
	return func(r *Renderer) {
		for _, c := range cards {
			r.cards[c.Name] = c
		}
	}
}

// WithAtoms registers atom definitions.
func WithAtoms(atoms ...Atom) Option {
	return func(r *Renderer) {
		for _, a := range atoms {
			r.atoms[a.Name] = a
		}
	}
}

// WithUnknownCardHandler sets the card used for unregistered card names.
func WithUnknownCardHandler(c Card) Option {
	return func(r *Renderer) { r.unknownCard = &c }
}

// WithUnknownAtomHandler sets the atom used for unregistered atom names.
func WithUnknownAtomHandler(a Atom) Option {
	return func(r *Renderer) { r.unknownAtom = &a }
}

// WithHost sets the receiver of card and atom Env requests.
func WithHost(h Host) Option {
	return func(r *Renderer) { r.host = h }
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		cards: make(map[string]Card),
		atoms: make(map[string]Atom),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterCard adds or replaces a card definition.
func (r *Renderer) RegisterCard(c Card) { r.cards[c.Name] = c }

// RegisterAtom adds or replaces an atom definition.
func (r *Renderer) RegisterAtom(a Atom) { r.atoms[a.Name] = a }

// HasCard reports whether a card can be rendered by name.
func (r *Renderer) HasCard(name string) bool {
	_, ok := r.cards[name]
	return ok || r.unknownCard != nil
}

// HasAtom reports whether an atom can be rendered by name.
func (r *Renderer) HasAtom(name string) bool {
	_, ok := r.atoms[name]
	return ok || r.unknownAtom != nil
}

// Render runs one pass over the dirty nodes of t. DidRender callbacks run
// after the pass, even when it failed.
func (r *Renderer) Render(t *Tree) error {
	r.didRender = nil
	err := r.renderNode(t, t.Root)
	fns := r.didRender
	r.didRender = nil
	for _, fn := range fns {
		fn()
	}
	return err
}

func (r *Renderer) renderNode(t *Tree, rn *RenderNode) error {
	if !rn.dirty {
		return nil
	}
	var err error
	switch n := rn.PostNode.(type) {
	case *post.Post:
		err = r.renderPost(t, rn, n)
	case *post.Section:
		switch n.Kind {
		case post.KindMarkup, post.KindListItem:
			err = r.renderMarkerable(t, rn, n)
		case post.KindList:
			err = r.renderList(t, rn, n)
		case post.KindCard:
			err = r.renderCard(t, rn, n)
		case post.KindImage:
			r.renderImage(t, rn, n)
		}
	}
	if err != nil {
		return err
	}
	rn.dirty = false
	return nil
}

func (r *Renderer) renderPost(t *Tree, rn *RenderNode, p *post.Post) error {
	models := make([]any, 0, p.Sections.Len())
	for s := range p.Sections.All() {
		models = append(models, s)
	}
	return r.renderSectionChildren(t, rn, models)
}

func (r *Renderer) renderList(t *Tree, rn *RenderNode, s *post.Section) error {
	r.ensureElement(t, rn, s.TagName)
	syncAttributes(rn.Element, s)
	models := make([]any, 0, s.Items.Len())
	for item := range s.Items.All() {
		models = append(models, item)
	}
	return r.renderSectionChildren(t, rn, models)
}

func (r *Renderer) renderSectionChildren(t *Tree, rn *RenderNode, models []any) error {
	t.syncChildren(rn, models)
	for c := range rn.Children.All() {
		if err := r.renderNode(t, c); err != nil {
			return err
		}
	}
	placeChildren(rn)
	return nil
}

// ensureElement gives rn an element with tag, replacing one with another tag.
func (r *Renderer) ensureElement(t *Tree, rn *RenderNode, tag string) {
	if rn.Element != nil && rn.Element.Data == tag {
		return
	}
	old := rn.Element
	el := dom.NewElement(tag)
	if old != nil && old.Parent != nil {
		old.Parent.InsertBefore(el, old)
	}
	t.setElement(rn, el)
}

func syncAttributes(el *html.Node, s *post.Section) {
	attrs := s.Attributes()
	kept := el.Attr[:0]
	for _, a := range el.Attr {
		if _, ok := attrs[a.Key]; ok || !post.IsSectionAttribute(a.Key) {
			kept = append(kept, a)
		}
	}
	el.Attr = kept
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dom.SetAttr(el, k, attrs[k])
	}
}

// stackFrame is an open markup wrapper while rendering inline content.
type stackFrame struct {
	markup *post.Markup
	el     *html.Node
}

func (r *Renderer) renderMarkerable(t *Tree, rn *RenderNode, s *post.Section) error {
	r.ensureElement(t, rn, s.TagName)
	el := rn.Element
	syncAttributes(el, s)

	models := make([]any, 0, s.Markers.Len())
	for m := range s.Markers.All() {
		models = append(models, m)
	}
	t.syncChildren(rn, models)

	dom.Clear(el)
	stack := []stackFrame{{el: el}}
	for c := range rn.Children.All() {
		m := c.PostNode.(*post.Marker)

		keep := 0
		for keep+1 < len(stack) && m.HasMarkup(stack[keep+1].markup) {
			keep++
		}
		stack = stack[:keep+1]

		for _, mu := range markupsToOpen(m, stack) {
			wrapper := markupElement(mu)
			stack[len(stack)-1].el.AppendChild(wrapper)
			stack = append(stack, stackFrame{markup: mu, el: wrapper})
		}

		top := stack[len(stack)-1].el
		if m.IsAtom() {
			if err := r.renderAtom(t, c, s, m); err != nil {
				return err
			}
		} else {
			if c.Element == nil {
				t.setElement(c, dom.NewText(m.Value))
			}
			c.Element.Data = m.Value
		}
		for _, n := range c.ownedNodes() {
			dom.Append(top, n)
		}
		c.dirty = false
	}

	if s.IsBlank() {
		if rn.CursorElement == nil {
			rn.CursorElement = dom.NewElement("br")
		}
		dom.Append(el, rn.CursorElement)
	} else {
		rn.CursorElement = nil
	}
	return nil
}

// markupsToOpen returns the markups of m not already open, longest forward
// run first so that wrappers shared by following markers are outermost.
func markupsToOpen(m *post.Marker, stack []stackFrame) []*post.Markup {
	var open []*post.Markup
	for _, mu := range m.Markups {
		found := false
		for _, f := range stack[1:] {
			if f.markup == mu || f.markup.Key() == mu.Key() {
				found = true
				break
			}
		}
		if !found {
			open = append(open, mu)
		}
	}
	if len(open) < 2 {
		return open
	}
	runs := make(map[*post.Markup]int, len(open))
	for _, mu := range open {
		n := 0
		for next := m; next != nil && next.HasMarkup(mu); next = next.Next() {
			n++
		}
		runs[mu] = n
	}
	sort.SliceStable(open, func(i, j int) bool { return runs[open[i]] > runs[open[j]] })
	return open
}

func markupElement(mu *post.Markup) *html.Node {
	el := dom.NewElement(mu.TagName)
	keys := make([]string, 0, len(mu.Attributes))
	for k := range mu.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dom.SetAttr(el, k, mu.Attributes[k])
	}
	return el
}

func (r *Renderer) renderAtom(t *Tree, rn *RenderNode, s *post.Section, m *post.Marker) error {
	if rn.Element != nil && !rn.dirty {
		return nil
	}
	def, ok := r.atoms[m.Name]
	if !ok {
		if r.unknownAtom == nil {
			return &RenderError{Kind: "atom", Name: m.Name, Err: ErrUnknownAtom}
		}
		def = *r.unknownAtom
	}
	rn.runTeardowns()
	t.setPlaceholders(rn)
	if rn.Element == nil {
		t.setElement(rn, dom.NewElement("span",
			html.Attribute{Key: "class", Val: AtomClass},
			html.Attribute{Key: dom.AttrContentEditable, Val: "false"},
		))
	}
	dom.Clear(rn.Element)
	env := &Env{Name: m.Name, Post: s.Post(), Section: s, Marker: m, host: r.host, node: rn, renderer: r}
	content, err := def.Render(env, m.Value, m.Payload)
	if err != nil {
		return &RenderError{Kind: "atom", Name: m.Name, Err: err}
	}
	if content != nil {
		if content.Parent != nil {
			return &RenderError{Kind: "atom", Name: m.Name, Err: ErrNodeAttached}
		}
		rn.Element.AppendChild(content)
	}
	return nil
}

func (r *Renderer) renderCard(t *Tree, rn *RenderNode, s *post.Section) error {
	def, ok := r.cards[s.Name]
	if !ok {
		if r.unknownCard == nil {
			return &RenderError{Kind: "card", Name: s.Name, Err: ErrUnknownCard}
		}
		def = *r.unknownCard
	}
	rn.runTeardowns()
	if rn.Element == nil {
		t.setElement(rn, dom.NewElement("div", html.Attribute{Key: "class", Val: CardClass}))
		t.setPlaceholders(rn)
		rn.ContentElement = dom.NewElement("div", html.Attribute{Key: dom.AttrContentEditable, Val: "false"})
		dom.Append(rn.Element, rn.HeadText)
		dom.Append(rn.Element, rn.ContentElement)
		dom.Append(rn.Element, rn.TailText)
	}
	dom.Clear(rn.ContentElement)

	env := &Env{Name: s.Name, Post: s.Post(), Section: s, host: r.host, node: rn, renderer: r}
	fn := def.Render
	if rn.cardMode == CardEdit && def.Edit != nil {
		fn = def.Edit
	}
	if fn == nil {
		return nil
	}
	content, err := fn(env, s.Payload)
	if err != nil {
		return &RenderError{Kind: "card", Name: s.Name, Err: err}
	}
	if content != nil {
		if content.Parent != nil {
			return &RenderError{Kind: "card", Name: s.Name, Err: ErrNodeAttached}
		}
		rn.ContentElement.AppendChild(content)
	}
	return nil
}

func (r *Renderer) renderImage(t *Tree, rn *RenderNode, s *post.Section) {
	if rn.Element == nil {
		t.setElement(rn, dom.NewElement("img"))
	}
	dom.SetAttr(rn.Element, "src", s.Src)
}
