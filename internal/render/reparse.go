package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/post"
)

// ReparseSection re-derives the markers of a markerable section from its live
// DOM. Text nodes that still belong to a marker keep that marker; new text
// nodes become new markers; markers whose DOM disappeared are removed. Atoms
// are kept as they are.
func (t *Tree) ReparseSection(b *post.Builder, s *post.Section) error {
	if !s.IsMarkerable() {
		return nil
	}
	rn := t.nodes[s]
	if rn == nil || rn.Element == nil {
		return fmt.Errorf("reparse %s: %w", s.Kind, ErrNotRendered)
	}
	markers, err := t.collectMarkers(b, rn.Element, nil)
	if err != nil {
		return err
	}
	t.replaceMarkers(s, markers)
	return nil
}

// ReparsePost re-derives the whole post from the root element. Sections whose
// element disappeared are removed; unknown elements and stray text become new
// sections.
func (t *Tree) ReparsePost(b *post.Builder) error {
	p := t.post
	seen := make(map[*post.Section]bool)
	var order []*post.Section

	// Stray inline content between sections becomes a new section.
	var pending []*post.Marker
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		s := b.CreateBlankSection()
		detachMarkers(pending)
		for _, m := range pending {
			if err := s.Markers.Append(m); err != nil {
				return err
			}
		}
		pending = nil
		if !s.IsBlank() {
			order = append(order, s)
		}
		return nil
	}

	for n := t.Root.Element.FirstChild; n != nil; n = n.NextSibling {
		rn := t.elements[n]
		if rn == nil {
			if ctx, ok := t.runPlugins(b, n); ok {
				pending = append(pending, ctx.markers...)
				if len(ctx.sections) > 0 {
					if err := flush(); err != nil {
						return err
					}
					order = append(order, ctx.sections...)
				}
				continue
			}
			if n.Type == html.ElementNode && !dom.IsElement(n, "br") && isBlockTag(n.Data) {
				if err := flush(); err != nil {
					return err
				}
				s, err := t.sectionFromElement(b, n)
				if err != nil {
					return err
				}
				order = append(order, s)
				continue
			}
			markers, err := t.collectNode(b, n, nil)
			if err != nil {
				return err
			}
			pending = append(pending, markers...)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		s, ok := rn.PostNode.(*post.Section)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
		switch {
		case s.IsMarkerable():
			if err := t.ReparseSection(b, s); err != nil {
				return err
			}
		case s.IsListSection():
			if err := t.reparseList(b, rn, s); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	for s := range p.Sections.All() {
		if !containsSection(order, s) {
			_ = p.Sections.Remove(s)
			t.ScheduleForRemoval(s)
		}
	}
	var prev *post.Section
	for _, s := range order {
		if s.Post() != p {
			var err error
			if prev == nil {
				err = p.Sections.Prepend(s)
			} else {
				err = p.Sections.InsertAfter(s, prev)
			}
			if err != nil {
				return err
			}
		}
		prev = s
	}
	if p.Sections.IsEmpty() {
		if err := p.Sections.Append(b.CreateBlankSection()); err != nil {
			return err
		}
	}
	t.Root.MarkDirty()
	return nil
}

func (t *Tree) reparseList(b *post.Builder, rn *RenderNode, list *post.Section) error {
	seen := make(map[*post.Section]bool)
	for n := rn.Element.FirstChild; n != nil; n = n.NextSibling {
		irn := t.elements[n]
		if irn == nil {
			continue
		}
		item, ok := irn.PostNode.(*post.Section)
		if !ok || !item.IsListItem() {
			continue
		}
		seen[item] = true
		if err := t.ReparseSection(b, item); err != nil {
			return err
		}
	}
	for item := range list.Items.All() {
		if !seen[item] {
			_ = list.Items.Remove(item)
			t.ScheduleForRemoval(item)
		}
	}
	rn.MarkDirty()
	return nil
}

// sectionFromElement builds a new markup section from an element inserted
// outside the renderer, e.g. a paragraph split by native editing.
func (t *Tree) sectionFromElement(b *post.Builder, el *html.Node) (*post.Section, error) {
	if post.IsListSectionTag(el.Data) {
		return t.listFromElement(b, el)
	}
	tag := el.Data
	if !post.IsMarkupSectionTag(tag) {
		tag = post.DefaultSectionTag
	}
	markers, err := t.collectMarkers(b, el, nil)
	if err != nil {
		return nil, err
	}
	detachMarkers(markers)
	return b.CreateMarkupSection(tag, markers, nil)
}

// collectMarkers walks the children of n and returns their markers in
// order. Markups come from the markup elements above each text node.
func (t *Tree) collectMarkers(b *post.Builder, n *html.Node, markups []*post.Markup) ([]*post.Marker, error) {
	var out []*post.Marker
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ms, err := t.collectNode(b, c, markups)
		if err != nil {
			return nil, err
		}
		out = append(out, ms...)
	}
	return out, nil
}

func (t *Tree) collectNode(b *post.Builder, n *html.Node, markups []*post.Markup) ([]*post.Marker, error) {
	rn := t.elements[n]
	if rn == nil {
		if ctx, ok := t.runPlugins(b, n); ok {
			return ctx.markers, nil
		}
	}
	switch n.Type {
	case html.TextNode:
		if rn != nil {
			if m, ok := rn.PostNode.(*post.Marker); ok && m.IsAtom() {
				return placeholderText(b, n, markups), nil
			}
		}
		value := strings.ReplaceAll(n.Data, dom.ZWNJ, "")
		if value == "" {
			return nil, nil
		}
		if rn != nil {
			if m, ok := rn.PostNode.(*post.Marker); ok {
				m.Value = value
				m.Markups = append([]*post.Markup(nil), markups...)
				return []*post.Marker{m}, nil
			}
		}
		m := b.CreateMarker(value, markups...)
		t.adopt(m, n)
		return []*post.Marker{m}, nil
	case html.ElementNode:
		if rn != nil {
			if m, ok := rn.PostNode.(*post.Marker); ok && m.IsAtom() {
				return []*post.Marker{m}, nil
			}
		}
		if dom.IsElement(n, "br") {
			return nil, nil
		}
		if post.IsMarkupTag(n.Data) {
			attrs := make(map[string]string, len(n.Attr))
			for _, a := range n.Attr {
				if a.Namespace == "" && post.IsMarkupAttribute(a.Key) {
					attrs[a.Key] = a.Val
				}
			}
			if len(attrs) == 0 {
				attrs = nil
			}
			mu, err := b.CreateMarkup(n.Data, attrs)
			if err != nil {
				return nil, err
			}
			markups = append(markups[:len(markups):len(markups)], mu)
		}
		return t.collectMarkers(b, n, markups)
	}
	return nil, nil
}

// replaceMarkers makes the markers of s exactly markers, scheduling the
// render nodes of dropped markers for removal.
// placeholderText turns text typed into an atom placeholder into a new
// marker. The placeholder sits before or after the atom in the DOM, so the
// marker lands on the same side. The placeholder itself is reset.
func placeholderText(b *post.Builder, n *html.Node, markups []*post.Markup) []*post.Marker {
	typed := strings.ReplaceAll(n.Data, dom.ZWNJ, "")
	n.Data = dom.ZWNJ
	if typed == "" {
		return nil
	}
	return []*post.Marker{b.CreateMarker(typed, markups...)}
}

func (t *Tree) replaceMarkers(s *post.Section, markers []*post.Marker) {
	keep := make(map[*post.Marker]bool, len(markers))
	for _, m := range markers {
		keep[m] = true
	}
	for m := range s.Markers.All() {
		if !keep[m] {
			_ = s.Markers.Remove(m)
			t.ScheduleForRemoval(m)
		}
	}
	detachMarkers(markers)
	for _, m := range markers {
		_ = s.Markers.Append(m)
	}
	t.MarkDirty(s)
}

func detachMarkers(markers []*post.Marker) {
	for _, m := range markers {
		if owner := m.Section(); owner != nil {
			_ = owner.Markers.Remove(m)
		}
	}
}

func isBlockTag(tag string) bool {
	switch tag {
	case "div", "ul", "ol", "li":
		return true
	}
	return post.IsMarkupSectionTag(tag)
}

func containsSection(list []*post.Section, s *post.Section) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
