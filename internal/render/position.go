package render

import (
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// PositionFromNode resolves a DOM point captured from the native selection
// to the nearest cursor position. Points outside the root element resolve to
// a blank position.
func (t *Tree) PositionFromNode(node *html.Node, offset int) cursor.Position {
	root := t.Root.Element
	if node == nil || !dom.Contains(root, node) {
		return cursor.Blank()
	}
	p := t.post
	if node == root {
		count := dom.ChildCount(root)
		switch {
		case offset <= 0:
			return cursor.PostHead(p)
		case offset >= count:
			return cursor.PostTail(p)
		}
		if rn := t.Owner(dom.ChildAt(root, offset)); rn != nil {
			if s, ok := rn.PostNode.(*post.Section); ok {
				if leaf := firstLeafOf(s); leaf != nil {
					return cursor.Head(leaf)
				}
			}
		}
		return cursor.PostTail(p)
	}

	rn := t.Owner(node)
	if rn == nil || rn == t.Root {
		return t.positionInRoot(node)
	}
	switch pn := rn.PostNode.(type) {
	case *post.Marker:
		return markerPosition(rn, pn, node, offset)
	case *post.Section:
		return t.sectionPosition(rn, pn, node, offset)
	}
	return cursor.Blank()
}

// positionInRoot handles unowned nodes directly under the root, e.g. text
// typed outside any section.
func (t *Tree) positionInRoot(node *html.Node) cursor.Position {
	for n := node; n != nil && n.Parent != nil; n = n.Parent {
		if n.Parent != t.Root.Element {
			continue
		}
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if rn := t.elements[prev]; rn != nil {
				if s, ok := rn.PostNode.(*post.Section); ok {
					if leaf := lastLeafOf(s); leaf != nil {
						return cursor.Tail(leaf)
					}
				}
			}
		}
		return cursor.PostHead(t.post)
	}
	return cursor.Blank()
}

func markerPosition(rn *RenderNode, m *post.Marker, node *html.Node, offset int) cursor.Position {
	s := m.Section()
	if s == nil {
		return cursor.Blank()
	}
	base := s.OffsetOfMarker(m)
	if m.IsAtom() {
		switch {
		case node == rn.TailText:
			return cursor.Position{Section: s, Offset: base + 1}
		case node == rn.Element && offset > 0:
			return cursor.Position{Section: s, Offset: base + 1}
		default:
			return cursor.Position{Section: s, Offset: base}
		}
	}
	return cursor.Position{Section: s, Offset: base + clamp(offset, 0, m.Length())}
}

func (t *Tree) sectionPosition(rn *RenderNode, s *post.Section, node *html.Node, offset int) cursor.Position {
	switch s.Kind {
	case post.KindCard:
		switch {
		case node == rn.TailText:
			return cursor.Tail(s)
		case node == rn.Element && offset >= 2:
			return cursor.Tail(s)
		default:
			return cursor.Head(s)
		}
	case post.KindImage:
		if offset > 0 {
			return cursor.Tail(s)
		}
		return cursor.Head(s)
	case post.KindList:
		if offset >= s.Items.Len() {
			if tail := s.Items.Tail(); tail != nil {
				return cursor.Tail(tail)
			}
			return cursor.PostTail(t.post)
		}
		return cursor.Head(s.Items.ObjectAt(clamp(offset, 0, s.Items.Len()-1)))
	default:
		units := t.unitsBefore(rn.Element, node, offset)
		return cursor.Position{Section: s, Offset: clamp(units, 0, s.Length())}
	}
}

// unitsBefore counts the model units of the markers rendered before the DOM
// point (container, offset) inside a section element.
func (t *Tree) unitsBefore(sectionEl, container *html.Node, offset int) int {
	count := 0
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n == container {
			if n.Type == html.TextNode {
				return true
			}
			i := 0
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if i >= offset {
					return true
				}
				count += t.unitsIn(c)
				i++
			}
			return true
		}
		if n != sectionEl {
			if rn := t.elements[n]; rn != nil {
				if m, ok := rn.PostNode.(*post.Marker); ok {
					if dom.Contains(n, container) {
						return true
					}
					if n == rn.Element {
						count += m.Length()
					}
					return false
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(sectionEl)
	return count
}

// unitsIn counts the model units rendered inside n.
func (t *Tree) unitsIn(n *html.Node) int {
	if rn := t.elements[n]; rn != nil {
		if m, ok := rn.PostNode.(*post.Marker); ok {
			if n == rn.Element {
				return m.Length()
			}
			return 0
		}
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += t.unitsIn(c)
	}
	return total
}

// DOMPoint returns the DOM point rendering pos. It reports false when the
// section of pos has not been rendered.
func (t *Tree) DOMPoint(pos cursor.Position) (dom.Point, bool) {
	if pos.Section == nil {
		return dom.Point{}, false
	}
	rn := t.nodes[pos.Section]
	if rn == nil || rn.Element == nil {
		return dom.Point{}, false
	}
	s := pos.Section
	switch s.Kind {
	case post.KindCard:
		if pos.Offset == 0 {
			return dom.Point{Node: rn.HeadText, Offset: 0}, rn.HeadText != nil
		}
		return dom.Point{Node: rn.TailText, Offset: 0}, rn.TailText != nil
	case post.KindImage:
		parent := rn.Element.Parent
		if parent == nil {
			return dom.Point{}, false
		}
		return dom.Point{Node: parent, Offset: dom.IndexOf(rn.Element) + clamp(pos.Offset, 0, 1)}, true
	case post.KindList:
		return dom.Point{}, false
	}
	if s.IsBlank() {
		return dom.Point{Node: rn.Element, Offset: 0}, true
	}
	m, inner := s.MarkerAtOffset(pos.Offset, false)
	mrn := t.nodes[m]
	if mrn == nil || mrn.Element == nil {
		return dom.Point{}, false
	}
	if m.IsAtom() {
		if inner == 0 {
			return dom.Point{Node: mrn.HeadText, Offset: 0}, mrn.HeadText != nil
		}
		return dom.Point{Node: mrn.TailText, Offset: 1}, mrn.TailText != nil
	}
	return dom.Point{Node: mrn.Element, Offset: inner}, true
}

// SelectionFromRange returns the native selection rendering r.
func (t *Tree) SelectionFromRange(r cursor.Range) (dom.Selection, bool) {
	head, ok := t.DOMPoint(r.Head)
	if !ok {
		return dom.Selection{}, false
	}
	tail, ok := t.DOMPoint(r.Tail)
	if !ok {
		return dom.Selection{}, false
	}
	if r.Direction == cursor.Backward {
		return dom.Selection{Anchor: tail, Focus: head}, true
	}
	return dom.Selection{Anchor: head, Focus: tail}, true
}

// RangeFromSelection resolves a native selection to a range.
func (t *Tree) RangeFromSelection(sel dom.Selection) cursor.Range {
	anchor := t.PositionFromNode(sel.Anchor.Node, sel.Anchor.Offset)
	focus := t.PositionFromNode(sel.Focus.Node, sel.Focus.Offset)
	if anchor.IsBlank() || focus.IsBlank() {
		return cursor.Range{}
	}
	return cursor.FromAnchorFocus(anchor, focus)
}

func firstLeafOf(s *post.Section) *post.Section {
	if s.IsListSection() {
		return s.Items.Head()
	}
	return s
}

func lastLeafOf(s *post.Section) *post.Section {
	if s.IsListSection() {
		return s.Items.Tail()
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
