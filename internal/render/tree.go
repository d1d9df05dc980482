package render

import (
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/linkedlist"
	"github.com/dshills/folio/internal/engine/post"
)

// CardMode selects which card callback renders a card section.
type CardMode uint8

const (
	// CardDisplay renders a card with its Render callback.
	CardDisplay CardMode = iota

	// CardEdit renders a card with its Edit callback.
	CardEdit
)

// RenderNode links one model node to the DOM nodes rendering it.
type RenderNode struct {
	linkedlist.Links[*RenderNode]

	// PostNode is the *post.Post, *post.Section or *post.Marker rendered.
	PostNode any

	// Element is the DOM node owned by this render node: an element for
	// sections and atoms, a text node for text markers.
	Element *html.Node

	// CursorElement is the <br> keeping a blank section selectable.
	CursorElement *html.Node

	// HeadText and TailText are the ZWNJ placeholders around cards and atoms.
	HeadText *html.Node
	TailText *html.Node

	// ContentElement holds the user content of a card.
	ContentElement *html.Node

	Children *linkedlist.List[*RenderNode]

	parent    *RenderNode
	tree      *Tree
	dirty     bool
	removed   bool
	cardMode  CardMode
	teardowns []func()
}

// Parent returns the parent render node.
func (rn *RenderNode) Parent() *RenderNode { return rn.parent }

// IsDirty reports whether the node waits for a render pass.
func (rn *RenderNode) IsDirty() bool { return rn.dirty }

// IsRemoved reports whether the node was scheduled for removal.
func (rn *RenderNode) IsRemoved() bool { return rn.removed }

// CardMode returns the mode a card section renders in.
func (rn *RenderNode) CardMode() CardMode { return rn.cardMode }

// MarkDirty flags the node and its ancestors for the next render pass.
func (rn *RenderNode) MarkDirty() {
	for n := rn; n != nil; n = n.parent {
		n.dirty = true
	}
}

// ownedNodes returns the DOM nodes this render node inserted into its parent.
// Card placeholders live inside the card wrapper and are not included.
func (rn *RenderNode) ownedNodes() []*html.Node {
	if s, ok := rn.PostNode.(*post.Section); ok && s.IsCardSection() {
		if rn.Element == nil {
			return nil
		}
		return []*html.Node{rn.Element}
	}
	var out []*html.Node
	for _, n := range []*html.Node{rn.HeadText, rn.Element, rn.TailText} {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Tree is the render tree of one post.
type Tree struct {
	Root *RenderNode

	post     *post.Post
	nodes    map[any]*RenderNode
	elements map[*html.Node]*RenderNode
	plugins  []ParserPlugin
}

// NewTree creates a render tree for p rendering into root. The root render
// node starts dirty so the first pass renders everything.
func NewTree(p *post.Post, root *html.Node) *Tree {
	t := &Tree{
		post:     p,
		nodes:    make(map[any]*RenderNode),
		elements: make(map[*html.Node]*RenderNode),
	}
	t.Root = t.newNode(p)
	t.setElement(t.Root, root)
	return t
}

// Post returns the rendered post.
func (t *Tree) Post() *post.Post { return t.post }

// Element returns the root DOM element.
func (t *Tree) Element() *html.Node { return t.Root.Element }

// IsDirty reports whether a render pass is pending.
func (t *Tree) IsDirty() bool { return t.Root.dirty }

// Lookup returns the render node of a model node, or nil.
func (t *Tree) Lookup(postNode any) *RenderNode {
	return t.nodes[postNode]
}

// LookupElement returns the render node owning a DOM node, or nil.
func (t *Tree) LookupElement(n *html.Node) *RenderNode {
	return t.elements[n]
}

// Owner returns the render node owning n or its nearest owned ancestor.
func (t *Tree) Owner(n *html.Node) *RenderNode {
	for ; n != nil; n = n.Parent {
		if rn := t.elements[n]; rn != nil {
			return rn
		}
	}
	return nil
}

// IsInsideContent reports whether n belongs to the user-rendered content of
// a card or atom. Changes there never require a reparse.
func (t *Tree) IsInsideContent(n *html.Node) bool {
	rn := t.Owner(n)
	if rn == nil {
		return false
	}
	switch pn := rn.PostNode.(type) {
	case *post.Marker:
		return pn.IsAtom() && n != rn.HeadText && n != rn.TailText
	case *post.Section:
		return pn.IsCardSection() && rn.ContentElement != nil && dom.Contains(rn.ContentElement, n)
	}
	return false
}

// MarkDirty flags the render node of postNode for the next pass. A model
// node that was never rendered dirties its closest rendered ancestor.
func (t *Tree) MarkDirty(postNode any) {
	for postNode != nil {
		if rn := t.nodes[postNode]; rn != nil {
			rn.MarkDirty()
			return
		}
		postNode = modelParent(postNode)
	}
}

// ScheduleForRemoval flags the render node of postNode for removal during
// the next pass.
func (t *Tree) ScheduleForRemoval(postNode any) {
	rn := t.nodes[postNode]
	if rn == nil {
		return
	}
	rn.removed = true
	if rn.parent != nil {
		rn.parent.MarkDirty()
	}
}

// SetCardMode switches a card section between display and edit.
func (t *Tree) SetCardMode(section *post.Section, mode CardMode) {
	if rn := t.nodes[section]; rn != nil && rn.cardMode != mode {
		rn.cardMode = mode
		rn.MarkDirty()
	}
}

// Destroy tears the whole tree down and empties the root element.
func (t *Tree) Destroy() {
	for c := range t.Root.Children.All() {
		t.destroy(c)
	}
	dom.Clear(t.Root.Element)
	t.Root.dirty = true
}

func modelParent(postNode any) any {
	switch n := postNode.(type) {
	case *post.Marker:
		if s := n.Section(); s != nil {
			return s
		}
	case *post.Section:
		if p := n.Parent(); p != nil {
			return p
		}
		if p := n.Post(); p != nil {
			return p
		}
	}
	return nil
}

func (t *Tree) newNode(postNode any) *RenderNode {
	rn := &RenderNode{PostNode: postNode, tree: t, dirty: true}
	rn.Children = linkedlist.New[*RenderNode](
		linkedlist.WithAdopt(func(c *RenderNode) { c.parent = rn }),
		linkedlist.WithFree(func(c *RenderNode) { c.parent = nil }),
	)
	t.nodes[postNode] = rn
	return rn
}

// adopt registers an existing DOM node as the element of a new model node.
func (t *Tree) adopt(postNode any, n *html.Node) *RenderNode {
	rn := t.newNode(postNode)
	t.setElement(rn, n)
	return rn
}

func (t *Tree) setElement(rn *RenderNode, n *html.Node) {
	if rn.Element != nil && rn.Element != n {
		delete(t.elements, rn.Element)
		dom.Detach(rn.Element)
	}
	rn.Element = n
	if n != nil {
		t.elements[n] = rn
	}
}

func (t *Tree) setPlaceholders(rn *RenderNode) {
	if rn.HeadText == nil {
		rn.HeadText = dom.NewText(dom.ZWNJ)
		t.elements[rn.HeadText] = rn
	}
	if rn.TailText == nil {
		rn.TailText = dom.NewText(dom.ZWNJ)
		t.elements[rn.TailText] = rn
	}
}

// destroy detaches the DOM of rn and its descendants, runs teardown
// callbacks and drops every table entry.
func (t *Tree) destroy(rn *RenderNode) {
	for c := range rn.Children.All() {
		t.destroy(c)
	}
	rn.runTeardowns()
	for _, n := range []*html.Node{rn.HeadText, rn.Element, rn.TailText, rn.CursorElement, rn.ContentElement} {
		if n != nil {
			delete(t.elements, n)
		}
	}
	for _, n := range rn.ownedNodes() {
		dom.Detach(n)
	}
	if t.nodes[rn.PostNode] == rn {
		delete(t.nodes, rn.PostNode)
	}
	if rn.parent != nil {
		_ = rn.parent.Children.Remove(rn)
	}
	rn.removed = true
}

func (rn *RenderNode) runTeardowns() {
	fns := rn.teardowns
	rn.teardowns = nil
	for _, fn := range fns {
		fn()
	}
}

// syncChildren makes the children of parent mirror models in order, reusing
// existing render nodes and destroying those whose model node is gone.
func (t *Tree) syncChildren(parent *RenderNode, models []any) {
	want := make(map[any]bool, len(models))
	for _, m := range models {
		want[m] = true
	}
	for c := range parent.Children.All() {
		if c.removed || !want[c.PostNode] {
			t.destroy(c)
		}
	}
	var prev *RenderNode
	for _, m := range models {
		rn := t.nodes[m]
		if rn == nil || rn.removed {
			rn = t.newNode(m)
		}
		if rn.parent != nil && rn.parent != parent {
			for _, n := range rn.ownedNodes() {
				dom.Detach(n)
			}
			_ = rn.parent.Children.Remove(rn)
			rn.dirty = true
		}
		var expected *RenderNode
		if prev == nil {
			expected = parent.Children.Head()
		} else {
			expected = prev.Next()
		}
		if expected != rn {
			if rn.parent == parent {
				_ = parent.Children.Remove(rn)
			}
			_ = parent.Children.InsertBefore(rn, expected)
		}
		prev = rn
	}
}

// placeChildren orders the DOM of parent to match its render children and
// removes any DOM node no child owns.
func placeChildren(parent *RenderNode) {
	el := parent.Element
	cur := el.FirstChild
	for c := range parent.Children.All() {
		for _, n := range c.ownedNodes() {
			if n == cur {
				cur = cur.NextSibling
				continue
			}
			dom.InsertBefore(el, n, cur)
		}
	}
	for cur != nil {
		next := cur.NextSibling
		el.RemoveChild(cur)
		cur = next
	}
}
