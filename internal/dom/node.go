package dom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ZWNJ is the invisible placeholder character bracketing cards and atoms.
const ZWNJ = "\u200c"

// AttrContentEditable is the attribute toggling native editing.
const AttrContentEditable = "contenteditable"

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// NewRoot creates the editor root element.
func NewRoot() *html.Node {
	return NewElement("div", html.Attribute{Key: AttrContentEditable, Val: "true"})
}

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool { return n != nil && n.Type == html.TextNode }

// IsElement reports whether n is an element, optionally with the given tag.
func IsElement(n *html.Node, tag ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tag) == 0 {
		return true
	}
	for _, t := range tag {
		if n.Data == t {
			return true
		}
	}
	return false
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr removes an attribute.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// HasClass reports whether the class attribute of n contains class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Append moves child to the end of parent.
func Append(parent, child *html.Node) {
	if child.Parent == parent && child.NextSibling == nil {
		return
	}
	Detach(child)
	parent.AppendChild(child)
}

// InsertBefore moves child before ref inside parent. A nil ref, or a ref
// belonging to another parent, appends.
func InsertBefore(parent, child, ref *html.Node) {
	if child == ref {
		return
	}
	if child.Parent == parent && child.NextSibling == ref && ref != nil {
		return
	}
	Detach(child)
	if ref == nil || ref.Parent != parent {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, ref)
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// Children returns the children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ChildCount returns the number of children of n.
func ChildCount(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}

// ChildAt returns the child at index, or nil.
func ChildAt(n *html.Node, index int) *html.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == index {
			return c
		}
		i++
	}
	return nil
}

// IndexOf returns the index of n among its siblings.
func IndexOf(n *html.Node) int {
	i := 0
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		i++
	}
	return i
}

// Contains reports whether n is ancestor or a descendant of it.
func Contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// TextLength returns the rune length of a text node.
func TextLength(n *html.Node) int {
	return utf8.RuneCountInString(n.Data)
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(TextContent(c))
	}
	return sb.String()
}
