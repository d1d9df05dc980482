package dom

import "golang.org/x/net/html"

// Point is a location in the DOM: a node and an offset. For text nodes the
// offset counts runes; for elements it counts children.
type Point struct {
	Node   *html.Node
	Offset int
}

// IsZero reports whether the point addresses no node.
func (p Point) IsZero() bool { return p.Node == nil }

// Selection is the native selection: the anchor where it started and the
// focus where it ends.
type Selection struct {
	Anchor Point
	Focus  Point
}

// Caret returns a collapsed selection at p.
func Caret(p Point) Selection {
	return Selection{Anchor: p, Focus: p}
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return s.Anchor.IsZero() && s.Focus.IsZero() }

// IsCollapsed reports whether anchor and focus coincide.
func (s Selection) IsCollapsed() bool { return s.Anchor == s.Focus }

// MutationType is the kind of an observed DOM mutation.
type MutationType uint8

const (
	// MutationCharacterData is a change of a text node's content.
	MutationCharacterData MutationType = iota

	// MutationChildList is an insertion or removal of children.
	MutationChildList

	// MutationAttributes is a change of an element attribute.
	MutationAttributes
)

// String returns the mutation type name.
func (t MutationType) String() string {
	switch t {
	case MutationCharacterData:
		return "characterData"
	case MutationChildList:
		return "childList"
	case MutationAttributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// MutationRecord describes one external change of the DOM.
type MutationRecord struct {
	Type    MutationType
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}
