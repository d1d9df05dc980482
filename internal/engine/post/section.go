package post

import (
	"fmt"
	"strings"

	"github.com/dshills/folio/internal/engine/linkedlist"
)

// SectionKind identifies the section variant.
type SectionKind uint8

const (
	// KindMarkup is a paragraph-like section (p, h1..h6, blockquote, ...).
	KindMarkup SectionKind = iota

	// KindList is a ul or ol holding list items.
	KindList

	// KindListItem is an li inside a list section.
	KindListItem

	// KindCard is an opaque block rendered by a registered card.
	KindCard

	// KindImage is an opaque block showing an image.
	KindImage
)

// String returns the kind name.
func (k SectionKind) String() string {
	switch k {
	case KindMarkup:
		return "markup-section"
	case KindList:
		return "list-section"
	case KindListItem:
		return "list-item"
	case KindCard:
		return "card-section"
	case KindImage:
		return "image-section"
	default:
		return "unknown"
	}
}

// Section is a structural unit of a post. Which fields are meaningful
// depends on Kind.
type Section struct {
	linkedlist.Links[*Section]

	Kind    SectionKind
	TagName string

	// Markers holds the content of markup sections and list items.
	Markers *linkedlist.List[*Marker]

	// Items holds the list items of a list section.
	Items *linkedlist.List[*Section]

	// Name and Payload describe a card.
	Name    string
	Payload map[string]any

	// Src is the URL of an image section.
	Src string

	attributes map[string]string
	parent     *Section
	post       *Post
}

func newSection(kind SectionKind, tag string) *Section {
	s := &Section{Kind: kind, TagName: tag}
	switch kind {
	case KindMarkup, KindListItem:
		s.Markers = linkedlist.New[*Marker](
			linkedlist.WithAdopt(func(m *Marker) { m.section = s }),
			linkedlist.WithFree(func(m *Marker) { m.section = nil }),
		)
	case KindList:
		s.Items = linkedlist.New[*Section](
			linkedlist.WithAdopt(func(item *Section) { item.parent = s }),
			linkedlist.WithFree(func(item *Section) { item.parent = nil }),
		)
	}
	return s
}

// IsMarkerable reports whether the section holds markers.
func (s *Section) IsMarkerable() bool {
	return s.Kind == KindMarkup || s.Kind == KindListItem
}

// IsListItem reports whether the section is a list item.
func (s *Section) IsListItem() bool { return s.Kind == KindListItem }

// IsListSection reports whether the section is a ul/ol.
func (s *Section) IsListSection() bool { return s.Kind == KindList }

// IsCardSection reports whether the section is a card.
func (s *Section) IsCardSection() bool { return s.Kind == KindCard }

// IsLeaf reports whether a cursor can be placed in the section.
func (s *Section) IsLeaf() bool { return s.Kind != KindList }

// IsAtomic reports whether the section is a card or image: addressable only
// at offsets 0 and 1.
func (s *Section) IsAtomic() bool { return s.Kind == KindCard || s.Kind == KindImage }

// Parent returns the list section owning a list item, or nil.
func (s *Section) Parent() *Section { return s.parent }

// Post returns the post containing the section, or nil when detached.
func (s *Section) Post() *Post {
	if s.parent != nil {
		return s.parent.post
	}
	return s.post
}

// Length returns the section length in model units. Cards and images have
// length 1.
func (s *Section) Length() int {
	switch s.Kind {
	case KindMarkup, KindListItem:
		n := 0
		for m := range s.Markers.All() {
			n += m.Length()
		}
		return n
	case KindCard, KindImage:
		return 1
	default:
		return 0
	}
}

// IsBlank reports whether the section has no content. Cards and images are
// never blank.
func (s *Section) IsBlank() bool {
	switch s.Kind {
	case KindMarkup, KindListItem:
		for m := range s.Markers.All() {
			if !m.IsBlank() {
				return false
			}
		}
		return true
	case KindList:
		return s.Items.IsEmpty()
	default:
		return false
	}
}

// Text returns the concatenated text of the section. Atoms contribute their
// value, so offsets into Text do not always equal model offsets.
func (s *Section) Text() string {
	var sb strings.Builder
	switch s.Kind {
	case KindMarkup, KindListItem:
		for m := range s.Markers.All() {
			sb.WriteString(m.Value)
		}
	case KindList:
		for item := range s.Items.All() {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(item.Text())
		}
	}
	return sb.String()
}

// Attribute returns the value of a section attribute.
func (s *Section) Attribute(name string) string {
	return s.attributes[name]
}

// Attributes returns a copy of the section attributes.
func (s *Section) Attributes() map[string]string {
	if len(s.attributes) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.attributes))
	for k, v := range s.attributes {
		out[k] = v
	}
	return out
}

// SetAttribute sets a section attribute. Only markup and list sections carry
// attributes.
func (s *Section) SetAttribute(name, value string) error {
	if s.Kind != KindMarkup && s.Kind != KindList {
		return fmt.Errorf("set attribute on %s: %w", s.Kind, ErrWrongKind)
	}
	if !IsSectionAttribute(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidAttribute)
	}
	if s.attributes == nil {
		s.attributes = make(map[string]string)
	}
	s.attributes[name] = value
	return nil
}

// RemoveAttribute clears a section attribute.
func (s *Section) RemoveAttribute(name string) error {
	if !IsSectionAttribute(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidAttribute)
	}
	delete(s.attributes, name)
	return nil
}

// SetTagName changes the tag, validating it against the section kind.
func (s *Section) SetTagName(tag string) error {
	tag = NormalizeTagName(tag)
	switch s.Kind {
	case KindMarkup:
		if !IsMarkupSectionTag(tag) {
			return fmt.Errorf("markup section %q: %w", tag, ErrInvalidTagName)
		}
	case KindList:
		if !IsListSectionTag(tag) {
			return fmt.Errorf("list section %q: %w", tag, ErrInvalidTagName)
		}
	default:
		return fmt.Errorf("set tag on %s: %w", s.Kind, ErrWrongKind)
	}
	s.TagName = tag
	return nil
}

// MarkerAtOffset returns the marker containing offset and the offset within
// it. Lookups are left-biased: at a boundary between two markers the earlier
// one is returned. With rightBias the later one is returned instead, except at
// the section tail. It returns nil for sections without markers.
func (s *Section) MarkerAtOffset(offset int, rightBias bool) (*Marker, int) {
	if !s.IsMarkerable() || s.Markers.IsEmpty() {
		return nil, 0
	}
	cur := 0
	for m := range s.Markers.All() {
		end := cur + m.Length()
		if offset < end || (offset == end && (!rightBias || m.Next() == nil)) {
			return m, offset - cur
		}
		cur = end
	}
	tail := s.Markers.Tail()
	return tail, tail.Length()
}

// OffsetOfMarker returns the section offset of the start of m.
func (s *Section) OffsetOfMarker(m *Marker) int {
	off := 0
	for cur := range s.Markers.All() {
		if cur == m {
			return off
		}
		off += cur.Length()
	}
	return off
}

// Join appends clones of other's non-blank markers and returns the first
// appended marker, or nil if nothing was appended.
func (s *Section) Join(other *Section) (*Marker, error) {
	if !s.IsMarkerable() || !other.IsMarkerable() {
		return nil, fmt.Errorf("join %s with %s: %w", s.Kind, other.Kind, ErrWrongKind)
	}
	var first *Marker
	for m := range other.Markers.All() {
		if m.IsBlank() {
			continue
		}
		c := m.Clone()
		if err := s.Markers.Append(c); err != nil {
			return nil, err
		}
		if first == nil {
			first = c
		}
	}
	return first, nil
}

// SplitAt returns two new detached sections of the same kind, tag and
// attributes holding the content before and after offset.
func (s *Section) SplitAt(offset int) (*Section, *Section, error) {
	if !s.IsMarkerable() {
		return nil, nil, fmt.Errorf("split %s: %w", s.Kind, ErrWrongKind)
	}
	if offset < 0 || offset > s.Length() {
		return nil, nil, fmt.Errorf("split at %d of %d: %w", offset, s.Length(), ErrOffsetOutOfRange)
	}
	pre, post := s.cloneShell(), s.cloneShell()
	cur := 0
	for m := range s.Markers.All() {
		end := cur + m.Length()
		var err error
		switch {
		case end <= offset:
			err = pre.Markers.Append(m.Clone())
		case cur >= offset:
			err = post.Markers.Append(m.Clone())
		default:
			left, right, splitErr := m.Split(offset - cur)
			if splitErr != nil {
				return nil, nil, splitErr
			}
			if err = pre.Markers.Append(left); err == nil {
				err = post.Markers.Append(right)
			}
		}
		if err != nil {
			return nil, nil, err
		}
		cur = end
	}
	return pre, post, nil
}

// cloneShell copies kind, tag, attributes and card data without children.
func (s *Section) cloneShell() *Section {
	c := newSection(s.Kind, s.TagName)
	c.Name = s.Name
	c.Payload = clonePayload(s.Payload)
	c.Src = s.Src
	c.attributes = s.Attributes()
	return c
}

// Clone returns a detached deep copy of the section. Markups are shared.
func (s *Section) Clone() *Section {
	c := s.cloneShell()
	switch s.Kind {
	case KindMarkup, KindListItem:
		for m := range s.Markers.All() {
			_ = c.Markers.Append(m.Clone())
		}
	case KindList:
		for item := range s.Items.All() {
			_ = c.Items.Append(item.Clone())
		}
	}
	return c
}

func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clonePayload(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}
