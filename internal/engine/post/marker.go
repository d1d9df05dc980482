package post

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/folio/internal/engine/linkedlist"
)

// MarkerKind distinguishes text runs from atoms.
type MarkerKind uint8

const (
	// MarkerText is a run of text.
	MarkerText MarkerKind = iota

	// MarkerAtom is an atomic inline unit of length 1.
	MarkerAtom
)

// String returns the kind name.
func (k MarkerKind) String() string {
	if k == MarkerAtom {
		return "atom"
	}
	return "marker"
}

// Marker is a text run or an atom inside a markerable section.
type Marker struct {
	linkedlist.Links[*Marker]

	Kind MarkerKind

	// Value is the text of a run, or the display value of an atom.
	Value string

	// Name and Payload are set for atoms only.
	Name    string
	Payload map[string]any

	// Markups is ordered from outermost to innermost.
	Markups []*Markup

	section *Section
}

// Section returns the section that owns the marker, or nil.
func (m *Marker) Section() *Section { return m.section }

// IsAtom reports whether the marker is an atom.
func (m *Marker) IsAtom() bool { return m.Kind == MarkerAtom }

// Length returns the marker length in model units: runes for text, 1 for atoms.
func (m *Marker) Length() int {
	if m.Kind == MarkerAtom {
		return 1
	}
	return utf8.RuneCountInString(m.Value)
}

// IsBlank reports whether the marker contributes nothing. Atoms are never blank.
func (m *Marker) IsBlank() bool {
	return m.Kind == MarkerText && m.Value == ""
}

// HasMarkup reports whether the marker carries m or an equivalent markup.
func (m *Marker) HasMarkup(markup *Markup) bool {
	return containsMarkup(m.Markups, markup)
}

// MarkupWithTag returns the first markup with the given tag, or nil.
func (m *Marker) MarkupWithTag(tag string) *Markup {
	for _, mu := range m.Markups {
		if mu.HasTag(tag) {
			return mu
		}
	}
	return nil
}

// AddMarkup appends markup as the innermost markup unless already present.
func (m *Marker) AddMarkup(markup *Markup) {
	if m.HasMarkup(markup) {
		return
	}
	m.Markups = append(m.Markups, markup)
}

// RemoveMarkup removes markup (or its equivalent) from the marker.
func (m *Marker) RemoveMarkup(markup *Markup) bool {
	for i, x := range m.Markups {
		if x == markup || x.Key() == markup.Key() {
			m.Markups = append(m.Markups[:i:i], m.Markups[i+1:]...)
			return true
		}
	}
	return false
}

// SameMarkups reports whether both markers carry the same markup set,
// ignoring order.
func (m *Marker) SameMarkups(other *Marker) bool {
	if len(m.Markups) != len(other.Markups) {
		return false
	}
	for _, mu := range m.Markups {
		if !other.HasMarkup(mu) {
			return false
		}
	}
	return true
}

// CanJoin reports whether m and other may be coalesced into one marker.
// Atoms never join.
func (m *Marker) CanJoin(other *Marker) bool {
	if m.IsAtom() || other.IsAtom() {
		return false
	}
	return m.SameMarkups(other)
}

// Clone returns an unowned copy sharing the same markups.
func (m *Marker) Clone() *Marker {
	c := &Marker{
		Kind:    m.Kind,
		Value:   m.Value,
		Name:    m.Name,
		Payload: clonePayload(m.Payload),
	}
	if len(m.Markups) > 0 {
		c.Markups = append([]*Markup(nil), m.Markups...)
	}
	return c
}

// Split divides a text marker at offset into two unowned markers carrying the
// same markups. Either half may be empty.
func (m *Marker) Split(offset int) (*Marker, *Marker, error) {
	if m.IsAtom() {
		return nil, nil, ErrAtomSplit
	}
	if offset < 0 || offset > m.Length() {
		return nil, nil, fmt.Errorf("split at %d of %d: %w", offset, m.Length(), ErrOffsetOutOfRange)
	}
	pre, post := m.Clone(), m.Clone()
	pre.Value, post.Value = SplitRunes(m.Value, offset)
	return pre, post, nil
}

// SplitRunes splits s at a rune offset.
func SplitRunes(s string, offset int) (string, string) {
	if offset <= 0 {
		return "", s
	}
	i := 0
	for byteIdx := range s {
		if i == offset {
			return s[:byteIdx], s[byteIdx:]
		}
		i++
	}
	return s, ""
}

// OpenedMarkups returns the markups this marker opens relative to the
// previous marker in its section.
func (m *Marker) OpenedMarkups() []*Markup {
	n := 0
	if prev := m.Prev(); prev != nil {
		n = commonMarkupPrefix(m.Markups, prev.Markups)
	}
	return m.Markups[n:]
}

// ClosedMarkups returns the markups this marker closes relative to the next
// marker in its section, innermost last.
func (m *Marker) ClosedMarkups() []*Markup {
	n := 0
	if next := m.Next(); next != nil {
		n = commonMarkupPrefix(m.Markups, next.Markups)
	}
	return m.Markups[n:]
}
