package cursor

import (
	"fmt"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/folio/internal/engine/post"
)

// Direction is the direction of a movement or of a selection.
type Direction int

const (
	// Backward moves toward the head of the post.
	Backward Direction = -1

	// None marks a collapsed range.
	None Direction = 0

	// Forward moves toward the tail of the post.
	Forward Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Backward:
		return "backward"
	case Forward:
		return "forward"
	default:
		return "none"
	}
}

// Position is a cursor location inside a leaf section.
// Position is an immutable value type.
type Position struct {
	Section *post.Section
	Offset  int
}

// ToPosition validates offset against section and returns the position.
func ToPosition(section *post.Section, offset int) (Position, error) {
	if section == nil {
		return Position{}, fmt.Errorf("nil section: %w", ErrNotAddressable)
	}
	switch {
	case section.IsMarkerable():
		if offset < 0 || offset > section.Length() {
			return Position{}, fmt.Errorf("offset %d of %d: %w", offset, section.Length(), ErrOutOfRange)
		}
	case section.IsAtomic():
		if offset != 0 && offset != 1 {
			return Position{}, fmt.Errorf("offset %d on %s: %w", offset, section.Kind, ErrNotAddressable)
		}
	default:
		return Position{}, fmt.Errorf("%s: %w", section.Kind, ErrNotAddressable)
	}
	return Position{Section: section, Offset: offset}, nil
}

// Blank returns the position that addresses nothing.
func Blank() Position { return Position{} }

// Head returns the position at the start of section.
func Head(section *post.Section) Position {
	return Position{Section: section}
}

// Tail returns the position at the end of section.
func Tail(section *post.Section) Position {
	return Position{Section: section, Offset: section.Length()}
}

// PostHead returns the first position of p, or a blank position.
func PostHead(p *post.Post) Position {
	if leaf := p.FirstLeaf(); leaf != nil {
		return Head(leaf)
	}
	return Blank()
}

// PostTail returns the last position of p, or a blank position.
func PostTail(p *post.Post) Position {
	if leaf := p.LastLeaf(); leaf != nil {
		return Tail(leaf)
	}
	return Blank()
}

// IsBlank reports whether the position addresses nothing.
func (p Position) IsBlank() bool { return p.Section == nil }

// IsHead reports whether p is at the start of its section.
func (p Position) IsHead() bool { return p.Section != nil && p.Offset == 0 }

// IsTail reports whether p is at the end of its section.
func (p Position) IsTail() bool { return p.Section != nil && p.Offset == p.Section.Length() }

// Equal reports whether both positions address the same location.
func (p Position) Equal(other Position) bool {
	return p.Section == other.Section && p.Offset == other.Offset
}

// Compare returns -1 if p precedes other, 0 if equal, 1 if p follows other.
func (p Position) Compare(other Position) int {
	if p.Section != other.Section {
		return post.CompareSections(p.Section, other.Section)
	}
	switch {
	case p.Offset < other.Offset:
		return -1
	case p.Offset > other.Offset:
		return 1
	default:
		return 0
	}
}

// Marker returns the marker at p and the offset inside it. At a boundary
// between two markers the earlier one is returned.
func (p Position) Marker() (*post.Marker, int) {
	if p.Section == nil {
		return nil, 0
	}
	return p.Section.MarkerAtOffset(p.Offset, false)
}

// MarkerIn returns the non-blank marker adjacent to p in direction dir, or nil.
func (p Position) MarkerIn(dir Direction) *post.Marker {
	if p.Section == nil || !p.Section.IsMarkerable() {
		return nil
	}
	if dir == Backward {
		m, _ := markerBefore(p.Section, p.Offset)
		return m
	}
	m, _ := markerAfter(p.Section, p.Offset)
	return m
}

// String returns a debug representation.
func (p Position) String() string {
	if p.Section == nil {
		return "Position(blank)"
	}
	return fmt.Sprintf("Position(%s@%d)", p.Section.Kind, p.Offset)
}

// Move returns the position one character away in direction dir. A
// character is one code point of text, an atom, or one side of a card or
// image. At the head or tail of the post it returns p unchanged.
func (p Position) Move(dir Direction) Position {
	return p.move(dir, func(*post.Section, int, Direction) int { return 1 })
}

// MoveGrapheme is like Move but steps over a whole grapheme cluster, so a
// letter with combining marks or a joined emoji sequence is one step.
func (p Position) MoveGrapheme(dir Direction) Position {
	return p.move(dir, graphemeStep)
}

func (p Position) move(dir Direction, step func(*post.Section, int, Direction) int) Position {
	if p.Section == nil {
		return p
	}
	switch dir {
	case Forward:
		if p.Offset < p.Section.Length() {
			return Position{Section: p.Section, Offset: p.Offset + step(p.Section, p.Offset, dir)}
		}
		if next := p.Section.NextLeaf(); next != nil {
			return Head(next)
		}
	case Backward:
		if p.Offset > 0 {
			return Position{Section: p.Section, Offset: p.Offset - step(p.Section, p.Offset, dir)}
		}
		if prev := p.Section.PrevLeaf(); prev != nil {
			return Tail(prev)
		}
	}
	return p
}

// graphemeStep returns the length of the grapheme cluster next to offset.
func graphemeStep(s *post.Section, offset int, dir Direction) int {
	if !s.IsMarkerable() {
		return 1
	}
	if dir == Backward {
		m, inner := markerBefore(s, offset)
		if m == nil || m.IsAtom() {
			return 1
		}
		before, _ := post.SplitRunes(m.Value, inner)
		n := 0
		g := uniseg.NewGraphemes(before)
		for g.Next() {
			n = len(g.Runes())
		}
		return max(n, 1)
	}
	m, inner := markerAfter(s, offset)
	if m == nil || m.IsAtom() {
		return 1
	}
	_, rest := post.SplitRunes(m.Value, inner)
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(rest, -1)
	return max(utf8.RuneCountInString(cluster), 1)
}

// markerAfter returns the non-blank marker holding the unit that starts at
// offset, and the offset inside it.
func markerAfter(s *post.Section, offset int) (*post.Marker, int) {
	cur := 0
	for m := range s.Markers.All() {
		end := cur + m.Length()
		if cur <= offset && offset < end {
			return m, offset - cur
		}
		cur = end
	}
	return nil, 0
}

// markerBefore returns the non-blank marker holding the unit that ends at
// offset, and the offset inside it.
func markerBefore(s *post.Section, offset int) (*post.Marker, int) {
	cur := 0
	for m := range s.Markers.All() {
		end := cur + m.Length()
		if cur < offset && offset <= end {
			return m, offset - cur
		}
		cur = end
	}
	return nil, 0
}
