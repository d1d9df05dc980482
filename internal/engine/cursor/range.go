package cursor

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/post"
)

// Range is a selection between two positions. Head never follows Tail in
// document order; Direction tells which end is the focus.
// Range is an immutable value type.
type Range struct {
	Head      Position
	Tail      Position
	Direction Direction
}

// NewRange creates a range. The positions are swapped if tail precedes head.
func NewRange(head, tail Position, dir Direction) Range {
	if head.Compare(tail) > 0 {
		head, tail = tail, head
	}
	if head.Equal(tail) {
		dir = None
	}
	return Range{Head: head, Tail: tail, Direction: dir}
}

// Collapsed creates a collapsed range at p.
func Collapsed(p Position) Range {
	return Range{Head: p, Tail: p}
}

// FromAnchorFocus creates a range from the fixed end and the moving end.
func FromAnchorFocus(anchor, focus Position) Range {
	switch focus.Compare(anchor) {
	case -1:
		return Range{Head: focus, Tail: anchor, Direction: Backward}
	case 1:
		return Range{Head: anchor, Tail: focus, Direction: Forward}
	default:
		return Collapsed(anchor)
	}
}

// SectionRange creates a range covering the whole of section.
func SectionRange(section *post.Section) Range {
	return NewRange(Head(section), Tail(section), None)
}

// PostRange creates a range covering the whole post.
func PostRange(p *post.Post) Range {
	return NewRange(PostHead(p), PostTail(p), None)
}

// IsCollapsed reports whether head and tail are equal.
func (r Range) IsCollapsed() bool { return r.Head.Equal(r.Tail) }

// IsBlank reports whether the range addresses nothing.
func (r Range) IsBlank() bool { return r.Head.IsBlank() && r.Tail.IsBlank() }

// Equal reports whether both ranges cover the same positions.
func (r Range) Equal(other Range) bool {
	return r.Head.Equal(other.Head) && r.Tail.Equal(other.Tail)
}

// Focused returns the moving end of the range.
func (r Range) Focused() Position {
	if r.Direction == Backward {
		return r.Head
	}
	return r.Tail
}

// Anchor returns the fixed end of the range.
func (r Range) Anchor() Position {
	if r.Direction == Backward {
		return r.Tail
	}
	return r.Head
}

// Extend moves the focused end by units (negative extends backward). When the
// focus crosses the anchor the direction flips.
func (r Range) Extend(units int) Range {
	return r.extend(units, Position.Move)
}

// ExtendGrapheme moves the focused end by grapheme clusters.
func (r Range) ExtendGrapheme(units int) Range {
	return r.extend(units, Position.MoveGrapheme)
}

// ExtendWord moves the focused end by words.
func (r Range) ExtendWord(units int) Range {
	return r.extend(units, Position.MoveWord)
}

func (r Range) extend(units int, step func(Position, Direction) Position) Range {
	if units == 0 {
		return r
	}
	dir, n := Forward, units
	if units < 0 {
		dir, n = Backward, -units
	}
	anchor, focus := r.Anchor(), r.Focused()
	if r.IsCollapsed() {
		anchor, focus = r.Head, r.Head
	}
	for range n {
		focus = step(focus, dir)
	}
	return FromAnchorFocus(anchor, focus)
}

// Move collapses a non-collapsed range onto its head (units < 0) or tail
// (units > 0), then moves the collapsed range by the remaining units.
func (r Range) Move(units int) Range {
	if units == 0 {
		return r
	}
	dir, n := Forward, units
	if units < 0 {
		dir, n = Backward, -units
	}
	pos := r.Head
	if !r.IsCollapsed() {
		if dir == Forward {
			pos = r.Tail
		}
		n--
	}
	for range n {
		pos = pos.Move(dir)
	}
	return Collapsed(pos)
}

// TrimTo clamps the range to section. Offsets are kept where section holds
// an end of the range; otherwise the section's head or tail is used.
func (r Range) TrimTo(section *post.Section) Range {
	head, tail := Head(section), Tail(section)
	if r.Head.Section == section {
		head = r.Head
	}
	if r.Tail.Section == section {
		tail = r.Tail
	}
	return NewRange(head, tail, r.Direction)
}

// ExpandByMarker grows each end outward one marker at a time while the
// adjacent marker satisfies pred. Expansion stops at section boundaries.
func (r Range) ExpandByMarker(pred func(*post.Marker) bool) Range {
	head, tail := r.Head, r.Tail
	if s := head.Section; s != nil && s.IsMarkerable() {
		m, inner := markerBefore(s, head.Offset)
		off := head.Offset - inner
		for m != nil && pred(m) {
			head = Position{Section: s, Offset: off}
			m = m.Prev()
			if m != nil {
				off -= m.Length()
			}
		}
	}
	if s := tail.Section; s != nil && s.IsMarkerable() {
		m, inner := markerAfter(s, tail.Offset)
		off := tail.Offset - inner
		for m != nil && pred(m) {
			off += m.Length()
			tail = Position{Section: s, Offset: off}
			m = m.Next()
		}
	}
	return NewRange(head, tail, r.Direction)
}

// Sections returns the leaf sections covered by the range in document order.
func (r Range) Sections() []*post.Section {
	if r.Head.Section == nil {
		return nil
	}
	var out []*post.Section
	for s := r.Head.Section; s != nil; s = s.NextLeaf() {
		out = append(out, s)
		if s == r.Tail.Section {
			break
		}
	}
	return out
}

// String returns a debug representation.
func (r Range) String() string {
	return fmt.Sprintf("Range(%s, %s, %s)", r.Head, r.Tail, r.Direction)
}
