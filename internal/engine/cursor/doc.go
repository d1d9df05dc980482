// Package cursor provides positions and ranges inside a post.
//
// A Position addresses a leaf section and an offset in model units: runes for
// text markers, exactly 1 for an atom, and 0 (head) or 1 (tail) for cards and
// images. A Range is a pair of positions plus the direction the selection was
// made in.
//
// Selection Model:
//
// Ranges use a head/tail model where Head always precedes or equals Tail in
// document order. Direction records which end the user is moving:
//   - Forward: Tail is the focus, Head the anchor
//   - Backward: Head is the focus, Tail the anchor
//   - None: the range is collapsed
//
// Movement:
//
// Move steps one code point (or one atom) at a time and crosses section
// boundaries into the adjacent leaf section, entering list items rather than
// lists. Cards are crossed in two steps: onto their head, then onto their tail.
// MoveGrapheme does the same by grapheme cluster.
// MoveWord steps over a run of word characters, skipping leading separators
// (whitespace, hyphen, plus, equals, pipe). An atom is a word of its own.
//
// Basic usage:
//
//	pos, err := cursor.ToPosition(section, 3)
//	next := pos.Move(cursor.Forward)
//	r := cursor.Collapsed(pos).Extend(2)
//
// Positions and ranges are immutable value types. They are never valid across
// a mutation of the post and must be recomputed afterwards.
package cursor
