package posteditor

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// DeleteUnit selects how much DeleteAtPosition removes.
type DeleteUnit uint8

const (
	// UnitChar deletes one code point or atom.
	UnitChar DeleteUnit = iota

	// UnitWord deletes up to the next word boundary.
	UnitWord

	// UnitGrapheme deletes one grapheme cluster or atom.
	UnitGrapheme
)

// DeleteAtPosition deletes one unit next to pos in direction dir and returns
// the resulting cursor position. At a section boundary the section is joined
// with its neighbour. Next to a card, a blank section is removed and the
// cursor moves onto the card; a section with content is left alone. Deleting
// at the start or end of the post is a no-op.
func (e *PostEditor) DeleteAtPosition(pos cursor.Position, dir cursor.Direction, unit DeleteUnit) (cursor.Position, error) {
	if err := e.checkPosition("delete", pos); err != nil {
		return pos, err
	}
	s := pos.Section
	switch dir {
	case cursor.Backward:
		if s.IsMarkerable() && pos.IsHead() {
			if prev := s.PrevLeaf(); prev != nil && prev.IsAtomic() {
				return e.stepOntoAtomic(s, cursor.Tail(prev)), nil
			}
		}
	case cursor.Forward:
		if s.IsMarkerable() && pos.IsTail() {
			if next := s.NextLeaf(); next != nil && next.IsAtomic() {
				return e.stepOntoAtomic(s, cursor.Head(next)), nil
			}
		}
	default:
		return pos, nil
	}

	var other cursor.Position
	switch unit {
	case UnitWord:
		other = pos.MoveWord(dir)
	case UnitGrapheme:
		other = pos.MoveGrapheme(dir)
	default:
		other = pos.Move(dir)
	}
	if other.Equal(pos) {
		return pos, nil
	}
	return e.deleteRange(cursor.NewRange(pos, other, dir))
}

// stepOntoAtomic removes s if it is blank and lands on target, a position on
// the neighbouring card or image.
func (e *PostEditor) stepOntoAtomic(s *post.Section, target cursor.Position) cursor.Position {
	if s.IsBlank() {
		e.record(ActionStructural)
		e.removeSection(s)
	}
	return e.land(target)
}

// DeleteRange removes the content covered by r and returns the position the
// two ends were joined at. Sections entirely inside r are removed; the
// boundary sections are trimmed and joined when both hold markers. A card or
// image is removed when r covers it completely.
func (e *PostEditor) DeleteRange(r cursor.Range) (cursor.Position, error) {
	if err := e.checkPosition("delete range", r.Head); err != nil {
		return r.Head, err
	}
	if err := e.checkPosition("delete range", r.Tail); err != nil {
		return r.Head, err
	}
	return e.deleteRange(r)
}

func (e *PostEditor) deleteRange(r cursor.Range) (cursor.Position, error) {
	head, tail := r.Head, r.Tail
	if r.IsCollapsed() {
		return e.land(head), nil
	}
	headS, tailS := head.Section, tail.Section

	if headS == tailS {
		if headS.IsMarkerable() {
			e.record(ActionDeleteText)
			if err := e.deleteWithin(headS, head.Offset, tail.Offset); err != nil {
				return head, err
			}
			return e.land(head), nil
		}
		e.record(ActionStructural)
		blank := e.builder.CreateBlankSection()
		if err := e.replaceSection(headS, blank); err != nil {
			return head, err
		}
		return e.land(cursor.Head(blank)), nil
	}

	e.record(ActionStructural)
	var middle []*post.Section
	for s := headS.NextLeaf(); s != nil && s != tailS; s = s.NextLeaf() {
		middle = append(middle, s)
	}
	for _, s := range middle {
		e.removeSection(s)
	}

	result := head
	switch {
	case headS.IsMarkerable():
		if err := e.deleteWithin(headS, head.Offset, headS.Length()); err != nil {
			return head, err
		}
	case head.Offset == 0:
		blank := e.builder.CreateBlankSection()
		if err := e.replaceSection(headS, blank); err != nil {
			return head, err
		}
		headS = blank
		result = cursor.Head(blank)
	}

	switch {
	case tailS.IsMarkerable():
		if err := e.deleteWithin(tailS, 0, tail.Offset); err != nil {
			return head, err
		}
	case tail.Offset > 0:
		e.removeSection(tailS)
		tailS = nil
	}

	switch {
	case tailS == nil:
	case headS.IsMarkerable() && tailS.IsMarkerable():
		if _, err := headS.Join(tailS); err != nil {
			return head, fmt.Errorf("join sections: %w", err)
		}
		e.coalesce(headS)
		e.dirty(headS)
		e.removeSection(tailS)
	case headS.IsMarkerable() && headS.IsBlank():
		// tailS is an untouched card or image
		e.removeSection(headS)
		result = cursor.Head(tailS)
	case tailS.IsMarkerable() && tailS.IsBlank():
		e.removeSection(tailS)
	}
	return e.land(result), nil
}

// deleteWithin removes the content of s between two offsets.
func (e *PostEditor) deleteWithin(s *post.Section, from, to int) error {
	if from >= to {
		return nil
	}
	if err := e.splitMarkerAtOffset(s, to); err != nil {
		return err
	}
	if err := e.splitMarkerAtOffset(s, from); err != nil {
		return err
	}
	cur := 0
	for m := range s.Markers.All() {
		n := m.Length()
		if cur >= from && cur+n <= to {
			_ = s.Markers.Remove(m)
			e.removed(m)
		}
		cur += n
	}
	e.coalesce(s)
	e.dirty(s)
	return nil
}
