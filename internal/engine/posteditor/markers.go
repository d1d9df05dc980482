package posteditor

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// SplitMarkerAtOffset splits the text marker containing offset so that offset
// falls on a marker boundary. Atoms and existing boundaries are left alone.
func (e *PostEditor) SplitMarkerAtOffset(s *post.Section, offset int) error {
	if err := e.check("split marker"); err != nil {
		return err
	}
	return e.splitMarkerAtOffset(s, offset)
}

func (e *PostEditor) splitMarkerAtOffset(s *post.Section, offset int) error {
	if !s.IsMarkerable() {
		return nil
	}
	if offset < 0 || offset > s.Length() {
		return fmt.Errorf("split marker at %d of %d: %w", offset, s.Length(), post.ErrOffsetOutOfRange)
	}
	m, inner := s.MarkerAtOffset(offset, false)
	if m == nil || m.IsAtom() || inner == 0 || inner == m.Length() {
		return nil
	}
	head, tail, err := m.Split(inner)
	if err != nil {
		return err
	}
	// m keeps the head so its rendered text node survives
	m.Value = head.Value
	if err := s.Markers.InsertAfter(tail, m); err != nil {
		return err
	}
	e.dirty(m)
	e.dirty(tail)
	return nil
}

// SplitMarkers splits markers at both ends of r and returns the non-blank
// markers the range covers, in document order.
func (e *PostEditor) SplitMarkers(r cursor.Range) ([]*post.Marker, error) {
	if err := e.check("split markers"); err != nil {
		return nil, err
	}
	return e.splitMarkers(r)
}

func (e *PostEditor) splitMarkers(r cursor.Range) ([]*post.Marker, error) {
	if r.IsCollapsed() || r.Head.Section == nil {
		return nil, nil
	}
	var out []*post.Marker
	for _, s := range r.Sections() {
		if !s.IsMarkerable() {
			continue
		}
		start, end := rangeBounds(r, s)
		if err := e.splitMarkerAtOffset(s, end); err != nil {
			return nil, err
		}
		if err := e.splitMarkerAtOffset(s, start); err != nil {
			return nil, err
		}
		cur := 0
		for m := range s.Markers.All() {
			n := m.Length()
			if n > 0 && cur >= start && cur+n <= end {
				out = append(out, m)
			}
			cur += n
		}
	}
	return out, nil
}

// rangeBounds returns the part of s covered by r.
func rangeBounds(r cursor.Range, s *post.Section) (int, int) {
	start, end := 0, s.Length()
	if s == r.Head.Section {
		start = r.Head.Offset
	}
	if s == r.Tail.Section {
		end = r.Tail.Offset
	}
	return start, end
}

// InsertMarkers inserts markers at pos and returns the position after them.
// Inserted markers are coalesced with equal neighbours. Markers must not
// belong to a section.
func (e *PostEditor) InsertMarkers(pos cursor.Position, markers []*post.Marker) (cursor.Position, error) {
	if err := e.checkPosition("insert markers", pos); err != nil {
		return pos, err
	}
	if len(markers) == 0 {
		return pos, nil
	}
	e.record(ActionStructural)
	next, err := e.insertMarkers(pos, markers)
	if err != nil {
		return pos, err
	}
	return e.land(next), nil
}

func (e *PostEditor) insertMarkers(pos cursor.Position, markers []*post.Marker) (cursor.Position, error) {
	s := pos.Section
	if !s.IsMarkerable() {
		return pos, fmt.Errorf("insert markers into %s: %w", s.Kind, post.ErrWrongKind)
	}
	if len(markers) == 0 {
		return pos, nil
	}
	if err := e.splitMarkerAtOffset(s, pos.Offset); err != nil {
		return pos, err
	}
	ref := markerStartingAt(s, pos.Offset)
	total := 0
	for _, m := range markers {
		e.builder.InternMarker(m)
		if err := s.Markers.InsertBefore(m, ref); err != nil {
			return pos, err
		}
		total += m.Length()
		e.dirty(m)
	}
	e.coalesce(s)
	e.dirty(s)
	return cursor.Position{Section: s, Offset: pos.Offset + total}, nil
}

// markerStartingAt returns the first marker starting at or after offset, or
// nil when offset is the tail. offset must be on a marker boundary.
func markerStartingAt(s *post.Section, offset int) *post.Marker {
	cur := 0
	for m := range s.Markers.All() {
		if cur >= offset {
			return m
		}
		cur += m.Length()
	}
	return nil
}

// InsertText inserts text at pos using the markups of the marker before pos.
// Text inserted at a card or image goes into a new section next to it.
func (e *PostEditor) InsertText(pos cursor.Position, text string) (cursor.Position, error) {
	if err := e.checkPosition("insert text", pos); err != nil {
		return pos, err
	}
	if text == "" {
		return pos, nil
	}
	var markups []*post.Markup
	if m, _ := pos.Marker(); m != nil {
		markups = m.Markups
	}
	return e.insertText(pos, text, markups)
}

// InsertTextWithMarkups inserts text at pos carrying exactly markups.
func (e *PostEditor) InsertTextWithMarkups(pos cursor.Position, text string, markups []*post.Markup) (cursor.Position, error) {
	if err := e.checkPosition("insert text", pos); err != nil {
		return pos, err
	}
	if text == "" {
		return pos, nil
	}
	return e.insertText(pos, text, markups)
}

func (e *PostEditor) insertText(pos cursor.Position, text string, markups []*post.Markup) (cursor.Position, error) {
	if pos.Section.IsAtomic() {
		blank, err := e.blankBeside(pos)
		if err != nil {
			return pos, err
		}
		pos = cursor.Head(blank)
		e.record(ActionStructural)
	} else {
		e.record(ActionInsertText)
	}
	next, err := e.insertMarkers(pos, []*post.Marker{e.builder.CreateMarker(text, markups...)})
	if err != nil {
		return pos, err
	}
	return e.land(next), nil
}

// blankBeside inserts a blank section before a card or image when pos is its
// head, after it otherwise.
func (e *PostEditor) blankBeside(pos cursor.Position) (*post.Section, error) {
	blank := e.builder.CreateBlankSection()
	ref := pos.Section
	if pos.Offset > 0 {
		ref = ref.Next()
	}
	if err := e.insertSectionBefore(blank, ref); err != nil {
		return nil, err
	}
	return blank, nil
}

// InsertAtom inserts an atom marker at pos and returns the position after it.
func (e *PostEditor) InsertAtom(pos cursor.Position, atom *post.Marker) (cursor.Position, error) {
	if err := e.checkPosition("insert atom", pos); err != nil {
		return pos, err
	}
	if !atom.IsAtom() {
		return pos, fmt.Errorf("insert atom %q: %w", atom.Value, post.ErrWrongKind)
	}
	e.record(ActionStructural)
	if pos.Section.IsAtomic() {
		blank, err := e.blankBeside(pos)
		if err != nil {
			return pos, err
		}
		pos = cursor.Head(blank)
	}
	next, err := e.insertMarkers(pos, []*post.Marker{atom})
	if err != nil {
		return pos, err
	}
	return e.land(next), nil
}

// RemoveMarker removes m from its section.
func (e *PostEditor) RemoveMarker(m *post.Marker) error {
	if err := e.check("remove marker"); err != nil {
		return err
	}
	s := m.Section()
	if s == nil {
		return fmt.Errorf("remove marker %q: %w", m.Value, ErrInvalidPosition)
	}
	if err := s.Markers.Remove(m); err != nil {
		return err
	}
	e.record(ActionStructural)
	e.removed(m)
	e.coalesce(s)
	e.dirty(s)
	return nil
}

// coalesce drops blank markers from s and joins adjacent markers with the
// same markup set. The earlier marker of a joined pair survives.
func (e *PostEditor) coalesce(s *post.Section) {
	var prev *post.Marker
	for m := range s.Markers.All() {
		if m.IsBlank() {
			_ = s.Markers.Remove(m)
			e.removed(m)
			continue
		}
		if prev != nil && prev.CanJoin(m) {
			prev.Value += m.Value
			_ = s.Markers.Remove(m)
			e.removed(m)
			e.dirty(prev)
			continue
		}
		prev = m
	}
}

// AddMarkupToRange adds markup to every marker covered by r. The markup
// becomes the innermost markup of each marker.
func (e *PostEditor) AddMarkupToRange(r cursor.Range, markup *post.Markup) error {
	if err := e.check("add markup"); err != nil {
		return err
	}
	markup = e.builder.Intern(markup)
	return e.eachMarkerIn(r, func(m *post.Marker) {
		m.AddMarkup(markup)
	})
}

// RemoveMarkupFromRange removes markup from every marker covered by r.
func (e *PostEditor) RemoveMarkupFromRange(r cursor.Range, markup *post.Markup) error {
	if err := e.check("remove markup"); err != nil {
		return err
	}
	return e.eachMarkerIn(r, func(m *post.Marker) {
		m.RemoveMarkup(markup)
	})
}

// ToggleMarkup removes the markup tag from r when every covered marker
// carries it, and adds the markup to every covered marker otherwise. A
// collapsed range or one covering no markers is a no-op.
func (e *PostEditor) ToggleMarkup(tag string, attrs map[string]string, r cursor.Range) error {
	if err := e.check("toggle markup"); err != nil {
		return err
	}
	markup, err := e.builder.CreateMarkup(tag, attrs)
	if err != nil {
		return err
	}
	markers, err := e.splitMarkers(r)
	if err != nil || len(markers) == 0 {
		return err
	}
	all := true
	for _, m := range markers {
		if m.MarkupWithTag(markup.TagName) == nil {
			all = false
			break
		}
	}
	for _, m := range markers {
		if all {
			removeTag(m, markup.TagName)
		} else {
			if existing := m.MarkupWithTag(markup.TagName); existing != nil && existing != markup {
				m.RemoveMarkup(existing)
			}
			m.AddMarkup(markup)
		}
		e.dirty(m)
	}
	e.finishMarkupChange(r, markers)
	return nil
}

func removeTag(m *post.Marker, tag string) {
	for mu := m.MarkupWithTag(tag); mu != nil; mu = m.MarkupWithTag(tag) {
		m.RemoveMarkup(mu)
	}
}

func (e *PostEditor) eachMarkerIn(r cursor.Range, fn func(*post.Marker)) error {
	markers, err := e.splitMarkers(r)
	if err != nil || len(markers) == 0 {
		return err
	}
	for _, m := range markers {
		fn(m)
		e.dirty(m)
	}
	e.finishMarkupChange(r, markers)
	return nil
}

// finishMarkupChange coalesces the sections holding markers and keeps r as
// the range to restore.
func (e *PostEditor) finishMarkupChange(r cursor.Range, markers []*post.Marker) {
	seen := make(map[*post.Section]bool)
	for _, m := range markers {
		s := m.Section()
		if s == nil || seen[s] {
			continue
		}
		seen[s] = true
		e.coalesce(s)
		e.dirty(s)
	}
	e.record(ActionStructural)
	e.rng = r
	e.rangeSet = true
}
