package posteditor

import (
	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// InsertPost inserts a copy of the content of other at pos and returns the
// position after the inserted content. A single paragraph is inserted inline.
// Otherwise the host section is split at pos; the first and last inserted
// paragraphs merge into the two halves while cards, images and lists are
// placed between them. Inserting into a list turns paragraphs into items.
// A blank other is a no-op.
func (e *PostEditor) InsertPost(pos cursor.Position, other *post.Post) (cursor.Position, error) {
	if err := e.checkPosition("insert post", pos); err != nil {
		return pos, err
	}
	if other == nil || other.IsBlank() {
		return pos, nil
	}
	sections := e.adoptSections(other)
	e.record(ActionStructural)

	host := pos.Section
	switch {
	case host.IsAtomic():
		ref := host
		if pos.Offset > 0 {
			ref = host.Next()
		}
		var last *post.Section
		for _, s := range sections {
			if err := e.insertSectionBefore(s, ref); err != nil {
				return pos, err
			}
			last = s
		}
		return e.land(cursor.Tail(lastLeafOf(last))), nil
	case len(sections) == 1 && sections[0].Kind == post.KindMarkup:
		next, err := e.insertMarkers(pos, takeMarkers(sections[0]))
		if err != nil {
			return pos, err
		}
		return e.land(next), nil
	case host.IsBlank() && !host.IsListItem():
		for _, s := range sections {
			if err := e.insertSectionBefore(s, host); err != nil {
				return pos, err
			}
		}
		e.removeSection(host)
		return e.land(cursor.Tail(lastLeafOf(sections[len(sections)-1]))), nil
	}
	return e.insertSplit(pos, sections)
}

func (e *PostEditor) insertSplit(pos cursor.Position, sections []*post.Section) (cursor.Position, error) {
	after, err := e.splitAt(pos.Section, pos.Offset)
	if err != nil {
		return pos, err
	}
	pre := after.Prev()

	rest := sections
	if rest[0].Kind == post.KindMarkup {
		if _, err := e.insertMarkers(cursor.Tail(pre), takeMarkers(rest[0])); err != nil {
			return pos, err
		}
		rest = rest[1:]
	}

	var result cursor.Position
	merged := false
	if n := len(rest); n > 0 && rest[n-1].Kind == post.KindMarkup {
		last := rest[n-1]
		length := last.Length()
		if _, err := e.insertMarkers(cursor.Head(after), takeMarkers(last)); err != nil {
			return pos, err
		}
		result = cursor.Position{Section: after, Offset: length}
		merged = true
		rest = rest[:n-1]
	}

	var lastLeaf *post.Section
	for _, s := range rest {
		leaf, err := e.placeBefore(s, after)
		if err != nil {
			return pos, err
		}
		lastLeaf = leaf
	}
	switch {
	case merged:
	case lastLeaf != nil:
		result = cursor.Tail(lastLeaf)
	default:
		result = cursor.Tail(pre)
	}

	if pre.IsBlank() && result.Section != pre {
		e.removeSection(pre)
	}
	if after.IsBlank() && result.Section != after {
		e.removeSection(after)
	}
	return e.land(result), nil
}

// placeBefore inserts the top-level section s before the leaf ref and returns
// the last leaf inserted. Before a list item, paragraphs become items, lists
// contribute their items and cards split the list.
func (e *PostEditor) placeBefore(s, ref *post.Section) (*post.Section, error) {
	if !ref.IsListItem() {
		if err := e.insertSectionBefore(s, ref); err != nil {
			return nil, err
		}
		return lastLeafOf(s), nil
	}
	switch s.Kind {
	case post.KindMarkup:
		item, err := e.builder.CreateListItem(takeMarkers(s)...)
		if err != nil {
			return nil, err
		}
		if err := e.insertSectionBefore(item, ref); err != nil {
			return nil, err
		}
		return item, nil
	case post.KindList:
		var last *post.Section
		for _, item := range s.Items.Items() {
			if err := s.Items.Remove(item); err != nil {
				return nil, err
			}
			if err := e.insertSectionBefore(item, ref); err != nil {
				return nil, err
			}
			last = item
		}
		return last, nil
	default:
		if ref.Prev() != nil {
			if err := e.splitListBefore(ref); err != nil {
				return nil, err
			}
		}
		if err := e.insertSectionBefore(s, ref.Parent()); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// adoptSections returns detached copies of the sections of other with their
// markups interned in the editor's builder.
func (e *PostEditor) adoptSections(other *post.Post) []*post.Section {
	out := make([]*post.Section, 0, other.Sections.Len())
	for s := range other.Sections.All() {
		c := s.Clone()
		internSection(e.builder, c)
		out = append(out, c)
	}
	return out
}

// takeMarkers detaches and returns the non-blank markers of s.
func takeMarkers(s *post.Section) []*post.Marker {
	var out []*post.Marker
	for _, m := range s.Markers.Items() {
		_ = s.Markers.Remove(m)
		if !m.IsBlank() {
			out = append(out, m)
		}
	}
	return out
}
