package posteditor

import (
	"fmt"
	"strings"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// InsertSectionBefore inserts section before ref. A nil ref appends to the
// post. List items go into the list of ref; other sections are top level.
func (e *PostEditor) InsertSectionBefore(section, ref *post.Section) error {
	if err := e.check("insert section"); err != nil {
		return err
	}
	e.record(ActionStructural)
	return e.insertSectionBefore(section, ref)
}

// InsertSectionAtEnd appends section to the post.
func (e *PostEditor) InsertSectionAtEnd(section *post.Section) error {
	return e.InsertSectionBefore(section, nil)
}

func (e *PostEditor) insertSectionBefore(section, ref *post.Section) error {
	internSection(e.builder, section)
	var err error
	switch {
	case ref != nil && ref.IsListItem():
		if !section.IsListItem() {
			return fmt.Errorf("insert %s into a list: %w", section.Kind, post.ErrWrongKind)
		}
		err = ref.Parent().Items.InsertBefore(section, ref)
	case section.IsListItem():
		return fmt.Errorf("insert list item at top level: %w", post.ErrWrongKind)
	default:
		err = e.post.Sections.InsertBefore(section, ref)
	}
	if err != nil {
		return err
	}
	e.dirty(section)
	return nil
}

func (e *PostEditor) insertSectionAfter(section, ref *post.Section) error {
	if next := ref.Next(); next != nil {
		return e.insertSectionBefore(section, next)
	}
	list := ref.Parent()
	if list == nil {
		return e.insertSectionBefore(section, nil)
	}
	if !section.IsListItem() {
		return fmt.Errorf("insert %s into a list: %w", section.Kind, post.ErrWrongKind)
	}
	internSection(e.builder, section)
	if err := list.Items.Append(section); err != nil {
		return err
	}
	e.dirty(section)
	return nil
}

// InsertSection inserts a top-level section at pos and returns the position
// at its tail. A blank host section is replaced; a host split mid-text gets
// the new section between its halves.
func (e *PostEditor) InsertSection(pos cursor.Position, section *post.Section) (cursor.Position, error) {
	if err := e.check("insert section"); err != nil {
		return pos, err
	}
	if section.IsListItem() {
		return pos, fmt.Errorf("insert list item at top level: %w", post.ErrWrongKind)
	}
	e.record(ActionStructural)
	host := pos.Section
	if host == nil || host.Post() != e.post {
		if err := e.insertSectionBefore(section, nil); err != nil {
			return pos, err
		}
		return e.land(cursor.Tail(lastLeafOf(section))), nil
	}
	top := host.TopLevel()
	var err error
	switch {
	case host.IsMarkerable() && !host.IsListItem() && host.IsBlank():
		err = e.replaceSection(host, section)
	case pos.IsHead() && top == host:
		err = e.insertSectionBefore(section, host)
	case host.IsMarkerable() && !host.IsListItem() && !pos.IsTail():
		var after *post.Section
		if after, err = e.splitAt(host, pos.Offset); err == nil {
			err = e.insertSectionBefore(section, after)
		}
	default:
		err = e.insertSectionAfter(section, top)
	}
	if err != nil {
		return pos, err
	}
	return e.land(cursor.Tail(lastLeafOf(section))), nil
}

// ReplaceSection puts section where old was.
func (e *PostEditor) ReplaceSection(old, section *post.Section) error {
	if err := e.check("replace section"); err != nil {
		return err
	}
	e.record(ActionStructural)
	return e.replaceSection(old, section)
}

func (e *PostEditor) replaceSection(old, section *post.Section) error {
	if err := e.insertSectionBefore(section, old); err != nil {
		return err
	}
	e.removeSection(old)
	return nil
}

// RemoveSection removes s. A list left without items is removed as well.
func (e *PostEditor) RemoveSection(s *post.Section) error {
	if err := e.check("remove section"); err != nil {
		return err
	}
	if s.Post() != e.post {
		return fmt.Errorf("remove %s: %w", s.Kind, ErrInvalidPosition)
	}
	e.record(ActionStructural)
	e.removeSection(s)
	return nil
}

func (e *PostEditor) removeSection(s *post.Section) {
	if list := s.Parent(); list != nil {
		_ = list.Items.Remove(s)
		e.removed(s)
		if list.Items.IsEmpty() {
			e.removeSection(list)
		} else {
			e.dirty(list)
		}
		return
	}
	if p := s.Post(); p != nil {
		_ = p.Sections.Remove(s)
		e.removed(s)
		e.dirty(p)
	}
}

// MoveSectionUp swaps s with its previous sibling.
func (e *PostEditor) MoveSectionUp(s *post.Section) error {
	return e.moveSection(s, true)
}

// MoveSectionDown swaps s with its next sibling.
func (e *PostEditor) MoveSectionDown(s *post.Section) error {
	return e.moveSection(s, false)
}

func (e *PostEditor) moveSection(s *post.Section, up bool) error {
	if err := e.check("move section"); err != nil {
		return err
	}
	list := e.post.Sections
	if parent := s.Parent(); parent != nil {
		list = parent.Items
	}
	if !list.Contains(s) {
		return fmt.Errorf("move %s: %w", s.Kind, ErrInvalidPosition)
	}
	var ref *post.Section
	if up {
		if ref = s.Prev(); ref == nil {
			return nil
		}
	} else {
		next := s.Next()
		if next == nil {
			return nil
		}
		ref = next.Next()
	}
	if err := list.Remove(s); err != nil {
		return err
	}
	if err := list.InsertBefore(s, ref); err != nil {
		return err
	}
	e.record(ActionStructural)
	e.dirty(s)
	return nil
}

// SetCardPayload replaces the payload of a card section.
func (e *PostEditor) SetCardPayload(s *post.Section, payload map[string]any) error {
	if err := e.check("set card payload"); err != nil {
		return err
	}
	if !s.IsCardSection() {
		return fmt.Errorf("set payload on %s: %w", s.Kind, post.ErrWrongKind)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	s.Payload = payload
	e.record(ActionStructural)
	e.dirty(s)
	return nil
}

// SplitSection breaks the section at pos in two and returns the head of the
// second part. At a card or image a blank section is added before (at its
// head) or after (at its tail). A blank list item leaves its list and becomes
// a paragraph.
func (e *PostEditor) SplitSection(pos cursor.Position) (cursor.Position, error) {
	if err := e.checkPosition("split section", pos); err != nil {
		return pos, err
	}
	e.record(ActionStructural)
	s := pos.Section
	switch {
	case s.IsAtomic():
		blank, err := e.blankBeside(pos)
		if err != nil {
			return pos, err
		}
		if pos.Offset == 0 {
			return e.land(pos), nil
		}
		return e.land(cursor.Head(blank)), nil
	case s.IsListItem() && s.IsBlank():
		sec, err := e.splitListAtItem(s, post.DefaultSectionTag)
		if err != nil {
			return pos, err
		}
		return e.land(cursor.Head(sec)), nil
	}
	after, err := e.splitAt(s, pos.Offset)
	if err != nil {
		return pos, err
	}
	return e.land(cursor.Head(after)), nil
}

// splitAt replaces s by its two halves around offset and returns the second.
func (e *PostEditor) splitAt(s *post.Section, offset int) (*post.Section, error) {
	pre, after, err := s.SplitAt(offset)
	if err != nil {
		return nil, err
	}
	if err := e.replaceSection(s, pre); err != nil {
		return nil, err
	}
	if err := e.insertSectionAfter(after, pre); err != nil {
		return nil, err
	}
	return after, nil
}

// splitListAtItem takes item out of its list as a markup section with tag.
// Items after it move to a new list following the section.
func (e *PostEditor) splitListAtItem(item *post.Section, tag string) (*post.Section, error) {
	list := item.Parent()
	sec, err := e.builder.CreateMarkupSection(tag, cloneMarkers(item), nil)
	if err != nil {
		return nil, err
	}
	var rest []*post.Section
	for n := item.Next(); n != nil; n = n.Next() {
		rest = append(rest, n)
	}
	if err := e.insertSectionAfter(sec, list); err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		tail, err := e.builder.CreateListSection(list.TagName, nil, list.Attributes())
		if err != nil {
			return nil, err
		}
		for _, n := range rest {
			if err := list.Items.Remove(n); err != nil {
				return nil, err
			}
			if err := tail.Items.Append(n); err != nil {
				return nil, err
			}
		}
		if err := e.insertSectionAfter(tail, sec); err != nil {
			return nil, err
		}
	}
	e.removeSection(item)
	return sec, nil
}

// splitListBefore moves item and the items after it into a new list placed
// right after the current one.
func (e *PostEditor) splitListBefore(item *post.Section) error {
	list := item.Parent()
	tail, err := e.builder.CreateListSection(list.TagName, nil, list.Attributes())
	if err != nil {
		return err
	}
	var rest []*post.Section
	for n := item; n != nil; n = n.Next() {
		rest = append(rest, n)
	}
	for _, n := range rest {
		if err := list.Items.Remove(n); err != nil {
			return err
		}
		if err := tail.Items.Append(n); err != nil {
			return err
		}
	}
	e.dirty(list)
	return e.insertSectionAfter(tail, list)
}

// ToggleSection converts the markerable sections of r to tag, or back to
// paragraphs when all of them already have it. List tags turn sections into
// list items, which then merge with neighbouring lists of the same tag. Cards
// and images in the range are skipped.
func (e *PostEditor) ToggleSection(tag string, r cursor.Range) (cursor.Range, error) {
	if err := e.check("toggle section"); err != nil {
		return r, err
	}
	tag = post.NormalizeTagName(tag)
	isList := post.IsListSectionTag(tag)
	if !isList && !post.IsMarkupSectionTag(tag) {
		return r, fmt.Errorf("toggle section %q: %w", tag, post.ErrInvalidTagName)
	}
	var targets []*post.Section
	for _, s := range r.Sections() {
		if s.IsMarkerable() {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return r, nil
	}
	e.record(ActionStructural)

	all := true
	for _, s := range targets {
		if sectionTag(s) != tag {
			all = false
			break
		}
	}
	if all {
		tag, isList = post.DefaultSectionTag, false
	}

	converted := make(map[*post.Section]*post.Section, len(targets))
	var items []*post.Section
	for _, s := range targets {
		var ns *post.Section
		var err error
		if isList {
			ns, err = e.toListItem(s, tag)
		} else {
			ns, err = e.toMarkupSection(s, tag)
		}
		if err != nil {
			return r, err
		}
		converted[s] = ns
		if isList {
			items = append(items, ns)
		}
	}
	e.joinAdjacentLists(items)

	head, tail := r.Head, r.Tail
	if ns := converted[head.Section]; ns != nil {
		head.Section = ns
	}
	if ns := converted[tail.Section]; ns != nil {
		tail.Section = ns
	}
	out := cursor.NewRange(head, tail, r.Direction)
	e.rng = out
	e.rangeSet = true
	return out, nil
}

// sectionTag returns the tag a markerable section is displayed with: its
// list's tag for list items.
func sectionTag(s *post.Section) string {
	if s.IsListItem() {
		return s.Parent().TagName
	}
	return s.TagName
}

func (e *PostEditor) toMarkupSection(s *post.Section, tag string) (*post.Section, error) {
	if s.IsListItem() {
		return e.splitListAtItem(s, tag)
	}
	if err := s.SetTagName(tag); err != nil {
		return nil, err
	}
	e.dirty(s)
	return s, nil
}

func (e *PostEditor) toListItem(s *post.Section, tag string) (*post.Section, error) {
	if s.IsListItem() {
		if s.Parent().TagName == tag {
			return s, nil
		}
		var err error
		if s, err = e.splitListAtItem(s, post.DefaultSectionTag); err != nil {
			return nil, err
		}
	}
	item, err := e.builder.CreateListItem(cloneMarkers(s)...)
	if err != nil {
		return nil, err
	}
	list, err := e.builder.CreateListSection(tag, []*post.Section{item}, nil)
	if err != nil {
		return nil, err
	}
	if err := e.replaceSection(s, list); err != nil {
		return nil, err
	}
	return item, nil
}

// joinAdjacentLists merges the lists holding items with neighbouring lists
// of the same tag. Lists elsewhere in the post are left alone.
func (e *PostEditor) joinAdjacentLists(items []*post.Section) {
	for _, item := range items {
		list := item.Parent()
		if list == nil || !list.IsListSection() {
			continue
		}
		if prev := list.Prev(); prev != nil && prev.IsListSection() && prev.TagName == list.TagName {
			e.mergeLists(prev, list)
			list = prev
		}
		if next := list.Next(); next != nil && next.IsListSection() && next.TagName == list.TagName {
			e.mergeLists(list, next)
		}
	}
}

// mergeLists moves the items of next to the end of list and drops next.
func (e *PostEditor) mergeLists(list, next *post.Section) {
	for _, item := range next.Items.Items() {
		_ = next.Items.Remove(item)
		_ = list.Items.Append(item)
	}
	_ = e.post.Sections.Remove(next)
	e.removed(next)
	e.dirty(list)
}

// SetAttribute sets a section attribute on every section spanned by r. List
// items pass the attribute to their list. The "data-md-" prefix may be
// omitted.
func (e *PostEditor) SetAttribute(name, value string, r cursor.Range) error {
	return e.changeAttribute("set attribute", name, r, func(s *post.Section, key string) error {
		return s.SetAttribute(key, value)
	})
}

// RemoveAttribute clears a section attribute on every section spanned by r.
func (e *PostEditor) RemoveAttribute(name string, r cursor.Range) error {
	return e.changeAttribute("remove attribute", name, r, func(s *post.Section, key string) error {
		return s.RemoveAttribute(key)
	})
}

func (e *PostEditor) changeAttribute(op, name string, r cursor.Range, fn func(*post.Section, string) error) error {
	if err := e.check(op); err != nil {
		return err
	}
	key := name
	if !strings.HasPrefix(key, "data-md-") {
		key = "data-md-" + key
	}
	if !post.IsSectionAttribute(key) {
		return fmt.Errorf("%s %q: %w", op, name, post.ErrInvalidAttribute)
	}
	seen := make(map[*post.Section]bool)
	for _, s := range r.Sections() {
		target := s
		if s.IsListItem() {
			target = s.Parent()
		}
		if target.IsAtomic() || seen[target] {
			continue
		}
		seen[target] = true
		if err := fn(target, key); err != nil {
			return err
		}
		e.dirty(target)
	}
	if len(seen) > 0 {
		e.record(ActionStructural)
	}
	return nil
}

func cloneMarkers(s *post.Section) []*post.Marker {
	out := make([]*post.Marker, 0, s.Markers.Len())
	for m := range s.Markers.All() {
		if !m.IsBlank() {
			out = append(out, m.Clone())
		}
	}
	return out
}

func internSection(b *post.Builder, s *post.Section) {
	switch {
	case s.IsMarkerable():
		for m := range s.Markers.All() {
			b.InternMarker(m)
		}
	case s.IsListSection():
		for item := range s.Items.All() {
			internSection(b, item)
		}
	}
}

func lastLeafOf(s *post.Section) *post.Section {
	if s.IsListSection() && s.Items.Tail() != nil {
		return s.Items.Tail()
	}
	return s
}
