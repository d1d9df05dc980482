package post

import (
	"strings"

	"github.com/dshills/folio/internal/engine/linkedlist"
)

// Post is the root of a document.
type Post struct {
	Sections *linkedlist.List[*Section]
}

func newPost() *Post {
	p := &Post{}
	p.Sections = linkedlist.New[*Section](
		linkedlist.WithAdopt(func(s *Section) { s.post = p }),
		linkedlist.WithFree(func(s *Section) { s.post = nil }),
	)
	return p
}

// IsBlank reports whether the post has no sections, or a single blank
// markerable section.
func (p *Post) IsBlank() bool {
	switch p.Sections.Len() {
	case 0:
		return true
	case 1:
		s := p.Sections.Head()
		return s.IsMarkerable() && s.IsBlank()
	default:
		return false
	}
}

// Text returns the text of every leaf section joined by newlines.
func (p *Post) Text() string {
	var parts []string
	for _, s := range p.Leaves() {
		parts = append(parts, s.Text())
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the post. Markups are shared.
func (p *Post) Clone() *Post {
	c := newPost()
	for s := range p.Sections.All() {
		_ = c.Sections.Append(s.Clone())
	}
	return c
}

// FirstLeaf returns the first section a cursor can be placed in.
func (p *Post) FirstLeaf() *Section {
	return leafFrom(p.Sections.Head(), true)
}

// LastLeaf returns the last section a cursor can be placed in.
func (p *Post) LastLeaf() *Section {
	return leafFrom(p.Sections.Tail(), false)
}

// Leaves returns every leaf section in document order.
func (p *Post) Leaves() []*Section {
	var out []*Section
	for s := p.FirstLeaf(); s != nil; s = s.NextLeaf() {
		out = append(out, s)
	}
	return out
}

// LeafIndex returns the document-order index of a leaf section, or -1.
func (p *Post) LeafIndex(target *Section) int {
	i := 0
	for s := p.FirstLeaf(); s != nil; s = s.NextLeaf() {
		if s == target {
			return i
		}
		i++
	}
	return -1
}

// LeafAt returns the leaf section at a document-order index, or nil.
func (p *Post) LeafAt(index int) *Section {
	i := 0
	for s := p.FirstLeaf(); s != nil; s = s.NextLeaf() {
		if i == index {
			return s
		}
		i++
	}
	return nil
}

// NextLeaf returns the following leaf section in document order. List
// sections are entered rather than returned.
func (s *Section) NextLeaf() *Section {
	if s.Kind == KindListItem {
		if next := s.Next(); next != nil {
			return next
		}
		if s.parent == nil {
			return nil
		}
		return leafFrom(s.parent.Next(), true)
	}
	return leafFrom(s.Next(), true)
}

// PrevLeaf returns the preceding leaf section in document order.
func (s *Section) PrevLeaf() *Section {
	if s.Kind == KindListItem {
		if prev := s.Prev(); prev != nil {
			return prev
		}
		if s.parent == nil {
			return nil
		}
		return leafFrom(s.parent.Prev(), false)
	}
	return leafFrom(s.Prev(), false)
}

// leafFrom returns s if it is a leaf, or descends into lists, skipping empty
// ones, moving forward or backward.
func leafFrom(s *Section, forward bool) *Section {
	for s != nil {
		if s.Kind != KindList {
			return s
		}
		if !s.Items.IsEmpty() {
			if forward {
				return s.Items.Head()
			}
			return s.Items.Tail()
		}
		if forward {
			s = s.Next()
		} else {
			s = s.Prev()
		}
	}
	return nil
}

// TopLevel returns the section itself, or the list owning a list item.
func (s *Section) TopLevel() *Section {
	if s.Kind == KindListItem && s.parent != nil {
		return s.parent
	}
	return s
}

// CompareSections orders two sections of the same post: -1 if a precedes b,
// 0 if equal, 1 if a follows b.
func CompareSections(a, b *Section) int {
	if a == b {
		return 0
	}
	pa, pb := sectionPath(a), sectionPath(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	default:
		return 0
	}
}

func sectionPath(s *Section) []int {
	if s.Kind == KindListItem && s.parent != nil {
		return append(sectionPath(s.parent), s.parent.Items.IndexOf(s))
	}
	if p := s.post; p != nil {
		return []int{p.Sections.IndexOf(s)}
	}
	return []int{-1}
}
