package history

import (
	"time"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
)

// leafOffset addresses a position by document-order leaf index so it can be
// resolved against a restored copy of the post.
type leafOffset struct {
	leaf   int
	offset int
}

// Snapshot is a saved copy of a post together with the selection active
// at that time.
type Snapshot struct {
	post      *post.Post
	head      leafOffset
	tail      leafOffset
	direction cursor.Direction
	hasRange  bool
	Timestamp time.Time
}

// TakeSnapshot deep-copies p and records r relative to it.
func TakeSnapshot(p *post.Post, r cursor.Range) *Snapshot {
	s := &Snapshot{post: p.Clone(), direction: r.Direction}
	if r.Head.Section != nil && r.Tail.Section != nil {
		hi, ti := p.LeafIndex(r.Head.Section), p.LeafIndex(r.Tail.Section)
		if hi >= 0 && ti >= 0 {
			s.head = leafOffset{leaf: hi, offset: r.Head.Offset}
			s.tail = leafOffset{leaf: ti, offset: r.Tail.Offset}
			s.hasRange = true
		}
	}
	return s
}

// Post returns the saved post. Callers must not mutate it; use Restore.
func (s *Snapshot) Post() *post.Post { return s.post }

// Restore replaces the sections of p with a copy of the saved sections and
// returns the saved range resolved against p. The previous sections of p are
// detached.
func (s *Snapshot) Restore(p *post.Post) cursor.Range {
	for _, sec := range p.Sections.Items() {
		_ = p.Sections.Remove(sec)
	}
	c := s.post.Clone()
	for _, sec := range c.Sections.Items() {
		_ = c.Sections.Remove(sec)
		_ = p.Sections.Append(sec)
	}
	return s.Range(p)
}

// Range resolves the saved range against p, which must have the saved
// structure. It returns a blank range when no range was saved.
func (s *Snapshot) Range(p *post.Post) cursor.Range {
	if !s.hasRange {
		return cursor.Range{}
	}
	head, ok := resolve(p, s.head)
	if !ok {
		return cursor.Range{}
	}
	tail, ok := resolve(p, s.tail)
	if !ok {
		return cursor.Range{}
	}
	return cursor.NewRange(head, tail, s.direction)
}

func resolve(p *post.Post, lo leafOffset) (cursor.Position, bool) {
	leaf := p.LeafAt(lo.leaf)
	if leaf == nil {
		return cursor.Position{}, false
	}
	pos, err := cursor.ToPosition(leaf, lo.offset)
	if err != nil {
		return cursor.Tail(leaf), true
	}
	return pos, true
}
