package engine

import (
	"strings"

	"github.com/dshills/folio/internal/engine/cursor"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/posteditor"
	"github.com/dshills/folio/internal/mobiledoc"
)

// Clipboard is the content of a copy: the selection as a mobiledoc document
// and as plain text.
type Clipboard struct {
	Mobiledoc []byte
	Text      string
}

// IsEmpty reports whether the clipboard holds nothing to paste.
func (c Clipboard) IsEmpty() bool { return len(c.Mobiledoc) == 0 && c.Text == "" }

// Copy returns the content of the current range. A collapsed range copies
// nothing.
func (e *Engine) Copy() (Clipboard, error) {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return Clipboard{}, ErrDestroyed
	}
	e.reparse.flushPending()
	return e.copyRange(e.rng)
}

// Cut copies the current range and deletes it.
func (e *Engine) Cut() (Clipboard, error) {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return Clipboard{}, ErrDestroyed
	}
	e.reparse.flushPending()
	c, err := e.copyRange(e.rng)
	if err != nil || c.IsEmpty() {
		return c, err
	}
	r := e.rng
	if err := e.run("cut", func(pe *posteditor.PostEditor) error {
		_, err := pe.DeleteRange(r)
		return err
	}); err != nil {
		return Clipboard{}, err
	}
	return c, nil
}

// Paste inserts c at the cursor, replacing the selection. The mobiledoc
// form wins over the text form when both are present.
func (e *Engine) Paste(c Clipboard) error {
	e.mu.Lock()
	defer e.unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	var (
		p   *post.Post
		err error
	)
	if len(c.Mobiledoc) > 0 {
		p, err = mobiledoc.ParseWithBuilder(e.builder, c.Mobiledoc)
		if err != nil {
			return err
		}
	} else if p, err = postFromText(e.builder, c.Text); err != nil {
		return err
	}
	return e.insertPost(p)
}

func (e *Engine) copyRange(r cursor.Range) (Clipboard, error) {
	if r.IsBlank() || r.IsCollapsed() {
		return Clipboard{}, nil
	}
	p, err := extract(e.builder, r)
	if err != nil {
		return Clipboard{}, err
	}
	data, err := mobiledoc.Render(p, mobiledoc.LatestVersion)
	if err != nil {
		return Clipboard{}, err
	}
	return Clipboard{Mobiledoc: data, Text: p.Text()}, nil
}

// extract copies the content of r into a new post. Partially covered
// sections are trimmed and list items keep their list.
func extract(b *post.Builder, r cursor.Range) (*post.Post, error) {
	var (
		sections []*post.Section
		list     *post.Section
		items    []*post.Section
	)
	flushList := func() error {
		if list == nil {
			return nil
		}
		l, err := b.CreateListSection(list.TagName, items, list.Attributes())
		if err != nil {
			return err
		}
		sections = append(sections, l)
		list, items = nil, nil
		return nil
	}

	for _, s := range r.Sections() {
		from, to := 0, s.Length()
		if s == r.Head.Section {
			from = r.Head.Offset
		}
		if s == r.Tail.Section {
			to = r.Tail.Offset
		}
		if s.IsAtomic() {
			if from >= to {
				continue
			}
			if err := flushList(); err != nil {
				return nil, err
			}
			sections = append(sections, s.Clone())
			continue
		}

		head, _, err := s.SplitAt(to)
		if err != nil {
			return nil, err
		}
		_, mid, err := head.SplitAt(from)
		if err != nil {
			return nil, err
		}
		if !s.IsListItem() {
			if err := flushList(); err != nil {
				return nil, err
			}
			sections = append(sections, mid)
			continue
		}
		if list != s.Parent() {
			if err := flushList(); err != nil {
				return nil, err
			}
			list = s.Parent()
		}
		items = append(items, mid)
	}
	if err := flushList(); err != nil {
		return nil, err
	}
	return b.CreatePost(sections...)
}

// postFromText builds a post holding one paragraph per line of text.
func postFromText(b *post.Builder, text string) (*post.Post, error) {
	if text == "" {
		return b.CreatePost()
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var sections []*post.Section
	for _, line := range strings.Split(text, "\n") {
		var markers []*post.Marker
		if line != "" {
			markers = append(markers, b.CreateMarker(line))
		}
		s, err := b.CreateMarkupSection("p", markers, nil)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return b.CreatePost(sections...)
}
