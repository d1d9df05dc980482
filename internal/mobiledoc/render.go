package mobiledoc

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/folio/internal/engine/post"
)

// Render writes p as a mobiledoc document of the given version. Atoms are
// written as plain text in 0.2.0, which has no atoms table.
func Render(p *post.Post, version string) ([]byte, error) {
	if !IsSupported(version) {
		return nil, fmt.Errorf("%q: %w", version, ErrUnknownVersion)
	}
	r := &renderer{
		version:     version,
		markups:     newArray(),
		markupIndex: make(map[string]int),
		atoms:       newArray(),
		cards:       newArray(),
	}
	return r.render(p)
}

type renderer struct {
	version     string
	markups     *array
	markupIndex map[string]int
	atoms       *array
	cards       *array
}

func (r *renderer) render(p *post.Post) ([]byte, error) {
	sections := newArray()
	for s := range p.Sections.All() {
		sec, err := r.section(s)
		if err != nil {
			return nil, err
		}
		sections.addArray(sec)
	}

	doc := []byte(`{}`)
	var err error
	set := func(path string, a *array) {
		if err != nil {
			return
		}
		var raw []byte
		if raw, err = a.bytes(); err == nil {
			doc, err = sjson.SetRawBytes(doc, path, raw)
		}
	}

	doc, err = sjson.SetBytes(doc, "version", r.version)
	if r.version == Version020 {
		set("sections", newArray().addArray(r.markups).addArray(sections))
	} else {
		set("atoms", r.atoms)
		set("cards", r.cards)
		set("markups", r.markups)
		set("sections", sections)
	}
	if err != nil {
		return nil, fmt.Errorf("render mobiledoc: %w", err)
	}
	return doc, nil
}

func (r *renderer) section(s *post.Section) (*array, error) {
	switch s.Kind {
	case post.KindMarkup:
		a := newArray().add(markupSectionType).add(s.TagName).addArray(r.markers(s))
		return r.withAttributes(a, s), nil

	case post.KindList:
		items := newArray()
		for item := range s.Items.All() {
			items.addArray(r.markers(item))
		}
		a := newArray().add(listSectionType).add(s.TagName).addArray(items)
		return r.withAttributes(a, s), nil

	case post.KindImage:
		return newArray().add(imageSectionType).add(s.Src), nil

	case post.KindCard:
		if r.version == Version020 {
			return newArray().add(cardSectionType).add(s.Name).add(payload(s.Payload)), nil
		}
		idx := r.cards.len()
		r.cards.addArray(newArray().add(s.Name).add(payload(s.Payload)))
		return newArray().add(cardSectionType).add(idx), nil
	}
	return nil, fmt.Errorf("%s: %w", s.Kind, ErrInvalidSection)
}

func (r *renderer) withAttributes(a *array, s *post.Section) *array {
	if !hasSectionAttributes(r.version) {
		return a
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		a.addArray(flatten(attrs))
	}
	return a
}

func (r *renderer) markers(s *post.Section) *array {
	out := newArray()
	for m := range s.Markers.All() {
		opened := newArray()
		for _, mu := range m.OpenedMarkups() {
			opened.add(r.markupRef(mu))
		}
		closed := len(m.ClosedMarkups())

		t := newArray()
		switch {
		case r.version == Version020:
			t.addArray(opened).add(closed).add(m.Value)
		case m.IsAtom():
			idx := r.atoms.len()
			r.atoms.addArray(newArray().add(m.Name).add(m.Value).add(payload(m.Payload)))
			t.add(atomMarkerType).addArray(opened).add(closed).add(idx)
		default:
			t.add(textMarkerType).addArray(opened).add(closed).add(m.Value)
		}
		out.addArray(t)
	}
	return out
}

// markupRef returns the table index of mu, adding it on first use.
func (r *renderer) markupRef(mu *post.Markup) int {
	if idx, ok := r.markupIndex[mu.Key()]; ok {
		return idx
	}
	def := newArray().add(mu.TagName)
	if len(mu.Attributes) > 0 {
		def.addArray(flatten(mu.Attributes))
	}
	idx := r.markups.len()
	r.markups.addArray(def)
	r.markupIndex[mu.Key()] = idx
	return idx
}

// flatten writes attributes as [name, value, ...] sorted by name.
func flatten(attrs map[string]string) *array {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	a := newArray()
	for _, k := range names {
		a.add(k).add(attrs[k])
	}
	return a
}

func payload(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}

// array accumulates a JSON array with sjson. The first error sticks.
type array struct {
	buf []byte
	n   int
	err error
}

func newArray() *array {
	return &array{buf: []byte(`{"a":[]}`)}
}

func (a *array) add(v any) *array {
	if a.err == nil {
		a.buf, a.err = sjson.SetBytes(a.buf, "a.-1", v)
		a.n++
	}
	return a
}

func (a *array) addArray(b *array) *array {
	if a.err != nil {
		return a
	}
	raw, err := b.bytes()
	if err != nil {
		a.err = err
		return a
	}
	a.buf, a.err = sjson.SetRawBytes(a.buf, "a.-1", raw)
	a.n++
	return a
}

func (a *array) len() int { return a.n }

func (a *array) bytes() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	return []byte(gjson.GetBytes(a.buf, "a").Raw), nil
}
