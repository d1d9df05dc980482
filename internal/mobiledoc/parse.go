package mobiledoc

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/folio/internal/engine/post"
)

// Parse reads a mobiledoc document into a new post with its own builder.
func Parse(data []byte) (*post.Post, error) {
	return ParseWithBuilder(post.NewBuilder(), data)
}

// ParseWithBuilder reads a mobiledoc document, creating every model object
// with b so that markups are interned in its table.
func ParseWithBuilder(b *post.Builder, data []byte) (*post.Post, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	p := &parser{b: b, version: doc.Get("version").String()}

	var sections []*post.Section
	var err error
	switch p.version {
	case Version020:
		sections, err = p.parse020(doc)
	case Version030, Version031, Version032:
		sections, err = p.parse03(doc)
	default:
		return nil, fmt.Errorf("%q: %w", p.version, ErrUnknownVersion)
	}
	if err != nil {
		return nil, err
	}
	return b.CreatePost(sections...)
}

type atomDef struct {
	name    string
	value   string
	payload map[string]any
}

type cardDef struct {
	name    string
	payload map[string]any
}

type parser struct {
	b       *post.Builder
	version string
	markups []*post.Markup
	atoms   []atomDef
	cards   []cardDef
}

// parse020 reads {"sections": [markerTypes, sections]}.
func (p *parser) parse020(doc gjson.Result) ([]*post.Section, error) {
	pair := doc.Get("sections").Array()
	if len(pair) != 2 {
		return nil, &ParseError{Path: "sections", Err: ErrInvalidSection}
	}
	if err := p.parseMarkups("sections.0", pair[0]); err != nil {
		return nil, err
	}
	return p.parseSections("sections.1", pair[1])
}

func (p *parser) parse03(doc gjson.Result) ([]*post.Section, error) {
	if err := p.parseMarkups("markups", doc.Get("markups")); err != nil {
		return nil, err
	}
	for i, a := range doc.Get("atoms").Array() {
		t := a.Array()
		if len(t) < 2 {
			return nil, &ParseError{Path: fmt.Sprintf("atoms.%d", i), Err: ErrInvalidMarker}
		}
		p.atoms = append(p.atoms, atomDef{
			name:    t[0].String(),
			value:   t[1].String(),
			payload: payloadOf(t, 2),
		})
	}
	for i, c := range doc.Get("cards").Array() {
		t := c.Array()
		if len(t) < 1 {
			return nil, &ParseError{Path: fmt.Sprintf("cards.%d", i), Err: ErrInvalidSection}
		}
		p.cards = append(p.cards, cardDef{name: t[0].String(), payload: payloadOf(t, 1)})
	}
	return p.parseSections("sections", doc.Get("sections"))
}

func (p *parser) parseMarkups(path string, list gjson.Result) error {
	for i, m := range list.Array() {
		t := m.Array()
		if len(t) == 0 {
			return &ParseError{Path: fmt.Sprintf("%s.%d", path, i), Err: ErrInvalidMarker}
		}
		var attrs map[string]string
		if len(t) > 1 {
			attrs = pairs(t[1])
		}
		mu, err := p.b.CreateMarkup(t[0].String(), attrs)
		if err != nil {
			return &ParseError{Path: fmt.Sprintf("%s.%d", path, i), Err: err}
		}
		p.markups = append(p.markups, mu)
	}
	return nil
}

func (p *parser) parseSections(path string, list gjson.Result) ([]*post.Section, error) {
	var out []*post.Section
	for i, s := range list.Array() {
		sec, err := p.section(s)
		if err != nil {
			return nil, &ParseError{Path: fmt.Sprintf("%s.%d", path, i), Err: err}
		}
		out = append(out, sec)
	}
	return out, nil
}

func (p *parser) section(s gjson.Result) (*post.Section, error) {
	t := s.Array()
	if len(t) < 2 {
		return nil, ErrInvalidSection
	}
	switch t[0].Int() {
	case markupSectionType:
		if len(t) < 3 {
			return nil, ErrInvalidSection
		}
		markers, err := p.markers(t[2])
		if err != nil {
			return nil, err
		}
		return p.b.CreateMarkupSection(t[1].String(), markers, p.attributes(t, 3))

	case imageSectionType:
		return p.b.CreateImageSection(t[1].String()), nil

	case listSectionType:
		if len(t) < 3 {
			return nil, ErrInvalidSection
		}
		var items []*post.Section
		for _, it := range t[2].Array() {
			markers, err := p.markers(it)
			if err != nil {
				return nil, err
			}
			item, err := p.b.CreateListItem(markers...)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return p.b.CreateListSection(t[1].String(), items, p.attributes(t, 3))

	case cardSectionType:
		if p.version == Version020 {
			return p.b.CreateCardSection(t[1].String(), payloadOf(t, 2)), nil
		}
		idx := int(t[1].Int())
		if idx < 0 || idx >= len(p.cards) {
			return nil, fmt.Errorf("card %d: %w", idx, ErrInvalidReference)
		}
		def := p.cards[idx]
		return p.b.CreateCardSection(def.name, copyPayload(def.payload)), nil
	}
	return nil, fmt.Errorf("type %d: %w", t[0].Int(), ErrInvalidSection)
}

// markers rebuilds the markup nesting of one section from the open/close
// counts of its marker tuples.
func (p *parser) markers(list gjson.Result) ([]*post.Marker, error) {
	var (
		stack []*post.Markup
		out   []*post.Marker
	)
	for _, m := range list.Array() {
		t := m.Array()
		typ := int64(textMarkerType)
		if p.version != Version020 {
			if len(t) < 4 {
				return nil, ErrInvalidMarker
			}
			typ = t[0].Int()
			t = t[1:]
		} else if len(t) < 3 {
			return nil, ErrInvalidMarker
		}

		for _, idx := range t[0].Array() {
			i := int(idx.Int())
			if i < 0 || i >= len(p.markups) {
				return nil, fmt.Errorf("markup %d: %w", i, ErrInvalidReference)
			}
			stack = append(stack, p.markups[i])
		}
		markups := append([]*post.Markup(nil), stack...)

		switch typ {
		case textMarkerType:
			if v := t[2].String(); v != "" {
				out = append(out, p.b.CreateMarker(v, markups...))
			}
		case atomMarkerType:
			i := int(t[2].Int())
			if i < 0 || i >= len(p.atoms) {
				return nil, fmt.Errorf("atom %d: %w", i, ErrInvalidReference)
			}
			def := p.atoms[i]
			out = append(out, p.b.CreateAtom(def.name, def.value, copyPayload(def.payload), markups...))
		default:
			return nil, fmt.Errorf("type %d: %w", typ, ErrInvalidMarker)
		}

		closed := min(int(t[1].Int()), len(stack))
		stack = stack[:len(stack)-max(closed, 0)]
	}
	return out, nil
}

// attributes reads the flat [name, value, ...] list at t[i] of a 0.3.2
// section tuple.
func (p *parser) attributes(t []gjson.Result, i int) map[string]string {
	if !hasSectionAttributes(p.version) || len(t) <= i {
		return nil
	}
	return pairs(t[i])
}

func pairs(r gjson.Result) map[string]string {
	list := r.Array()
	if len(list) < 2 {
		return nil
	}
	out := make(map[string]string, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		out[list[i].String()] = list[i+1].String()
	}
	return out
}

func payloadOf(t []gjson.Result, i int) map[string]any {
	if len(t) > i && t[i].IsObject() {
		if m, ok := t[i].Value().(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
