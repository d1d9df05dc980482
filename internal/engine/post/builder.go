package post

import (
	"fmt"
	"sync"
)

// Builder creates model objects and interns markups so that equivalent
// markups share one pointer.
type Builder struct {
	mu      sync.Mutex
	markups map[string]*Markup
}

// NewBuilder creates a builder with an empty markup table.
func NewBuilder() *Builder {
	return &Builder{markups: make(map[string]*Markup)}
}

// CreatePost creates a post holding the given sections.
func (b *Builder) CreatePost(sections ...*Section) (*Post, error) {
	p := newPost()
	for _, s := range sections {
		if s.Kind == KindListItem {
			return nil, fmt.Errorf("list item at top level: %w", ErrWrongKind)
		}
		if err := p.Sections.Append(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CreateMarkupSection creates a markup section. An empty tag means "p".
func (b *Builder) CreateMarkupSection(tag string, markers []*Marker, attrs map[string]string) (*Section, error) {
	if tag == "" {
		tag = DefaultSectionTag
	}
	tag = NormalizeTagName(tag)
	if !IsMarkupSectionTag(tag) {
		return nil, fmt.Errorf("markup section %q: %w", tag, ErrInvalidTagName)
	}
	s := newSection(KindMarkup, tag)
	if err := setAttributes(s, attrs); err != nil {
		return nil, err
	}
	if err := appendMarkers(s, markers); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateBlankSection creates an empty "p" section.
func (b *Builder) CreateBlankSection() *Section {
	return newSection(KindMarkup, DefaultSectionTag)
}

// CreateListSection creates a ul or ol holding items.
func (b *Builder) CreateListSection(tag string, items []*Section, attrs map[string]string) (*Section, error) {
	if tag == "" {
		tag = "ul"
	}
	tag = NormalizeTagName(tag)
	if !IsListSectionTag(tag) {
		return nil, fmt.Errorf("list section %q: %w", tag, ErrInvalidTagName)
	}
	s := newSection(KindList, tag)
	if err := setAttributes(s, attrs); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Kind != KindListItem {
			return nil, fmt.Errorf("list holding %s: %w", item.Kind, ErrWrongKind)
		}
		if err := s.Items.Append(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateListItem creates a list item holding markers.
func (b *Builder) CreateListItem(markers ...*Marker) (*Section, error) {
	s := newSection(KindListItem, "li")
	if err := appendMarkers(s, markers); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateCardSection creates a card section.
func (b *Builder) CreateCardSection(name string, payload map[string]any) *Section {
	s := newSection(KindCard, "")
	s.Name = name
	if payload == nil {
		payload = map[string]any{}
	}
	s.Payload = payload
	return s
}

// CreateImageSection creates an image section.
func (b *Builder) CreateImageSection(src string) *Section {
	s := newSection(KindImage, "img")
	s.Src = src
	return s
}

// CreateMarker creates a text marker. Markups are interned.
func (b *Builder) CreateMarker(value string, markups ...*Markup) *Marker {
	return &Marker{Kind: MarkerText, Value: value, Markups: b.internAll(markups)}
}

// CreateAtom creates an atom marker. Markups are interned.
func (b *Builder) CreateAtom(name, value string, payload map[string]any, markups ...*Markup) *Marker {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Marker{
		Kind:    MarkerAtom,
		Name:    name,
		Value:   value,
		Payload: payload,
		Markups: b.internAll(markups),
	}
}

// CreateMarkup returns the interned markup for tag and attributes.
func (b *Builder) CreateMarkup(tag string, attrs map[string]string) (*Markup, error) {
	tag = NormalizeTagName(tag)
	if !IsMarkupTag(tag) {
		return nil, fmt.Errorf("markup %q: %w", tag, ErrInvalidTagName)
	}
	for k := range attrs {
		if !IsMarkupAttribute(k) {
			return nil, fmt.Errorf("markup %s attribute %q: %w", tag, k, ErrInvalidAttribute)
		}
	}
	return b.intern(tag, attrs), nil
}

// Intern returns the builder's markup equivalent to m.
func (b *Builder) Intern(m *Markup) *Markup {
	if m == nil {
		return nil
	}
	return b.intern(m.TagName, m.Attributes)
}

// InternMarker re-interns the markups of a marker in place. It is used when
// adopting content created by another builder.
func (b *Builder) InternMarker(m *Marker) {
	m.Markups = b.internAll(m.Markups)
}

func (b *Builder) intern(tag string, attrs map[string]string) *Markup {
	key := markupKey(tag, attrs)
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.markups[key]; ok {
		return m
	}
	var copied map[string]string
	if len(attrs) > 0 {
		copied = make(map[string]string, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
	}
	m := &Markup{TagName: tag, Attributes: copied, key: key}
	b.markups[key] = m
	return m
}

func (b *Builder) internAll(markups []*Markup) []*Markup {
	if len(markups) == 0 {
		return nil
	}
	out := make([]*Markup, 0, len(markups))
	for _, m := range markups {
		im := b.Intern(m)
		if !containsMarkup(out, im) {
			out = append(out, im)
		}
	}
	return out
}

func setAttributes(s *Section, attrs map[string]string) error {
	for k, v := range attrs {
		if err := s.SetAttribute(k, v); err != nil {
			return err
		}
	}
	return nil
}

func appendMarkers(s *Section, markers []*Marker) error {
	for _, m := range markers {
		if err := s.Markers.Append(m); err != nil {
			return err
		}
	}
	return nil
}
