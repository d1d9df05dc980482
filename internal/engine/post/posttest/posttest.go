// Package posttest provides a small DSL for building posts in tests.
//
//	d := posttest.New(t)
//	p := d.Post(
//	    d.P(d.M("abc"), d.M("def", "b")),
//	    d.UL(d.LI(d.M("item"))),
//	    d.Card("image"),
//	)
package posttest

import (
	"testing"

	"github.com/dshills/folio/internal/engine/post"
)

// DSL builds model objects, failing the test on any error.
type DSL struct {
	t testing.TB
	B *post.Builder
}

// New creates a DSL with a fresh builder.
func New(t testing.TB) *DSL {
	return &DSL{t: t, B: post.NewBuilder()}
}

// WithBuilder creates a DSL sharing an existing builder.
func WithBuilder(t testing.TB, b *post.Builder) *DSL {
	return &DSL{t: t, B: b}
}

// Post builds a post.
func (d *DSL) Post(sections ...*post.Section) *post.Post {
	d.t.Helper()
	p, err := d.B.CreatePost(sections...)
	if err != nil {
		d.t.Fatalf("build post: %v", err)
	}
	return p
}

// P builds a "p" section.
func (d *DSL) P(markers ...*post.Marker) *post.Section {
	d.t.Helper()
	return d.Section("p", markers...)
}

// Text builds a "p" section from plain strings, one marker each.
func (d *DSL) Text(values ...string) *post.Section {
	d.t.Helper()
	markers := make([]*post.Marker, len(values))
	for i, v := range values {
		markers[i] = d.M(v)
	}
	return d.Section("p", markers...)
}

// Section builds a markup section with the given tag.
func (d *DSL) Section(tag string, markers ...*post.Marker) *post.Section {
	d.t.Helper()
	s, err := d.B.CreateMarkupSection(tag, markers, nil)
	if err != nil {
		d.t.Fatalf("build section: %v", err)
	}
	return s
}

// M builds a text marker carrying markups with the given tags.
func (d *DSL) M(value string, tags ...string) *post.Marker {
	d.t.Helper()
	return d.B.CreateMarker(value, d.markups(tags)...)
}

// Atom builds an atom marker.
func (d *DSL) Atom(name, value string, tags ...string) *post.Marker {
	d.t.Helper()
	return d.B.CreateAtom(name, value, nil, d.markups(tags)...)
}

// Markup returns the interned markup for tag.
func (d *DSL) Markup(tag string) *post.Markup {
	d.t.Helper()
	m, err := d.B.CreateMarkup(tag, nil)
	if err != nil {
		d.t.Fatalf("build markup: %v", err)
	}
	return m
}

// UL builds an unordered list.
func (d *DSL) UL(items ...*post.Section) *post.Section {
	d.t.Helper()
	return d.List("ul", items...)
}

// OL builds an ordered list.
func (d *DSL) OL(items ...*post.Section) *post.Section {
	d.t.Helper()
	return d.List("ol", items...)
}

// List builds a list section.
func (d *DSL) List(tag string, items ...*post.Section) *post.Section {
	d.t.Helper()
	s, err := d.B.CreateListSection(tag, items, nil)
	if err != nil {
		d.t.Fatalf("build list: %v", err)
	}
	return s
}

// LI builds a list item.
func (d *DSL) LI(markers ...*post.Marker) *post.Section {
	d.t.Helper()
	s, err := d.B.CreateListItem(markers...)
	if err != nil {
		d.t.Fatalf("build list item: %v", err)
	}
	return s
}

// Card builds a card section.
func (d *DSL) Card(name string) *post.Section {
	return d.B.CreateCardSection(name, nil)
}

// Image builds an image section.
func (d *DSL) Image(src string) *post.Section {
	return d.B.CreateImageSection(src)
}

func (d *DSL) markups(tags []string) []*post.Markup {
	d.t.Helper()
	out := make([]*post.Markup, 0, len(tags))
	for _, tag := range tags {
		out = append(out, d.Markup(tag))
	}
	return out
}
