package render

import (
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/post"
)

// ParserPlugin recognises DOM the default reparser does not know, such as
// pasted embeds. It runs on every node the renderer did not create, before
// the default parsing. A plugin that handled n calls ctx.NodeFinished so the
// default parsing skips it.
type ParserPlugin func(n *html.Node, b *post.Builder, ctx *ParserContext)

// ParserContext collects what a parser plugin recognised.
type ParserContext struct {
	sections []*post.Section
	markers  []*post.Marker
	finished bool
}

// AddSection adds a section after the current one. Sections added while a
// section's content is parsed are ignored; only markers apply there.
func (c *ParserContext) AddSection(s *post.Section) {
	c.sections = append(c.sections, s)
}

// AddMarker adds a marker at the current position.
func (c *ParserContext) AddMarker(m *post.Marker) {
	c.markers = append(c.markers, m)
}

// NodeFinished marks the node as handled.
func (c *ParserContext) NodeFinished() {
	c.finished = true
}

// UseParserPlugins sets the plugins consulted by ReparsePost and
// ReparseSection, in order. The first plugin that finishes a node wins.
func (t *Tree) UseParserPlugins(plugins ...ParserPlugin) {
	t.plugins = append(t.plugins[:0:0], plugins...)
}

func (t *Tree) runPlugins(b *post.Builder, n *html.Node) (*ParserContext, bool) {
	for _, plugin := range t.plugins {
		ctx := &ParserContext{}
		plugin(n, b, ctx)
		if ctx.finished {
			return ctx, true
		}
	}
	return nil, false
}

// listFromElement builds a list section from a ul or ol inserted outside the
// renderer. Content outside li elements is dropped.
func (t *Tree) listFromElement(b *post.Builder, el *html.Node) (*post.Section, error) {
	var items []*post.Section
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if !dom.IsElement(c, "li") {
			continue
		}
		markers, err := t.collectMarkers(b, c, nil)
		if err != nil {
			return nil, err
		}
		detachMarkers(markers)
		item, err := b.CreateListItem(markers...)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		item, err := b.CreateListItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return b.CreateListSection(el.Data, items, nil)
}
