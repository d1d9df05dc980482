// Package render keeps an editable DOM subtree consistent with a post.
//
// A Tree holds one RenderNode per rendered model node (the post, its
// sections, list items and markers) in a side table keyed by the model node,
// plus a reverse table keyed by the DOM nodes each render node owns. The
// model never points at its render nodes.
//
// Lifecycle of a render node:
//
//	clean --MarkDirty--> dirty --Render--> clean
//	clean/dirty --ScheduleForRemoval--> removed (DOM detached, children removed)
//
// Dirtiness propagates to ancestors, so a render pass starts at the root and
// only descends along dirty paths. Re-rendering a markerable section rebuilds
// its markup wrappers but reuses the text nodes and atom wrappers of its
// markers, so native selection inside unaffected text survives.
//
// Cards and atoms render through registered definitions. Their content is
// bracketed by two ZWNJ text nodes the cursor can land on:
//
//	<div class="__mobiledoc-card">ZWNJ<div contenteditable="false">...</div>ZWNJ</div>
//	ZWNJ<span class="-mobiledoc-kit__atom" contenteditable="false">...</span>ZWNJ
//
// PositionFromNode and DOMPoint map between DOM points and cursor positions.
// ReparseSection and ReparsePost re-derive the model from a DOM that was
// edited outside the renderer. Parser plugins registered with
// UseParserPlugins see unknown DOM before the default parsing does.
package render
