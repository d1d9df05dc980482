// Package post implements the abstract, renderer-independent document model.
//
// A Post is an ordered list of Sections. Sections are a closed set of
// variants distinguished by Kind:
//
//   - KindMarkup: a paragraph or heading holding Markers
//   - KindList: a ul/ol holding list items
//   - KindListItem: a list item holding Markers, always owned by a list
//   - KindCard: an opaque block with a name and payload
//   - KindImage: an opaque block with a source URL
//
// Markup sections and list items are "markerable". Their content is a list of
// Markers, each either a text run or an atom (MarkerAtom), carrying an ordered
// set of Markups. Markups are interned by the Builder, so two markups with the
// same tag and attributes are the same pointer.
//
// Code that walks the tree switches on Kind rather than relying on per-type
// methods, which keeps the handling of each variant explicit.
package post
