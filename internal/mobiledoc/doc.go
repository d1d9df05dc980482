// Package mobiledoc reads and writes the mobiledoc JSON format.
//
// A mobiledoc is a compact, array-based serialisation of a post. Versions
// 0.2.0, 0.3.0, 0.3.1 and 0.3.2 are supported. From 0.3.0 on, atoms, cards
// and markups live in definition tables that sections reference by index;
// 0.3.2 adds section attributes.
//
// Section tuples are tagged by type:
//
//	[1, tagName, markers(, attributes)]   markup section
//	[2, src]                              image section
//	[3, tagName, items(, attributes)]     list section
//	[10, cardIndex]                       card section (0.2.0: [10, name, payload])
//
// Marker tuples are [type, openedMarkupIndexes, closeCount, value], where
// type 0 is text and 1 is an atom whose value is an index into the atoms
// table. 0.2.0 markers have no type field.
//
// Basic usage:
//
//	p, err := mobiledoc.Parse(data)
//	if err != nil {
//	    return err
//	}
//	out, err := mobiledoc.Render(p, mobiledoc.LatestVersion)
//
// Rendering is canonical: adjacent markers with equal markups are written
// as they are in the post, and the markups table holds each distinct markup
// once, in first-use order.
package mobiledoc
