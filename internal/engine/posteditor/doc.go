// Package posteditor implements the transactional mutation API over a post.
//
// A PostEditor is opened with Begin and closed with Complete. Every mutating
// primitive fails with ErrNotInTransaction outside that bracket. Primitives
// change the model synchronously and report the model nodes they touched to
// a Scheduler (normally the render tree), so that one render pass at the end
// of the transaction brings the DOM up to date.
//
// Primitives:
//
//   - Marker level: SplitMarkerAtOffset, SplitMarkers, InsertMarkers,
//     InsertText, InsertAtom, RemoveMarker
//   - Markup level: AddMarkupToRange, RemoveMarkupFromRange, ToggleMarkup
//   - Section level: SplitSection, ToggleSection, SetAttribute,
//     RemoveAttribute, InsertSection, InsertSectionBefore,
//     InsertSectionAtEnd, ReplaceSection, RemoveSection, MoveSectionUp,
//     MoveSectionDown, SetCardPayload
//   - Deletion: DeleteRange, DeleteAtPosition
//   - Paste: InsertPost
//
// Adjacent text markers with the same markup set are coalesced after every
// primitive, so the model never holds two joinable markers side by side.
//
// Basic usage:
//
//	e := posteditor.New(p, builder, posteditor.WithScheduler(tree))
//	if err := e.Begin(); err != nil {
//	    return err
//	}
//	pos, err := e.InsertText(cursor.Tail(section), "hello")
//	...
//	if err := e.Complete(); err != nil {
//	    return err
//	}
//	restore := e.Range()
//
// The range recorded by the last primitive (or SetRange) is the selection to
// restore once the transaction has been rendered.
package posteditor
