// Package linkedlist provides the ordered collection every part of the
// document model is stored in: sections in a post, markers in a section,
// items in a list and child render nodes in the render tree.
//
// The list is intrusive. An item type embeds Links[T] for itself, which gives
// the list O(1) insertion and removal without a separate element wrapper:
//
//	type Marker struct {
//	    linkedlist.Links[*Marker]
//	    Value string
//	}
//
//	markers := linkedlist.New[*Marker](
//	    linkedlist.WithAdopt(func(m *Marker) { m.Section = section }),
//	    linkedlist.WithFree(func(m *Marker) { m.Section = nil }),
//	)
//	err := markers.Append(&Marker{Value: "abc"})
//
// An item belongs to at most one list at a time. Inserting an item that is
// already owned, or removing an item through a list that does not own it,
// fails with ErrInvalidOperation.
package linkedlist
