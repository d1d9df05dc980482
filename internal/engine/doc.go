// Package engine provides the rich-text editing engine for Folio.
//
// The engine package is the main facade. It binds a post, the render tree
// that displays it in a contenteditable root, the undo history and the
// current range into one thread-safe API.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - linkedlist: Intrusive doubly linked list holding sections, markers and render nodes
//   - post: The document model (post, sections, markers, markups) and its builder
//   - cursor: Positions and ranges over the post with character and word movement
//   - posteditor: Transactional mutations of the post
//   - history: Snapshot-based undo/redo with typing coalescing
//
// The render package keeps the DOM in sync with the post and reads user
// edits back from it. The mobiledoc package loads and saves posts.
//
// # Thread Safety
//
// All Engine operations are serialised by one mutex. Callbacks registered
// with OnPostDidChange and OnCursorDidChange run after it is released and
// may call back into the engine.
//
// # Basic Usage
//
//	e, err := engine.New(engine.WithMobiledoc(data))
//	if err != nil {
//		return err
//	}
//	defer e.Destroy()
//
//	// Render into the root element
//	e.Render()
//
//	// Edit at the cursor
//	e.InsertText("Hello")
//	e.ToggleMarkup("b", nil)
//	e.InsertText(" world")
//
//	// Save
//	out, _ := e.Serialize(mobiledoc.LatestVersion)
//
// # Transactions
//
// Run gives direct access to a PostEditor. Every call is one transaction:
// it is recorded for undo and followed by one render pass.
//
//	e.Run(func(pe *posteditor.PostEditor) error {
//		pos := cursor.PostTail(pe.Post())
//		_, err := pe.InsertText(pos, "!")
//		return err
//	})
//
// # Undo/Redo
//
// Consecutive typing or deleting within the block timeout is one undo step.
// Other edits each become their own step.
//
//	e.InsertText("a")
//	e.InsertText("b")
//	e.Undo() // removes "ab"
//
// Group several transactions into one step:
//
//	e.UndoGroup("Reformat", func() error {
//		if err := e.ToggleSection("h2"); err != nil {
//			return err
//		}
//		return e.SetAttribute("data-md-text-align", "center")
//	})
//
// # DOM Mutations
//
// Edits the user makes directly in the DOM are reported with DidMutate.
// The touched sections are read back into the post after a short delay,
// or before the next edit.
//
//	job := e.DidMutate(records)
//	if err := job.Wait(ctx); err != nil {
//		return err
//	}
package engine
