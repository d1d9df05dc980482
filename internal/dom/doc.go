// Package dom provides the editable document surface the renderer writes to.
//
// Nodes are golang.org/x/net/html nodes. The helpers here keep the tree
// consistent: x/net/html panics when a node that already has a parent is
// inserted, so Append and InsertBefore detach first.
//
// Text offsets inside text nodes are counted in runes, the same unit the post
// model uses.
//
// Selection and MutationRecord are plain values. The embedding host reports
// the native selection and any external DOM mutations through them and reads
// the rendered selection back after each render.
package dom
