package dom

import (
	"testing"
)

func TestInsertHelpersDetachFirst(t *testing.T) {
	a := NewElement("div")
	b := NewElement("div")
	x := NewText("x")
	y := NewText("y")

	Append(a, x)
	Append(b, x)
	if x.Parent != b || a.FirstChild != nil {
		t.Fatal("Append should move the node")
	}
	InsertBefore(b, y, x)
	if b.FirstChild != y || b.LastChild != x {
		t.Fatal("InsertBefore order wrong")
	}
	InsertBefore(b, x, y)
	if b.FirstChild != x || ChildCount(b) != 2 {
		t.Fatal("InsertBefore should reorder siblings")
	}
	InsertBefore(a, y, x)
	if y.Parent != a {
		t.Fatal("foreign ref should append")
	}
}

func TestAttributes(t *testing.T) {
	n := NewElement("P")
	if n.Data != "p" {
		t.Errorf("tag = %q", n.Data)
	}
	SetAttr(n, "class", "one two")
	SetAttr(n, "class", "one three")
	if v, _ := Attr(n, "class"); v != "one three" || len(n.Attr) != 1 {
		t.Errorf("class = %q (%d attrs)", v, len(n.Attr))
	}
	if !HasClass(n, "three") || HasClass(n, "two") {
		t.Error("HasClass mismatch")
	}
	RemoveAttr(n, "class")
	if _, ok := Attr(n, "class"); ok {
		t.Error("attribute should be removed")
	}
}

func TestSerializeAndParse(t *testing.T) {
	root := NewRoot()
	p := NewElement("p")
	Append(root, p)
	Append(p, NewText("a<b"))
	got, err := Serialize(root)
	if err != nil {
		t.Fatal(err)
	}
	want := `<div contenteditable="true"><p>a&lt;b</p></div>`
	if got != want {
		t.Errorf("Serialize = %s, want %s", got, want)
	}

	nodes, err := ParseFragment("<b>x</b>y")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || !IsElement(nodes[0], "b") || !IsText(nodes[1]) {
		t.Fatalf("ParseFragment = %v", nodes)
	}
	if nodes[0].Parent != nil {
		t.Error("parsed nodes should be detached")
	}
}

func TestTreeQueries(t *testing.T) {
	root := NewRoot()
	p := NewElement("p")
	Append(root, p)
	a, b := NewText("héllo"), NewText("!")
	Append(p, a)
	Append(p, b)
	if IndexOf(b) != 1 || ChildAt(p, 0) != a || ChildAt(p, 5) != nil {
		t.Error("index queries mismatch")
	}
	if !Contains(root, b) || Contains(p, root) {
		t.Error("Contains mismatch")
	}
	if TextLength(a) != 5 || TextContent(root) != "héllo!" {
		t.Error("text queries mismatch")
	}
	Clear(p)
	if p.FirstChild != nil || a.Parent != nil {
		t.Error("Clear should detach children")
	}
}

func TestSelection(t *testing.T) {
	n := NewText("x")
	if !(Selection{}).IsEmpty() {
		t.Error("zero selection is empty")
	}
	s := Caret(Point{Node: n, Offset: 1})
	if !s.IsCollapsed() || s.IsEmpty() {
		t.Error("caret should be collapsed")
	}
}
