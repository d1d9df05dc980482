package post_test

import (
	"errors"
	"testing"

	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/post/posttest"
)

func TestBuilderInternsMarkups(t *testing.T) {
	b := post.NewBuilder()
	m1, err := b.CreateMarkup("strong", nil)
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := b.CreateMarkup("STRONG", nil)
	if m1 != m2 {
		t.Error("equal markups should be the same pointer")
	}
	a1, _ := b.CreateMarkup("a", map[string]string{"href": "x"})
	a2, _ := b.CreateMarkup("a", map[string]string{"href": "x"})
	a3, _ := b.CreateMarkup("a", map[string]string{"href": "y"})
	if a1 != a2 {
		t.Error("links with equal attributes should be interned")
	}
	if a1 == a3 {
		t.Error("links with different attributes must differ")
	}
}

func TestMarkupKeysAreDistinct(t *testing.T) {
	b := post.NewBuilder()
	joined, err := b.CreateMarkup("a", map[string]string{"href": "x|rel=y"})
	if err != nil {
		t.Fatal(err)
	}
	split, err := b.CreateMarkup("a", map[string]string{"href": "x", "rel": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if joined == split || joined.Key() == split.Key() {
		t.Fatalf("markups share key %q", joined.Key())
	}
	if got := joined.Attribute("href"); got != "x|rel=y" {
		t.Errorf("href = %q", got)
	}
	if got := split.Attribute("rel"); got != "y" {
		t.Errorf("rel = %q", got)
	}
}

func TestBuilderRejectsInvalidTags(t *testing.T) {
	b := post.NewBuilder()
	if _, err := b.CreateMarkup("blink", nil); !errors.Is(err, post.ErrInvalidTagName) {
		t.Errorf("markup: err = %v", err)
	}
	if _, err := b.CreateMarkupSection("div", nil, nil); !errors.Is(err, post.ErrInvalidTagName) {
		t.Errorf("section: err = %v", err)
	}
	if _, err := b.CreateListSection("dl", nil, nil); !errors.Is(err, post.ErrInvalidTagName) {
		t.Errorf("list: err = %v", err)
	}
	if _, err := b.CreateMarkupSection("p", nil, map[string]string{"style": "x"}); !errors.Is(err, post.ErrInvalidAttribute) {
		t.Errorf("attribute: err = %v", err)
	}
	if _, err := b.CreateMarkup("a", map[string]string{"onclick": "x"}); !errors.Is(err, post.ErrInvalidAttribute) {
		t.Errorf("markup attribute: err = %v", err)
	}
}

func TestSectionLengthAndBlank(t *testing.T) {
	d := posttest.New(t)
	s := d.P(d.M("ab"), d.Atom("mention", "@bob"), d.M("😀"))
	if got := s.Length(); got != 4 {
		t.Errorf("Length() = %d, want 4", got)
	}
	if s.IsBlank() {
		t.Error("section with content is not blank")
	}
	if !d.P(d.M("")).IsBlank() {
		t.Error("section with empty marker is blank")
	}
	if d.P(d.Atom("x", "")).IsBlank() {
		t.Error("atoms are never blank")
	}
	if got := d.Card("c").Length(); got != 1 {
		t.Errorf("card Length() = %d", got)
	}
}

func TestMarkerAtOffset(t *testing.T) {
	d := posttest.New(t)
	s := d.P(d.M("abc"), d.M("def", "b"))
	tests := []struct {
		offset    int
		rightBias bool
		value     string
		inner     int
	}{
		{0, false, "abc", 0},
		{2, false, "abc", 2},
		{3, false, "abc", 3},
		{3, true, "def", 0},
		{6, false, "def", 3},
		{6, true, "def", 3},
	}
	for _, tt := range tests {
		m, inner := s.MarkerAtOffset(tt.offset, tt.rightBias)
		if m.Value != tt.value || inner != tt.inner {
			t.Errorf("MarkerAtOffset(%d, %v) = %q,%d want %q,%d",
				tt.offset, tt.rightBias, m.Value, inner, tt.value, tt.inner)
		}
	}
	if got := s.OffsetOfMarker(s.Markers.Tail()); got != 3 {
		t.Errorf("OffsetOfMarker = %d", got)
	}
}

func TestMarkerSplit(t *testing.T) {
	d := posttest.New(t)
	m := d.M("héllo", "em")
	pre, post2, err := m.Split(2)
	if err != nil {
		t.Fatal(err)
	}
	if pre.Value != "hé" || post2.Value != "llo" {
		t.Errorf("split = %q|%q", pre.Value, post2.Value)
	}
	if !pre.HasMarkup(d.Markup("em")) || !post2.HasMarkup(d.Markup("em")) {
		t.Error("split halves must keep markups")
	}
	if _, _, err := d.Atom("a", "x").Split(0); !errors.Is(err, post.ErrAtomSplit) {
		t.Errorf("atom split err = %v", err)
	}
	if _, _, err := m.Split(9); !errors.Is(err, post.ErrOffsetOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
}

func TestSectionSplitAndJoin(t *testing.T) {
	d := posttest.New(t)
	s := d.P(d.M("ab"), d.M("cd", "b"))
	pre, post2, err := s.SplitAt(3)
	if err != nil {
		t.Fatal(err)
	}
	if got := post.DescribeSection(pre); got != `p("ab",<b>"c")` {
		t.Errorf("pre = %s", got)
	}
	if got := post.DescribeSection(post2); got != `p(<b>"d")` {
		t.Errorf("post = %s", got)
	}
	if _, err := pre.Join(post2); err != nil {
		t.Fatal(err)
	}
	if got := post.DescribeSection(pre); got != `p("ab",<b>"cd")` {
		t.Errorf("joined = %s", got)
	}
}

func TestLeafNavigation(t *testing.T) {
	d := posttest.New(t)
	p1 := d.Text("one")
	li1, li2 := d.LI(d.M("a")), d.LI(d.M("b"))
	card := d.Card("c")
	p := d.Post(p1, d.UL(li1, li2), d.UL(), card)

	want := []*post.Section{p1, li1, li2, card}
	got := p.Leaves()
	if len(got) != len(want) {
		t.Fatalf("Leaves() len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("leaf %d mismatch", i)
		}
	}
	if card.PrevLeaf() != li2 {
		t.Error("PrevLeaf should skip the empty list")
	}
	if li1.PrevLeaf() != p1 {
		t.Error("PrevLeaf of first item should leave the list")
	}
	if p.LeafIndex(li2) != 2 || p.LeafAt(2) != li2 {
		t.Error("LeafIndex/LeafAt mismatch")
	}
	if post.CompareSections(p1, li2) != -1 || post.CompareSections(card, li1) != 1 {
		t.Error("CompareSections order mismatch")
	}
}

func TestCloneAndEqual(t *testing.T) {
	d := posttest.New(t)
	p := d.Post(d.P(d.M("ab"), d.M("c", "b")), d.OL(d.LI(d.M("x"))), d.Image("/a.png"))
	c := p.Clone()
	if !post.Equal(p, c) {
		t.Fatalf("clone differs: %s vs %s", post.Describe(p), post.Describe(c))
	}
	c.Sections.Head().Markers.Head().Value = "zz"
	if post.Equal(p, c) {
		t.Error("mutating a clone must not affect the original")
	}

	split := d.Post(d.P(d.M("a"), d.M("b"), d.M("")))
	joined := d.Post(d.P(d.M("ab")))
	if !post.Equal(split, joined) {
		t.Error("joinable markers should compare as one")
	}
}

func TestListItemOwnership(t *testing.T) {
	d := posttest.New(t)
	li := d.LI(d.M("x"))
	list := d.UL(li)
	if li.Parent() != list {
		t.Error("list item parent not set")
	}
	p := d.Post(list)
	if li.Post() != p {
		t.Error("list item should reach its post through the list")
	}
	if err := list.Items.Remove(li); err != nil {
		t.Fatal(err)
	}
	if li.Parent() != nil {
		t.Error("parent should be cleared on removal")
	}
}
