package render

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/post/posttest"
)

func TestReparseSectionTextChange(t *testing.T) {
	d := posttest.New(t)
	m := d.M("abc")
	s := d.P(m)
	tree, r := setup(t, d.Post(s))
	text := tree.Lookup(m).Element

	text.Data = "abXc"
	if err := tree.ReparseSection(d.B, s); err != nil {
		t.Fatal(err)
	}
	if s.Markers.Len() != 1 || s.Markers.Head() != m || m.Value != "abXc" {
		t.Fatalf("markers = %s", post.DescribeSection(s))
	}
	if err := r.Render(tree); err != nil {
		t.Fatal(err)
	}
	if tree.Lookup(m).Element != text {
		t.Error("text node should survive the reparse")
	}
}

func TestReparseSectionStructure(t *testing.T) {
	d := posttest.New(t)
	m1, m2 := d.M("one "), d.M("two")
	atom := d.Atom("mention", "@x")
	s := d.P(m1, m2, atom)
	tree, r := setup(t, d.Post(s), WithAtoms(mentionAtom()))
	el := tree.Lookup(s).Element

	// native editing removed "two" and typed bold text before the atom
	dom.Detach(tree.Lookup(m2).Element)
	bold := dom.NewElement("b")
	dom.Append(bold, dom.NewText("new"))
	dom.InsertBefore(el, bold, tree.Lookup(atom).HeadText)

	if err := tree.ReparseSection(d.B, s); err != nil {
		t.Fatal(err)
	}
	want := `p("one ",<b>"new",@mention("@x"))`
	if got := post.DescribeSection(s); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if m2.Section() != nil {
		t.Error("removed marker should be detached")
	}
	if err := r.Render(tree); err != nil {
		t.Fatal(err)
	}
	wantHTML := `<p>one <b>new</b>` + z + `<span class="-mobiledoc-kit__atom" contenteditable="false">@x</span>` + z + `</p>`
	if got := inner(t, tree); got != wantHTML {
		t.Errorf("html = %s", got)
	}
}

func TestReparsePost(t *testing.T) {
	d := posttest.New(t)
	a, b := d.Text("a"), d.Text("b")
	p := d.Post(a, b)
	tree, r := setup(t, p)
	root := tree.Element()

	dom.Detach(tree.Lookup(b).Element)
	para := dom.NewElement("h2")
	dom.Append(para, dom.NewText("typed"))
	dom.Append(root, para)
	dom.Append(root, dom.NewText("stray"))

	if err := tree.ReparsePost(d.B); err != nil {
		t.Fatal(err)
	}
	want := `[p("a"), h2("typed"), p("stray")]`
	if got := post.Describe(p); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if err := r.Render(tree); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, tree); got != "<p>a</p><h2>typed</h2><p>stray</p>" {
		t.Errorf("html = %s", got)
	}
}

func TestReparsePostKeepsOneSection(t *testing.T) {
	d := posttest.New(t)
	a := d.Text("a")
	p := d.Post(a)
	tree, _ := setup(t, p)
	dom.Clear(tree.Element())

	if err := tree.ReparsePost(d.B); err != nil {
		t.Fatal(err)
	}
	if p.Sections.Len() != 1 || !p.Sections.Head().IsBlank() {
		t.Errorf("post = %s", post.Describe(p))
	}
}

func TestReparsePostList(t *testing.T) {
	d := posttest.New(t)
	p := d.Post(d.Text("a"))
	tree, r := setup(t, p)

	list := dom.NewElement("ol")
	for _, v := range []string{"x", "y"} {
		li := dom.NewElement("li")
		dom.Append(li, dom.NewText(v))
		dom.Append(list, li)
	}
	dom.Append(list, dom.NewText("dropped"))
	dom.Append(tree.Element(), list)

	if err := tree.ReparsePost(d.B); err != nil {
		t.Fatal(err)
	}
	want := `[p("a"), ol[li("x"), li("y")]]`
	if got := post.Describe(p); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if err := r.Render(tree); err != nil {
		t.Fatal(err)
	}
	if got := inner(t, tree); got != "<p>a</p><ol><li>x</li><li>y</li></ol>" {
		t.Errorf("html = %s", got)
	}
}

func TestParserPlugins(t *testing.T) {
	embed := func(n *html.Node, b *post.Builder, ctx *ParserContext) {
		if _, ok := dom.Attr(n, "data-embed"); ok {
			ctx.AddSection(b.CreateCardSection("embed", nil))
			ctx.NodeFinished()
		}
	}
	tag := func(n *html.Node, b *post.Builder, ctx *ParserContext) {
		if class, _ := dom.Attr(n, "class"); class == "tag" && n.FirstChild != nil {
			ctx.AddMarker(b.CreateAtom("tag", n.FirstChild.Data, nil))
			ctx.NodeFinished()
		}
	}
	skip := func(n *html.Node, b *post.Builder, ctx *ParserContext) {
		if dom.IsElement(n, "script") {
			ctx.NodeFinished()
		}
	}

	tests := []struct {
		name  string
		build func(root *html.Node)
		want  string
	}{
		{
			name: "section",
			build: func(root *html.Node) {
				dom.Append(root, dom.NewElement("figure", html.Attribute{Key: "data-embed", Val: "v1"}))
			},
			want: `[p("a"), card:embed]`,
		},
		{
			name: "inline marker",
			build: func(root *html.Node) {
				h := dom.NewElement("h2")
				dom.Append(h, dom.NewText("see "))
				span := dom.NewElement("span", html.Attribute{Key: "class", Val: "tag"})
				dom.Append(span, dom.NewText("#go"))
				dom.Append(h, span)
				dom.Append(root, h)
			},
			want: `[p("a"), h2("see ",@tag("#go"))]`,
		},
		{
			name: "stray marker",
			build: func(root *html.Node) {
				span := dom.NewElement("span", html.Attribute{Key: "class", Val: "tag"})
				dom.Append(span, dom.NewText("#x"))
				dom.Append(root, span)
			},
			want: `[p("a"), p(@tag("#x"))]`,
		},
		{
			name: "finished without output",
			build: func(root *html.Node) {
				s := dom.NewElement("script")
				dom.Append(s, dom.NewText("alert(1)"))
				dom.Append(root, s)
			},
			want: `[p("a")]`,
		},
		{
			name: "unhandled",
			build: func(root *html.Node) {
				fig := dom.NewElement("figure")
				dom.Append(fig, dom.NewText("caption"))
				dom.Append(root, fig)
			},
			want: `[p("a"), p("caption")]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := posttest.New(t)
			p := d.Post(d.Text("a"))
			tree, _ := setup(t, p)
			tree.UseParserPlugins(embed, tag, skip)
			tt.build(tree.Element())

			if err := tree.ReparsePost(d.B); err != nil {
				t.Fatal(err)
			}
			if got := post.Describe(p); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReparseAtomPlaceholderText(t *testing.T) {
	tests := []struct {
		name     string
		tail     bool
		wantPost string
	}{
		{"head placeholder", false, `p("ax",@mention("@x"),"b")`},
		{"tail placeholder", true, `p("a",@mention("@x"),"xb")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := posttest.New(t)
			atom := d.Atom("mention", "@x")
			s := d.P(d.M("a"), atom, d.M("b"))
			tree, r := setup(t, d.Post(s), WithAtoms(mentionAtom()))

			placeholder := tree.Lookup(atom).HeadText
			if tt.tail {
				placeholder = tree.Lookup(atom).TailText
			}
			placeholder.Data = z + "x"

			if err := tree.ReparseSection(d.B, s); err != nil {
				t.Fatal(err)
			}
			if got := post.DescribeSection(s); got != tt.wantPost {
				t.Errorf("got %s, want %s", got, tt.wantPost)
			}
			if placeholder.Data != z {
				t.Errorf("placeholder = %q, want ZWNJ only", placeholder.Data)
			}
			if err := r.Render(tree); err != nil {
				t.Fatal(err)
			}
			if got := post.DescribeSection(s); got != tt.wantPost {
				t.Errorf("after render got %s", got)
			}
		})
	}
}

func TestReparseDropsUnknownMarkupAttributes(t *testing.T) {
	d := posttest.New(t)
	s := d.P(d.M("a"))
	tree, _ := setup(t, d.Post(s))
	link := dom.NewElement("a",
		html.Attribute{Key: "href", Val: "/x"},
		html.Attribute{Key: "style", Val: "color:red"},
		html.Attribute{Key: "onclick", Val: "steal()"},
	)
	dom.Append(link, dom.NewText("link"))
	dom.Append(tree.Lookup(s).Element, link)

	if err := tree.ReparseSection(d.B, s); err != nil {
		t.Fatal(err)
	}
	want := `p("a",<a|href=/x>"link")`
	if got := post.DescribeSection(s); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
