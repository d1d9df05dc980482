package mobiledoc

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/folio/internal/engine/post"
	"github.com/dshills/folio/internal/engine/post/posttest"
)

func samplePost(t *testing.T, d *posttest.DSL, atoms, attrs bool) *post.Post {
	t.Helper()
	heading := d.Section("h2", d.M("Title", "em"))
	if attrs {
		if err := heading.SetAttribute("data-md-text-align", "center"); err != nil {
			t.Fatal(err)
		}
	}
	body := []*post.Marker{d.M("a"), d.M("b", "b"), d.M("c", "b", "i"), d.M("d")}
	if atoms {
		body = append(body, d.Atom("mention", "@x"))
	}
	link, err := d.B.CreateMarkup("a", map[string]string{"href": "/y"})
	if err != nil {
		t.Fatal(err)
	}
	linked := d.B.CreateMarker("link", link)
	return d.Post(
		heading,
		d.P(body...),
		d.P(linked, d.M("tail")),
		d.UL(d.LI(d.M("one")), d.LI(d.M("two", "s"))),
		d.B.CreateCardSection("image", map[string]any{"src": "x.png"}),
		d.Image("z.png"),
		d.P(),
	)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		version string
		atoms   bool
		attrs   bool
	}{
		{Version020, false, false},
		{Version030, true, false},
		{Version031, true, false},
		{Version032, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			d := posttest.New(t)
			p := samplePost(t, d, tt.atoms, tt.attrs)
			data, err := Render(p, tt.version)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if v := DetectVersion(data); v != tt.version {
				t.Errorf("version = %q", v)
			}
			got, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse: %v\n%s", err, data)
			}
			if !post.Equal(got, p) {
				t.Errorf("round trip:\n got %s\nwant %s", post.Describe(got), post.Describe(p))
			}
		})
	}
}

func TestRenderDropsWhatOlderVersionsCannotHold(t *testing.T) {
	d := posttest.New(t)
	s := d.P(d.M("a"), d.Atom("mention", "@x"))
	if err := s.SetAttribute("data-md-text-align", "right"); err != nil {
		t.Fatal(err)
	}
	p := d.Post(s)

	tests := []struct {
		version string
		want    string
	}{
		{Version020, `[p("a@x")]`},
		{Version030, `[p("a",@mention("@x"))]`},
		{Version032, `[p{data-md-text-align=right}("a",@mention("@x"))]`},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			data, err := Render(p, tt.version)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Parse(data)
			if err != nil {
				t.Fatal(err)
			}
			if desc := post.Describe(got); desc != tt.want {
				t.Errorf("got %s, want %s", desc, tt.want)
			}
		})
	}
}

func TestParse032(t *testing.T) {
	data := []byte(`{
		"version": "0.3.2",
		"atoms": [["mention", "@bob", {"id": "7"}]],
		"cards": [["image", {"src": "x.png"}]],
		"markups": [["b"], ["a", ["href", "/y"]]],
		"sections": [
			[1, "p", [[0, [], 0, "hi "], [0, [0], 1, "bold"], [1, [1], 1, 0]], ["data-md-text-align", "center"]],
			[10, 0],
			[3, "ul", [[[0, [], 0, "one"]], [[0, [], 0, "two"]]]],
			[2, "z.png"]
		]
	}`)
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	want := `[p{data-md-text-align=center}("hi ",<b>"bold",<a|href=/y>@mention("@bob")map[id:7]), ` +
		`card:imagemap[src:x.png], ul[li("one"), li("two")], img:z.png]`
	if got := post.Describe(p); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestParse020(t *testing.T) {
	data := []byte(`{"version":"0.2.0","sections":[[["strong"]],[
		[1,"H2",[[[0],1,"Title"],[[],0,""]]],
		[10,"c",{"a":"b"}],
		[2,"i.png"]
	]]}`)
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := post.Describe(p), `[h2(<strong>"Title"), card:cmap[a:b], img:i.png]`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParseInternsMarkups(t *testing.T) {
	b := post.NewBuilder()
	p, err := ParseWithBuilder(b, []byte(`{"version":"0.3.0","atoms":[],"cards":[],"markups":[["b"]],
		"sections":[[1,"p",[[0,[0],1,"x"]]]]}`))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := b.CreateMarkup("b", nil)
	m := p.FirstLeaf().Markers.Head()
	if len(m.Markups) != 1 || m.Markups[0] != want {
		t.Errorf("markups = %v", m.Markups)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
		path string
	}{
		{"invalid json", `{"version":`, ErrInvalidJSON, ""},
		{"unknown version", `{"version":"9.9.9","sections":[]}`, ErrUnknownVersion, ""},
		{"missing version", `{"sections":[]}`, ErrUnknownVersion, ""},
		{"section type", `{"version":"0.3.0","sections":[[7,"p"]]}`, ErrInvalidSection, "sections.0"},
		{"markup ref", `{"version":"0.3.0","markups":[],"sections":[[1,"p",[[0,[3],1,"x"]]]]}`, ErrInvalidReference, "sections.0"},
		{"atom ref", `{"version":"0.3.0","atoms":[],"sections":[[1,"p",[[1,[],0,0]]]]}`, ErrInvalidReference, "sections.0"},
		{"card ref", `{"version":"0.3.1","cards":[],"sections":[[10,2]]}`, ErrInvalidReference, "sections.0"},
		{"short marker", `{"version":"0.3.0","sections":[[1,"p",[[0,"x"]]]]}`, ErrInvalidMarker, "sections.0"},
		{"section tag", `{"version":"0.3.0","sections":[[1,"div",[]]]}`, post.ErrInvalidTagName, "sections.0"},
		{"markup tag", `{"version":"0.3.0","markups":[["blink"]],"sections":[]}`, post.ErrInvalidTagName, "markups.0"},
		{"020 shape", `{"version":"0.2.0","sections":[]}`, ErrInvalidSection, "sections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.path == "" {
				return
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Path != tt.path {
				t.Errorf("ParseError = %v, want path %q", err, tt.path)
			}
		})
	}
}

func TestRenderTables(t *testing.T) {
	d := posttest.New(t)
	p := d.Post(
		d.P(d.M("a"), d.M("b", "b")),
		d.P(d.M("c", "b"), d.Atom("mention", "@x")),
		d.Card("one"),
		d.Card("two"),
	)
	data, err := Render(p, Version032)
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		path string
		want string
	}{
		{"markups.#", "1"},
		{"markups.0.0", "b"},
		{"atoms.#", "1"},
		{"atoms.0.0", "mention"},
		{"cards.#", "2"},
		{"cards.1.0", "two"},
		{"sections.0.0", "1"},
		{"sections.0.2.1.1.0", "0"},
		{"sections.0.2.1.2", "1"},
		{"sections.1.2.1.0", "1"},
		{"sections.3", "[10,1]"},
	}
	for _, c := range checks {
		if got := gjson.GetBytes(data, c.path).String(); got != c.want {
			t.Errorf("%s = %q, want %q\n%s", c.path, got, c.want, data)
		}
	}
}

func TestRenderUnknownVersion(t *testing.T) {
	d := posttest.New(t)
	if _, err := Render(d.Post(d.P()), "0.1.0"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("err = %v", err)
	}
}

func TestVersions(t *testing.T) {
	for _, v := range Versions() {
		if !IsSupported(v) {
			t.Errorf("%s not supported", v)
		}
	}
	if IsSupported("0.4.0") {
		t.Error("0.4.0 supported")
	}
}
