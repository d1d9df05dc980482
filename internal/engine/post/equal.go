package post

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Equal reports whether two posts are structurally similar: same sections,
// tags, attributes, marker values, markups and card/atom data. Blank markers
// are ignored and adjacent joinable markers compare as one.
func Equal(a, b *Post) bool {
	return Describe(a) == Describe(b)
}

// Describe renders a compact, canonical description of a post, e.g.
//
//	[p("ab",<b>"c"), ul[li("x")], card:image{...}]
func Describe(p *Post) string {
	if p == nil {
		return "<nil>"
	}
	parts := make([]string, 0, p.Sections.Len())
	for s := range p.Sections.All() {
		parts = append(parts, DescribeSection(s))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DescribeSection renders the canonical description of a single section.
func DescribeSection(s *Section) string {
	var sb strings.Builder
	switch s.Kind {
	case KindMarkup, KindListItem:
		sb.WriteString(s.TagName)
		writeAttrs(&sb, s.attributes)
		sb.WriteByte('(')
		sb.WriteString(describeMarkers(s))
		sb.WriteByte(')')
	case KindList:
		sb.WriteString(s.TagName)
		writeAttrs(&sb, s.attributes)
		sb.WriteByte('[')
		first := true
		for item := range s.Items.All() {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(DescribeSection(item))
		}
		sb.WriteByte(']')
	case KindCard:
		fmt.Fprintf(&sb, "card:%s%s", s.Name, describePayload(s.Payload))
	case KindImage:
		fmt.Fprintf(&sb, "img:%s", s.Src)
	}
	return sb.String()
}

func describeMarkers(s *Section) string {
	var parts []string
	var pending *Marker
	var text strings.Builder
	flush := func() {
		if pending != nil {
			parts = append(parts, describeMarkups(pending.Markups)+fmt.Sprintf("%q", text.String()))
			pending = nil
			text.Reset()
		}
	}
	for m := range s.Markers.All() {
		if m.IsBlank() {
			continue
		}
		if m.IsAtom() {
			flush()
			parts = append(parts, describeMarkups(m.Markups)+
				fmt.Sprintf("@%s(%q)%s", m.Name, m.Value, describePayload(m.Payload)))
			continue
		}
		if pending != nil && !pending.CanJoin(m) {
			flush()
		}
		if pending == nil {
			pending = m
		}
		text.WriteString(m.Value)
	}
	flush()
	return strings.Join(parts, ",")
}

func describeMarkups(markups []*Markup) string {
	if len(markups) == 0 {
		return ""
	}
	keys := make([]string, len(markups))
	for i, m := range markups {
		keys[i] = m.Key()
	}
	sort.Strings(keys)
	return "<" + strings.Join(keys, "+") + ">"
}

func describePayload(p map[string]any) string {
	if len(p) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", p)
}

func writeAttrs(sb *strings.Builder, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	sb.WriteByte('{')
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(sb, "%s=%s", k, attrs[k])
	}
	sb.WriteByte('}')
}

// SamePayload reports whether two payloads are deeply equal.
func SamePayload(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
