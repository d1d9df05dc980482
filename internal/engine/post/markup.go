package post

import (
	"sort"
	"strings"
)

// Markup is a tag plus attributes applied to markers, e.g. strong or a link.
// Markups are interned by a Builder; treat them as immutable.
type Markup struct {
	TagName    string
	Attributes map[string]string

	key string
}

// HasTag reports whether the markup has the given tag name.
func (m *Markup) HasTag(tag string) bool {
	return m.TagName == NormalizeTagName(tag)
}

// Attribute returns the value of the named attribute.
func (m *Markup) Attribute(name string) string {
	return m.Attributes[name]
}

// Key identifies the markup by value. Markups with equal keys are equivalent.
func (m *Markup) Key() string {
	if m.key == "" {
		m.key = markupKey(m.TagName, m.Attributes)
	}
	return m.key
}

func markupKey(tag string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return tag
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString(tag)
	for _, k := range names {
		sb.WriteByte('|')
		sb.WriteString(keyEscaper.Replace(k))
		sb.WriteByte('=')
		sb.WriteString(keyEscaper.Replace(attrs[k]))
	}
	return sb.String()
}

// keyEscaper keeps separators inside attribute values from producing the
// key of a different markup.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `=`, `\=`)

// commonMarkupPrefix returns how many leading markups a and b share.
func commonMarkupPrefix(a, b []*Markup) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// containsMarkup reports whether set holds m or an equivalent markup.
func containsMarkup(set []*Markup, m *Markup) bool {
	for _, x := range set {
		if x == m || x.Key() == m.Key() {
			return true
		}
	}
	return false
}
