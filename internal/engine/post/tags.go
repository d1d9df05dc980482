package post

import "strings"

// AttrTextAlign is the only section attribute the model supports.
const AttrTextAlign = "data-md-text-align"

// DefaultSectionTag is the tag of a blank markup section.
const DefaultSectionTag = "p"

var markupSectionTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "aside": true, "pull-quote": true,
}

var listSectionTags = map[string]bool{"ul": true, "ol": true}

var markupTags = map[string]bool{
	"a": true, "b": true, "code": true, "em": true, "i": true, "s": true,
	"strong": true, "sub": true, "sup": true, "u": true,
}

var sectionAttributes = map[string]bool{AttrTextAlign: true}

var markupAttributes = map[string]bool{"href": true, "rel": true, "target": true}

// NormalizeTagName lowercases and trims a tag name.
func NormalizeTagName(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// IsMarkupSectionTag reports whether tag is valid for a markup section.
func IsMarkupSectionTag(tag string) bool { return markupSectionTags[NormalizeTagName(tag)] }

// IsListSectionTag reports whether tag is valid for a list section.
func IsListSectionTag(tag string) bool { return listSectionTags[NormalizeTagName(tag)] }

// IsMarkupTag reports whether tag is valid for a markup.
func IsMarkupTag(tag string) bool { return markupTags[NormalizeTagName(tag)] }

// IsSectionAttribute reports whether name is a supported section attribute.
func IsSectionAttribute(name string) bool { return sectionAttributes[name] }

// IsMarkupAttribute reports whether name is a supported markup attribute.
func IsMarkupAttribute(name string) bool { return markupAttributes[name] }
