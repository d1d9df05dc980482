package app

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a document representation Folio reads or writes.
type Format int

const (
	// FormatMobiledoc is mobiledoc JSON.
	FormatMobiledoc Format = iota
	// FormatHTML is an HTML fragment.
	FormatHTML
	// FormatText is plain text, one section per line.
	FormatText
	// FormatDescribe is the compact post description, write only.
	FormatDescribe
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatMobiledoc:
		return "mobiledoc"
	case FormatHTML:
		return "html"
	case FormatText:
		return "text"
	case FormatDescribe:
		return "describe"
	default:
		return "unknown"
	}
}

// CanRead reports whether documents can be loaded from f.
func (f Format) CanRead() bool {
	return f == FormatMobiledoc || f == FormatHTML || f == FormatText
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "mobiledoc", "json":
		return FormatMobiledoc, nil
	case "html", "htm":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	case "describe":
		return FormatDescribe, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromPath guesses the format of a file from its extension.
// Unknown extensions are read as mobiledoc.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil && f.CanRead() {
		return f
	}
	return FormatMobiledoc
}
