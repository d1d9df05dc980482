package mobiledoc

import "github.com/tidwall/gjson"

// Supported versions.
const (
	Version020 = "0.2.0"
	Version030 = "0.3.0"
	Version031 = "0.3.1"
	Version032 = "0.3.2"

	// LatestVersion is the version Render writes by default.
	LatestVersion = Version032
)

// Section type identifiers.
const (
	markupSectionType = 1
	imageSectionType  = 2
	listSectionType   = 3
	cardSectionType   = 10
)

// Marker type identifiers (0.3.x).
const (
	textMarkerType = 0
	atomMarkerType = 1
)

// Versions lists every supported version, oldest first.
func Versions() []string {
	return []string{Version020, Version030, Version031, Version032}
}

// IsSupported reports whether v is a supported version.
func IsSupported(v string) bool {
	switch v {
	case Version020, Version030, Version031, Version032:
		return true
	}
	return false
}

// DetectVersion returns the version field of a mobiledoc document.
func DetectVersion(data []byte) string {
	return gjson.GetBytes(data, "version").String()
}

// hasSectionAttributes reports whether v writes section attributes.
func hasSectionAttributes(v string) bool { return v == Version032 }
