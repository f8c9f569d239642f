package normalize

import "strings"

// SourceFormat selects the payer mapping strategy.
type SourceFormat int

const (
	FormatGeneric SourceFormat = iota
	FormatBupa
	FormatGlobeMed
	FormatWaseel
)

func (f SourceFormat) String() string {
	switch f {
	case FormatBupa:
		return "bupa"
	case FormatGlobeMed:
		return "globemed"
	case FormatWaseel:
		return "waseel"
	case FormatGeneric:
		return "generic"
	}
	return "generic"
}

// ParseSourceFormat matches a declared format case-insensitively. Waseel and
// Tawuniya share one strategy. The boolean is false for unrecognized values,
// in which case FormatGeneric is returned.
func ParseSourceFormat(s string) (SourceFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bupa":
		return FormatBupa, true
	case "globemed":
		return FormatGlobeMed, true
	case "waseel", "tawuniya":
		return FormatWaseel, true
	case "generic":
		return FormatGeneric, true
	}
	return FormatGeneric, false
}

// SupportedFormats lists the declared format names with a dedicated strategy.
func SupportedFormats() []string {
	return []string{"bupa", "globemed", "waseel", "tawuniya", "generic"}
}
