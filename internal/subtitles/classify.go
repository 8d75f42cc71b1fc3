package subtitles

import "strings"

// Kind identifies the role of a subtitle line.
type Kind int

const (
	// KindText is dialogue that should be translated.
	KindText Kind = iota
	// KindBlank separates cues.
	KindBlank
	// KindHeader is the WEBVTT signature line.
	KindHeader
	// KindTiming holds a "start --> end" cue timing.
	KindTiming
	// KindCueIndex is a numeric cue identifier.
	KindCueIndex
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlank:
		return "blank"
	case KindHeader:
		return "header"
	case KindTiming:
		return "timing"
	case KindCueIndex:
		return "cue_index"
	default:
		return "unknown"
	}
}

// Classify reports which role line plays. Surrounding whitespace, including
// the line terminator, is ignored.
func Classify(line string) Kind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.Contains(trimmed, "-->"):
		return KindTiming
	case trimmed == "":
		return KindBlank
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return KindHeader
	case isDigits(trimmed):
		return KindCueIndex
	default:
		return KindText
	}
}

// IsTranslatable reports whether line carries text for the model.
func IsTranslatable(line string) bool {
	return Classify(line) == KindText
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
