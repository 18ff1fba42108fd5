package message

import "strings"

var zeroWidthRunes = map[rune]struct{}{
	'\u200B': {}, // zero width space
	'\u200C': {}, // zero width non-joiner
	'\u200D': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\uFEFF': {}, // BOM
	'\u180E': {}, // mongolian vowel separator
}

func isInvisibleRune(r rune) bool {
	if _, bad := zeroWidthRunes[r]; bad {
		return true
	}

	switch {
	// tag characters and variation selectors
	case r >= 0xE0000 && r <= 0xE007F:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true

	// C0, DEL and C1 controls
	case r <= 0x001F, r == 0x007F, r >= 0x0080 && r <= 0x009F:
		return true

	// bidi and format controls
	case r >= 0x200B && r <= 0x200F:
		return true
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2060 && r <= 0x206F:
		return true

	default:
		return false
	}
}

// StripInvisible drops zero-width and control runes often used to split blocked words.
func StripInvisible(s string) string {
	if strings.IndexFunc(s, isInvisibleRune) == -1 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isInvisibleRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
