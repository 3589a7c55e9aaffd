package formatting

import "unicode/utf8"

// Excerpt returns s shortened to at most max runes, with "..." appended
// when it was cut. A non-positive max returns s unchanged.
func Excerpt(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return string(runes[:max]) + "..."
}
