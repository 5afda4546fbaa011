package utils

// Truncate shortens s to at most maxLen runes, appending a single ellipsis
// rune when truncation occurs. It counts and slices by rune, not byte, so
// multi-byte UTF-8 text is never cut mid-codepoint.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
