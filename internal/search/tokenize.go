package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// token is a contiguous run of word characters (Unicode letter, digit, or
// underscore) with its byte-offset span in the original string.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits s into word-character runs, recording byte positions.
func tokenize(s string) []token {
	var tokens []token

	start := -1
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isWordRune(r) {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			tokens = append(tokens, token{text: s[start:i], start: start, end: i})
			start = -1
		}
		i += size
	}
	if start != -1 {
		tokens = append(tokens, token{text: s[start:], start: start, end: len(s)})
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// extractContext returns the context window around byte span [s, e) in m:
// m[s-contextWindow .. e+contextWindow], clipped to message bounds and
// snapped to valid UTF-8 boundaries. A leading/trailing "…" marks
// truncation.
func extractContext(m string, s, e int) string {
	lo := s - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := e + contextWindow
	if hi > len(m) {
		hi = len(m)
	}

	lo = snapBackward(m, lo)
	hi = snapBackward(m, hi)

	var b strings.Builder
	if lo > 0 {
		b.WriteString("…")
	}
	b.WriteString(m[lo:hi])
	if hi < len(m) {
		b.WriteString("…")
	}
	return b.String()
}

// snapBackward moves i backward until it lands on a UTF-8 rune boundary,
// as the index-validity contract requires.
func snapBackward(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
