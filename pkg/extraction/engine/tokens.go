package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// containsToken reports whether token occurs in text. Both must already be
// folded. With wholeWord, the occurrence must not touch a letter or digit.
func containsToken(text, token string, wholeWord bool) bool {
	if token == "" {
		return false
	}
	if !wholeWord {
		return strings.Contains(text, token)
	}
	for offset := 0; offset <= len(text)-len(token); {
		i := strings.Index(text[offset:], token)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(token)
		if isBoundary(text, start, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
