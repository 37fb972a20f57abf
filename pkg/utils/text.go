// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s cut to maxLen characters (runes), with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Wrap re-flows text so that no line exceeds width characters where possible.
// Whitespace runs collapse to single spaces; words longer than width are broken.
// A width <= 0 returns the text with whitespace collapsed on one line.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if width <= 0 {
		return strings.Join(words, " ")
	}

	var b strings.Builder
	lineLen := 0
	for _, word := range words {
		for len([]rune(word)) > width {
			r := []rune(word)
			if lineLen > 0 {
				b.WriteByte('\n')
				lineLen = 0
			}
			b.WriteString(string(r[:width]))
			word = string(r[width:])
			b.WriteByte('\n')
		}
		n := len([]rune(word))
		switch {
		case lineLen == 0:
		case lineLen+1+n > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += n
	}
	return strings.TrimRight(b.String(), "\n")
}
