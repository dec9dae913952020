package utils

import "github.com/charmbracelet/x/ansi"

// Truncate shortens s to at most maxLen terminal cells, ending in "..." when
// cut. Escape sequences are preserved and do not count toward the width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "...")
}

// FirstLine returns s up to its first newline.
func FirstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '\r' {
			return s[:i]
		}
	}
	return s
}
