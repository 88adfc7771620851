package util

import "strings"

// Truncate cuts s to at most max runes, appending suffix when something
// was cut. A max <= 0 returns s unchanged.
func Truncate(s string, max int, suffix string) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + suffix
}

// SanitizePostgresText strips invalid UTF-8 sequences and NUL bytes which
// Postgres text columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
