// Package util provides small string helpers shared across packages.
package util

// TruncateString truncates s to at most maxLen runes, appending "..." when
// truncation occurs. The suffix counts toward maxLen when there is room for
// it.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
