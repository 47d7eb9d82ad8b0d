// Package strutil provides shared string utilities for signature matching.
package strutil

import (
	"strings"
	"unicode/utf8"
)

// ContainsFold reports whether substr is present in s under ASCII
// case-insensitive comparison. Signature catalogs store lowercase
// patterns, but header values and bodies arrive in arbitrary case.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// HasSuffixFold reports whether s ends with suffix, case-insensitively
// and ignoring a trailing dot on s. DNS answers come back as FQDNs
// ("edge.example.com."), catalog suffixes do not.
func HasSuffixFold(s, suffix string) bool {
	if suffix == "" {
		return false
	}
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	return strings.HasSuffix(s, strings.ToLower(suffix))
}

// Truncate returns s cut to maxLen runes with a "..." suffix when cut
// (the suffix counts against maxLen). Rune-aware; never produces
// invalid UTF-8. Safe for maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
