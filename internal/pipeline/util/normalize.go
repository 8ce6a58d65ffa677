package util

import (
	"regexp"
	"strings"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// NormalizeJobType maps free-text employment types onto the three canonical
// labels. Returns "" when no mapping applies; callers keep the original
// value in that case.
func NormalizeJobType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	switch {
	case strings.Contains(v, "full-time") || strings.Contains(v, "full time") || strings.Contains(v, "permanent"):
		return "Full Time"
	case strings.Contains(v, "part-time") || strings.Contains(v, "part time"):
		return "Part Time"
	case strings.Contains(v, "intern") || strings.Contains(v, "co-op"):
		return "Internship"
	}
	return ""
}

var remoteRe = regexp.MustCompile(`(?i)\b(remote|work from anywhere|wfh|hybrid)\b`)

// DetectRemote scans raw page markup for whole-word remote signals.
func DetectRemote(text string) bool {
	if text == "" {
		return false
	}
	return remoteRe.MatchString(text)
}
