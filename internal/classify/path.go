package classify

import "strings"

// ParsePath splits a head-unit path into ancestor names, root first.
// Blank input yields an empty list. Segments are trimmed; empty segments
// between two separators are kept.
func ParsePath(path, sep string) []string {
	if strings.TrimSpace(path) == "" {
		return []string{}
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	parts := strings.Split(path, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
