package resolver

import (
	"regexp"
	"strings"
)

// ManualMarker flags operator-structured personalization text. Everything
// after the marker is split on the field separator into names, with an
// optional trailing year.
const ManualMarker = "@@"

const fieldSeparator = ";"

var yearPattern = regexp.MustCompile(`^(19|20)\d{2}$`)

// Structured is the outcome of a deterministic parse.
type Structured struct {
	Names []string
	Year  string
}

// ParseStructured parses operator-structured personalization text. It
// reports false when the manual marker is absent or nothing usable follows.
func ParseStructured(text string) (Structured, bool) {
	var empty Structured
	index := strings.Index(text, ManualMarker)
	if index < 0 {
		return empty, false
	}

	remainder := strings.TrimSpace(text[index+len(ManualMarker):])
	if remainder == "" {
		return empty, false
	}

	fields := strings.Split(remainder, fieldSeparator)
	var names []string
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		return empty, false
	}

	var year string
	last := names[len(names)-1]
	if yearPattern.MatchString(last) {
		year = last
		names = names[:len(names)-1]
	} else if fields := strings.Fields(last); len(fields) > 1 {
		// A year may trail the final name without a separator.
		if candidate := fields[len(fields)-1]; yearPattern.MatchString(candidate) {
			year = candidate
			names[len(names)-1] = strings.TrimSpace(strings.TrimSuffix(last, candidate))
		}
	}
	if len(names) == 0 {
		return empty, false
	}
	return Structured{Names: names, Year: year}, true
}
