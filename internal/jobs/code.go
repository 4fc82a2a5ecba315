package jobs

import (
	"fmt"
	"strings"
)

// JobCode builds the scannable job identifier. The result only uses
// uppercase letters, digits, and dashes so it encodes cleanly as
// Code 128 and survives hand transcription.
func JobCode(prefix, stationID, materialID string, number int64) string {
	return fmt.Sprintf("%s-%s-%s-%04d", sanitizeScope(prefix), stationID, materialID, number)
}

// sanitizeScope uppercases and strips everything outside [A-Z0-9].
func sanitizeScope(value string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(value)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
