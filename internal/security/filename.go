// Package security guards file names taken from configuration.
package security

import (
	"fmt"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename maps s to a name made of ASCII letters, digits, dot,
// underscore and dash. Runs of other characters become one underscore and
// leading or trailing dots and underscores are trimmed.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ValidateFilename rejects names that would not survive SanitizeFilename
// unchanged, which rules out separators and "..".
func ValidateFilename(name string) error {
	if name == "" || SanitizeFilename(name) != name {
		return fmt.Errorf("%q is not a plain file name", name)
	}
	return nil
}
