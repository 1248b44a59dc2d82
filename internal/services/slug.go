package services

import (
	"strings"
	"unicode"
)

const fallbackSlug = "empresa"

// Slugify lowercases name, turns whitespace runs into "-" and drops anything
// outside [a-z0-9-]. An empty result becomes "empresa".
func Slugify(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))

	var b strings.Builder
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}
