package command

import (
	"strings"
	"unicode"
)

// normalise lowercases raw and collapses everything that is not a letter,
// digit or '?' into single spaces.
func normalise(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := true
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '?' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenise(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
