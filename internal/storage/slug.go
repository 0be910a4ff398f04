package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackName replaces a class name that normalises to nothing.
const FallbackName = "exam"

// NormalizeName turns a free-text class name into a filename fragment:
// accents stripped, lowercased, every rune outside [a-z0-9_-] replaced by an
// underscore, runs of underscores collapsed and trimmed.
func NormalizeName(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.NewReplacer("đ", "d", "Đ", "d").Replace(out))

	var b strings.Builder
	underscore := false
	for _, r := range out {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		return FallbackName
	}
	return name
}
