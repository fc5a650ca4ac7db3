package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 80

// Slugify erzeugt aus einem Titel einen URL-Pfadteil. Diakritika werden entfernt,
// Buchstaben anderer Schriften (z. B. Arabisch) bleiben erhalten.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")

	if r := []rune(slug); len(r) > maxSlugLen {
		slug = strings.TrimRight(string(r[:maxSlugLen]), "-")
	}
	if slug == "" {
		return "article"
	}
	return slug
}
