package content

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FindChapter resolves a user query to a chapter, either by number or by a
// loose match on its name. "fatiha", "Al-Fātiḥa" and "al faatiha" all find
// chapter 1.
func FindChapter(chapters []Chapter, query string) (Chapter, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Chapter{}, false
	}

	if n, err := strconv.Atoi(query); err == nil {
		for _, ch := range chapters {
			if ch.Number == n {
				return ch, true
			}
		}
		return Chapter{}, false
	}

	key := foldName(query)
	if key == "" {
		return Chapter{}, false
	}

	// Exact folded match wins over a substring match.
	var partial *Chapter
	for i, ch := range chapters {
		name := foldName(ch.DisplayName)
		if name == key || strings.TrimPrefix(name, "al") == key {
			return ch, true
		}
		if partial == nil && strings.Contains(name, key) {
			partial = &chapters[i]
		}
	}
	if partial != nil {
		return *partial, true
	}
	return Chapter{}, false
}

// foldName strips diacritics, punctuation, spacing and doubled letters so
// transliteration variants compare equal.
func foldName(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	normalized, _, err := transform.String(t, s)
	if err != nil {
		normalized = s
	}

	var b strings.Builder
	var last rune
	for _, r := range strings.ToLower(normalized) {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		if r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}
