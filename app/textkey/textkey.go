// Package textkey canonicalizes free-text product names and brands into
// comparable keys.
package textkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parentheses and quotes are removed outright rather than turned into spaces,
// so "Mag (Glycinate)" and "Mag Glycinate" produce the same key.
var dropped = strings.NewReplacer(
	"(", "", ")", "",
	`"`, "", "'", "",
	"‘", "", "’", "",
	"“", "", "”", "",
	"`", "",
)

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey lowercases s, folds diacritics, strips parentheses and
// quotes, turns every other character that is not [a-z0-9] or whitespace
// into a space and collapses whitespace. It is idempotent.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	s = dropped.Replace(foldDiacritics(strings.ToLower(s)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ProductKey is the duplicate-prevention key of a catalog row.
func ProductKey(brand, name string) string {
	return NormalizeKey(strings.TrimSpace(brand + " " + name))
}

// SimilarEitherWay reports whether the shorter of a and b is a
// case-insensitive substring of the longer.
func SimilarEitherWay(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Terms splits s into lowercase whitespace-delimited terms, dropping duplicates
// while keeping first-seen order.
func Terms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
