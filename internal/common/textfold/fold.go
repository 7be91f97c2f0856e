// Package textfold normalizes store and product names for matching.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips accents. Punctuation and spacing are kept.
//
//	"Macy’s"      -> "macy’s"
//	"Café Dépôt"  -> "cafe depot"
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Compact folds s and keeps only letters and digits.
//
//	"Best Buy"   -> "bestbuy"
//	"Sam's Club" -> "samsclub"
func Compact(s string) string {
	folded := Fold(s)
	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Words folds s and splits it on anything that is not a letter or digit.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MainName returns the part of a store name before the first "-", "–" or
// "|" separator, trimmed. "Walmart - Marketplace" yields "Walmart".
func MainName(s string) string {
	if i := strings.IndexAny(s, "-–|"); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// ContainsFold reports whether substr appears in s after folding both.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
