package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes a CLUES identifier for joining: surrounding
// whitespace (and any byte-order mark) is trimmed and the rest upper-cased with
// full Unicode case mapping. Empty input yields "".
//
// NormalizeKey is idempotent.
func NormalizeKey(raw string) string {
	trimmed := strings.TrimFunc(raw, isTrimmable)
	if trimmed == "" {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Upper(language.Und).String(trimmed)
}

// NormalizeKeyPtr is NormalizeKey for optional identifiers; nil yields "".
func NormalizeKeyPtr(raw *string) string {
	if raw == nil {
		return ""
	}
	return NormalizeKey(*raw)
}

func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// foldText prepares free text for case-insensitive substring matching.
func foldText(s string) string {
	return cases.Fold().String(s)
}

// foldName folds case and strips combining marks so that "MICHOACÁN" and
// "Michoacan" compare equal.
func foldName(s string) string {
	s = strings.TrimFunc(s, isTrimmable)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
