// Package textnorm holds the case and diacritic insensitive comparison
// primitives shared by every answer extractor.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigits = regexp.MustCompile(`\D`)
	smallInt  = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// Normalize trims, lower-cases and strips combining marks, so "Sí" and "si"
// compare equal.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}

	return folded
}

// HasWord reports whether word appears in text as a whole word. Both sides
// are normalized first.
func HasWord(text, word string) bool {
	text = Normalize(text)
	word = Normalize(word)
	if text == "" || word == "" {
		return false
	}

	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return false
	}

	return re.MatchString(text)
}

// HasAnyWord reports whether any of words appears in text as a whole word.
func HasAnyWord(text string, words ...string) bool {
	for _, w := range words {
		if HasWord(text, w) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the normalized text contains any of the
// normalized needles as a substring.
func ContainsAny(text string, needles ...string) bool {
	text = Normalize(text)
	if text == "" {
		return false
	}
	for _, n := range needles {
		n = Normalize(n)
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// Digits drops every non-digit rune.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// SmallInt returns the first standalone one or two digit number in s.
func SmallInt(s string) (int, bool) {
	m := smallInt.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return n, true
}
