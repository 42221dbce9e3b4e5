package exercise

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// romanizationVariants are collapsed in order before comparing romanized
// answers. Long vowels and aspirates are the common spelling variations.
var romanizationVariants = [][2]string{
	{"aa", "a"},
	{"ee", "i"},
	{"oo", "u"},
	{"sh", "s"},
	{"th", "t"},
	{"dh", "d"},
	{"bh", "b"},
	{"ph", "f"},
	{"kh", "k"},
	{"gh", "g"},
	{"chh", "ch"},
}

// Normalize lowercases s, trims it and collapses runs of whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func simplifyRomanization(s string) string {
	for _, v := range romanizationVariants {
		s = strings.ReplaceAll(s, v[0], v[1])
	}
	return s
}

// FuzzyMatch reports whether answer is close enough to expected: equal
// after normalization, equal after collapsing romanization variants, or
// within an edit distance of 1 (expected of at most 6 characters) or 2.
func FuzzyMatch(answer, expected string) bool {
	a, e := Normalize(answer), Normalize(expected)
	if a == e {
		return true
	}
	if simplifyRomanization(a) == simplifyRomanization(e) {
		return true
	}
	limit := 2
	if utf8.RuneCountInString(e) <= 6 {
		limit = 1
	}
	return levenshtein.Distance(a, e, nil) <= limit
}
