// Package payee canonicalizes payee strings and scores their similarity.
package payee

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var unitCosts = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// suffixes are trailing corporate/processor tokens that carry no identity.
var suffixes = []string{
	"inc", "llc", "ltd", "corp", "co", "gmbh", "plc",
	"pos", "ach", "web", "pmt", "payment", "purchase",
}

// Normalize canonicalizes a payee for display and matching: collapses
// whitespace, strips punctuation, lowercases, and drops trailing corporate
// and processor suffixes.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	words := strings.Fields(b.String())
	for len(words) > 1 && isSuffix(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// Display cleans a payee for presentation while preserving its casing
// style: trims, collapses runs of whitespace, and title-cases strings that
// are fully upper-case (the common bank-export shouting).
func Display(s string) string {
	cleaned := strings.Join(strings.Fields(s), " ")
	if cleaned == "" {
		return cleaned
	}
	if cleaned == strings.ToUpper(cleaned) && cleaned != strings.ToLower(cleaned) {
		cleaned = titleCase(cleaned)
	}
	return cleaned
}

// Similarity returns a normalized similarity score in [0,1] between two
// payees: 1 - levenshtein/maxLen over the normalized forms. Two empty
// normalized strings score 1.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	ra, rb := []rune(na), []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	// Unit costs throughout; the default substitution cost of 2 would push
	// scores below zero and break the 1 - dist/maxLen ratio.
	dist := levenshtein.DistanceForStrings(ra, rb, unitCosts)
	return 1 - float64(dist)/float64(maxLen)
}

func isSuffix(word string) bool {
	for _, s := range suffixes {
		if word == s {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
			words[i] = string(r)
		}
	}
	return strings.Join(words, " ")
}
