// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package names canonicalizes free-text pharmacy names and scores how likely two
// of them designate the same pharmacy.
package names

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// leading filler stripped from canonical names, tried until none applies.
var prefixes = []string{
	"pharmacie ",
	"pharmacy ",
	"pharma ",
	"la ",
	"le ",
	"les ",
	"de ",
	"du ",
	"d ",
	"des ",
}

var stopWords = map[string]bool{
	"de":  true,
	"du":  true,
	"la":  true,
	"le":  true,
	"les": true,
	"des": true,
	"et":  true,
	"a":   true,
	"au":  true,
	"aux": true,
}

// LowerASCIIFolding lowercases s, removes accents, and trims spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Fold lowercases s, removes accents, replaces punctuation with spaces and
// collapses whitespace. Used to compare city and quarter labels.
func Fold(s string) string {
	s = LowerASCIIFolding(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}

		return ' '
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Normalize returns the canonical form of a pharmacy name.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = Fold(s)

	for stripped := true; stripped; {
		stripped = false

		for _, prefix := range prefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
			}
		}
	}

	return s
}

// Keywords returns the distinctive tokens of a name in first-seen order,
// dropping tokens of two characters or fewer and stop words.
func Keywords(s string) []string {
	return keywordsOf(Normalize(s))
}

func keywordsOf(canonical string) []string {
	var (
		ret  []string
		seen = make(map[string]bool)
	)

	for _, w := range strings.Fields(canonical) {
		if utf8.RuneCountInString(w) <= 2 || stopWords[w] || seen[w] {
			continue
		}

		seen[w] = true
		ret = append(ret, w)
	}

	return ret
}
