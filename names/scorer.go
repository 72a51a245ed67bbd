// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinCanonicalLength is the shortest canonical name worth matching.
	MinCanonicalLength = 3

	// ExactScore is reported for equal canonical names.
	ExactScore = 100
)

// Weights are the tunable constants of the matching heuristic.
type Weights struct {
	// Threshold is the minimum score for a candidate to be accepted.
	Threshold int `mapstructure:"threshold"`

	// Containment scores one canonical name containing the other.
	Containment int `mapstructure:"containment"`

	// PerKeyword scores each shared keyword.
	PerKeyword int `mapstructure:"per_keyword"`

	// HalfBonus is added when at least half of the larger keyword set is shared.
	HalfBonus int `mapstructure:"half_bonus"`

	// LongKeyword is added for each shared keyword longer than 4 characters.
	LongKeyword int `mapstructure:"long_keyword"`

	// LongestEqual scores equal longest keywords.
	LongestEqual int `mapstructure:"longest_equal"`

	// LongestContains scores a longest keyword containing the other.
	LongestContains int `mapstructure:"longest_contains"`
}

// DefaultWeights returns the weights the matcher was tuned with.
func DefaultWeights() Weights {
	return Weights{
		Threshold:       35,
		Containment:     70,
		PerKeyword:      25,
		HalfBonus:       20,
		LongKeyword:     15,
		LongestEqual:    60,
		LongestContains: 45,
	}
}

// Candidate is a name prepared for scoring.
type Candidate struct {
	Canonical string
	Keywords  []string
	longest   string
}

// NewCandidate normalizes name and extracts its keywords.
func NewCandidate(name string) Candidate {
	canonical := Normalize(name)
	keywords := keywordsOf(canonical)

	longest := ""
	for _, k := range keywords {
		if utf8.RuneCountInString(k) > utf8.RuneCountInString(longest) {
			longest = k
		}
	}

	return Candidate{
		Canonical: canonical,
		Keywords:  keywords,
		longest:   longest,
	}
}

// Matchable reports whether the candidate is long enough to be looked up.
func (c Candidate) Matchable() bool {
	return utf8.RuneCountInString(c.Canonical) >= MinCanonicalLength
}

// Scorer computes the similarity between a scraped name and a registry name.
type Scorer struct {
	w Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights {
	return s.w
}

// Accept reports whether score clears the acceptance threshold.
func (s *Scorer) Accept(score int) bool {
	return score >= s.w.Threshold
}

// Score returns the maximum score over all rules. exact is true when both
// canonical names are equal, in which case no other candidate needs checking.
func (s *Scorer) Score(scraped, registered Candidate) (score int, exact bool) {
	a, b := scraped.Canonical, registered.Canonical
	if a == b {
		return ExactScore, true
	}

	if utf8.RuneCountInString(a) > 4 && utf8.RuneCountInString(b) > 4 {
		if strings.Contains(b, a) || strings.Contains(a, b) {
			score = max(score, s.w.Containment)
		}
	}

	if len(scraped.Keywords) > 0 && len(registered.Keywords) > 0 {
		score = max(score, s.overlap(scraped.Keywords, registered.Keywords))

		x, y := scraped.longest, registered.longest
		if utf8.RuneCountInString(x) > 3 && utf8.RuneCountInString(y) > 3 {
			if x == y {
				score = max(score, s.w.LongestEqual)
			} else if strings.Contains(x, y) || strings.Contains(y, x) {
				score = max(score, s.w.LongestContains)
			}
		}
	}

	return score, false
}

func (s *Scorer) overlap(a, b []string) int {
	in := make(map[string]bool, len(b))
	for _, w := range b {
		in[w] = true
	}

	shared, long := 0, 0

	for _, w := range a {
		if !in[w] {
			continue
		}

		shared++

		if utf8.RuneCountInString(w) > 4 {
			long++
		}
	}

	if shared == 0 {
		return 0
	}

	score := shared * s.w.PerKeyword
	if 2*shared >= max(len(a), len(b)) {
		score += s.w.HalfBonus
	}

	return score + long*s.w.LongKeyword
}
