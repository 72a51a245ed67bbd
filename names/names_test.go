// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Pharmacié DU Centre", "centre"},
		{"pharmacie du centre", "centre"},
		{"PHARMACIE DE LA PAIX", "paix"},
		{"Pharmacy  of   Hope", "of hope"},
		{"Pharmacie d'Ékounou", "ekounou"},
		{"PHARMA-PLUS", "plus"},
		{"La Pharmacie des Lacs", "lacs"},
		{"  Pharmacie Bastos (Yaoundé)  ", "bastos yaounde"},
		{"Pharmacie", "pharmacie"},
		{"", ""},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got := Normalize(test.input)
			assert.Equal(t, test.expected, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestNormalizeAccentAndCaseInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("pharmacie du centre"), Normalize("Pharmacié DU Centre"))
	assert.Equal(t, Normalize("MVOG-MBI"), Normalize("mvog mbi"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "yaounde", Fold(" Yaoundé "))
	assert.Equal(t, "sa a", Fold("Sa'a"))
	assert.Equal(t, "ngaoundere", Fold("NGAOUNDÉRÉ"))
	assert.Equal(t, "garoua boulai", Fold("Garoua-Boulai"))
	assert.Equal(t, "la cite", Fold("La Cité"))
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Pharmacie du Centre", []string{"centre"}},
		{"Pharmacie de la Cité Verte et du Lac", []string{"cite", "verte", "lac"}},
		{"PHARMACIE AUX DEUX AMIS DE MELEN", []string{"deux", "amis", "melen"}},
		{"Pharmacie Ste Rita Ste Rita", []string{"ste", "rita"}},
		{"Pharmacie 24", nil},
	}

	for _, test := range tests {
		if diff := cmp.Diff(test.expected, Keywords(test.input)); diff != "" {
			t.Errorf("Keywords(%q) mismatch (-expected +got):\n%s", test.input, diff)
		}
	}
}

func TestScore(t *testing.T) {
	scorer := NewScorer(DefaultWeights())

	tests := []struct {
		name       string
		scraped    string
		registered string
		score      int
		exact      bool
	}{
		{"exact after normalization", "PHARMACIE DU CENTRE", "Pharmacie Centre", ExactScore, true},
		{"containment", "Pharmacie Mont Febe", "Pharmacie Mont Febe Plus", 70, false},
		{"containment needs long names", "Pharmacie Ola", "Pharmacie Olala", 0, false},
		// shared {soleil}: 25 + long 15; one shared out of three misses the half bonus
		{"keyword overlap", "Pharmacie du Soleil Levant", "Grande Pharmacie du Soleil", 40, false},
		// shared {nouvelle, melen}: 50 + 20 + 30; containment does not apply
		{"two long keywords", "PHARMACIE NOUVELLE DE MELEN", "Nouvelle Pharmacie Melen", 100, false},
		{"longest contains", "Pharmacie Emmanuel", "Pharmacie Emmanuella", 70, false},
		{"longest contains only", "Pharmacie Bonamoussadi Sud", "Pharmacie Bonamoussadi2 Nord", 45, false},
		{"unrelated", "Pharmacie du Lac", "Pharmacie Bastos", 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			score, exact := scorer.Score(NewCandidate(test.scraped), NewCandidate(test.registered))
			assert.Equal(t, test.score, score)
			assert.Equal(t, test.exact, exact)
		})
	}
}

func TestAccept(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	assert.True(t, scorer.Accept(35))
	assert.False(t, scorer.Accept(34))

	custom := NewScorer(Weights{Threshold: 50})
	assert.False(t, custom.Accept(45))
	assert.Equal(t, 50, custom.Weights().Threshold)
}

func TestCandidateMatchable(t *testing.T) {
	assert.True(t, NewCandidate("Pharmacie Lac").Matchable())
	assert.False(t, NewCandidate("Pharmacie du X").Matchable())
	assert.True(t, NewCandidate("PHARMACIE").Matchable())
}
