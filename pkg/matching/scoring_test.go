package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sorrel/pkg/features"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     features.TokenSet
		expected float64
	}{
		{"both empty", features.NewTokenSet(), features.NewTokenSet(), 1.0},
		{"one empty", features.NewTokenSet("חלב"), features.NewTokenSet(), 0.0},
		{"identical", features.NewTokenSet("חלב", "תנובה"), features.NewTokenSet("תנובה", "חלב"), 1.0},
		{"disjoint", features.NewTokenSet("חלב"), features.NewTokenSet("לחם"), 0.0},
		{"two of three", features.NewTokenSet("קולה", "זירו"), features.NewTokenSet("קוקה", "קולה", "זירו"), 2.0 / 3.0},
		{"three of four", features.NewTokenSet("קוקה", "קולה", "זירו", "בקבוק"), features.NewTokenSet("קוקה", "קולה", "זירו"), 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Jaccard(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Jaccard(tt.a, tt.b), Jaccard(tt.b, tt.a), 1e-9, "symmetry")
		})
	}
}

func TestJaccard_Identity(t *testing.T) {
	names := []string{"שוקולד פרה 100 גרם", "במבה אסם", "Coca-Cola Zero 1.5L", "חלב 3% טרה"}
	for _, name := range names {
		tokens := features.Extract(name)
		assert.Equal(t, 1.0, Jaccard(tokens, tokens), name)
	}
}

func TestIsPlausibleMatch(t *testing.T) {
	brands := features.NewTokenSet(DefaultBrandKeywords...)

	// brand plus one generic word on each side
	assert.False(t, IsPlausibleMatch(features.Extract("שופרסל מלח"), features.Extract("שופרסל סוכר"), 1.0, brands))
	assert.False(t, IsPlausibleMatch(features.Extract("שופרסל מלח"), features.Extract("שופרסל מלח"), 1.0, brands))

	// one side has two generic words
	assert.True(t, IsPlausibleMatch(features.Extract("שופרסל מלח דק"), features.Extract("שופרסל מלח"), 0.66, brands))
	assert.True(t, IsPlausibleMatch(features.Extract("קוקה קולה זירו"), features.Extract("קולה זירו"), 0.66, brands))
}

func TestScorer_Eligible(t *testing.T) {
	s := NewScorer(0, nil)
	assert.Equal(t, DefaultThreshold, s.Threshold())

	score, ok := s.Eligible(features.Extract("קוקה קולה זירו בקבוק"), features.Extract("קוקה קולה זירו"))
	assert.False(t, ok, "a score at the threshold does not match")
	assert.Equal(t, 0.75, score)

	score, ok = s.Eligible(features.Extract("קוקה קולה זירו בקבוק גדול"), features.Extract("קוקה קולה זירו בקבוק"))
	assert.True(t, ok)
	assert.InDelta(t, 0.8, score, 1e-9)

	_, ok = s.Eligible(features.Extract(`קולה זירו 500 מ"ל`), features.Extract("קוקה קולה זירו"))
	assert.False(t, ok)

	_, ok = s.Eligible(features.Extract("שופרסל מלח"), features.Extract("שופרסל מלח"))
	assert.False(t, ok, "brand guard applies even to identical short names")

	custom := NewScorer(0.6, []string{})
	_, ok = custom.Eligible(features.Extract(`קולה זירו 500 מ"ל`), features.Extract("קוקה קולה זירו"))
	assert.True(t, ok)
}
