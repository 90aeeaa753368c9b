package matching

import (
	"github.com/Ramsey-B/sorrel/pkg/features"
)

// DefaultThreshold is the Jaccard score a candidate must exceed to absorb a listing.
const DefaultThreshold = 0.75

// DefaultBrandKeywords are retailer private labels and manufacturer brands common on
// Israeli shelves. Multi-word entries never equal a single token, so they only take
// effect when a caller's extractor keeps phrases together.
var DefaultBrandKeywords = []string{
	"שופרסל", "רמי לוי", "ויקטורי", "סוגת", "אסם", "תנובה", "שטראוס", "עלית",
	"קוקה קולה", "פריגת", "יכין", "פרימור", "טרה", "יטבתה", "מחלבות גד", "זוגלובק", "יחיעם",
	"טירת צבי", "עוף טוב", "מאמא עוף", "סנו", "ניקול", "קלין", "פיניש", "פיירי",
	"קנור", "היינץ", "תלמה", "בייגל בייגל", "לייף", "קרליין", "ניוואה", "דאב",
	"הד אנד שולדרס", "קולגייט", "אורביט", "האגיס", "פמפרס", "טיטולים", "יש", "שווה",
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets score 1, one empty set scores 0.
func Jaccard(a, b features.TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := a.IntersectionLen(b)
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// IsPlausibleMatch rejects matches carried by brand tokens alone: after removing
// brand keywords, at least one side must keep more than one token. The guard
// depends only on the token sets.
func IsPlausibleMatch(a, b features.TokenSet, _ float64, brandKeywords features.TokenSet) bool {
	return len(a.Minus(brandKeywords)) > 1 || len(b.Minus(brandKeywords)) > 1
}

// Scorer binds a threshold and brand keyword set.
type Scorer struct {
	threshold     float64
	brandKeywords features.TokenSet
}

// NewScorer creates a Scorer. A zero threshold or nil keywords select the defaults.
func NewScorer(threshold float64, brandKeywords []string) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if brandKeywords == nil {
		brandKeywords = DefaultBrandKeywords
	}
	return &Scorer{
		threshold:     threshold,
		brandKeywords: features.NewTokenSet(brandKeywords...),
	}
}

func (s *Scorer) Threshold() float64 {
	return s.threshold
}

func (s *Scorer) BrandKeywords() features.TokenSet {
	return s.brandKeywords
}

func (s *Scorer) Score(a, b features.TokenSet) float64 {
	return Jaccard(a, b)
}

// Eligible reports whether candidate may be chosen for incoming, returning the score.
// A score equal to the threshold is not enough.
func (s *Scorer) Eligible(incoming, candidate features.TokenSet) (float64, bool) {
	score := Jaccard(incoming, candidate)
	if score <= s.threshold {
		return score, false
	}
	return score, IsPlausibleMatch(candidate, incoming, score, s.brandKeywords)
}
