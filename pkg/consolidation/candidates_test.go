package consolidation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func TestClassify(t *testing.T) {
	brands := features.NewTokenSet(matching.DefaultBrandKeywords...)
	tests := []struct {
		name string
		a, b string
		want Verdict
	}{
		{"subset above 0.80", "נוטלה ממרח אגוזי לוז 750 גרם", "נוטלה ממרח אגוזי לוז", Yes},
		{"short generic names", "שופרסל מלח", "שופרסל סוכר", No},
		{"pack sizes too far apart", "קפה נמס עלית 50 גרם", "קפה נמס עלית רויאל 200 גרם", No},
		{"conflicting keywords", "שמפו הד אנד שולדרס קלאסי", "מרכך הד אנד שולדרס קלאסי", No},
		{"deal breaker on one side", "יוגורט יטבתה תות 3%", "יוגורט יטבתה תות לייט 3%", No},
		{"low similarity", "פסטה פנה ברילה", "פסטה ספגטי ברילה ארוכה", No},
		{"grey area", "פסטה פנה ברילה איכותית", "פסטה פנה ברילה איכותית מקורית", Undecided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(FeaturesOf(tt.a), FeaturesOf(tt.b), brands)
			assert.Equal(t, tt.want, got, "got %s", got)
			assert.Equal(t, tt.want, Classify(FeaturesOf(tt.b), FeaturesOf(tt.a), brands), "symmetric")
		})
	}
}

func finderFixture() []models.CanonicalProduct {
	names := []string{
		"נוטלה ממרח אגוזי לוז 750 גרם",
		"נוטלה ממרח אגוזי לוז",
		"ממרח אגוזי לוז נוטלה 350 גרם",
		"שופרסל מלח",
		"שופרסל סוכר",
		"פסטה פנה ברילה איכותית",
		"פסטה פנה ברילה איכותית מקורית",
	}
	products := make([]models.CanonicalProduct, len(names))
	for i, n := range names {
		id := int64(i + 1)
		products[i] = models.CanonicalProduct{ID: id, DisplayName: n, CanonicalOf: id}
	}
	return products
}

func TestAnalyze(t *testing.T) {
	analysis := Analyze(finderFixture(), FinderOptions{})

	assert.Equal(t, FinderStats{Products: 7, Tokens: analysis.Stats.Tokens, Pairs: 5, Yes: 3, No: 1, Undecided: 1, Groups: 1}, analysis.Stats)
	require.Len(t, analysis.Groups, 1)
	assert.Equal(t, int64(1), analysis.Groups[0].ID)
	assert.Equal(t, []Member{
		{ProductID: 1, DisplayName: "נוטלה ממרח אגוזי לוז 750 גרם"},
		{ProductID: 2, DisplayName: "נוטלה ממרח אגוזי לוז"},
		{ProductID: 3, DisplayName: "ממרח אגוזי לוז נוטלה 350 גרם"},
	}, analysis.Groups[0].Members)
}

func TestAnalyze_SkipsCrowdedTokens(t *testing.T) {
	analysis := Analyze(finderFixture(), FinderOptions{MaxPosting: 3})
	assert.Equal(t, 2, analysis.Stats.Pairs)
	assert.Empty(t, analysis.Groups)
}

func TestFindCandidates_ThenApply(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(finderFixture())
	svc := NewService(nopLogger(), s)

	groups, err := svc.FindCandidates(ctx, FinderOptions{})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	review := map[int64][]Member{}
	for _, g := range groups {
		review[g.ID] = g.Members
	}
	result, err := svc.Apply(ctx, review)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Groups[0].Representative)

	again, err := svc.FindCandidates(ctx, FinderOptions{})
	require.NoError(t, err)
	assert.Empty(t, again, "merged-away rows are no longer candidates")
}
