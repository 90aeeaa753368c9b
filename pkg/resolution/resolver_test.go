package resolution

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func newResolver(s *memory.Store) *Resolver {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewResolver(logger, s, matching.NewScorer(0, nil))
}

func TestResolve_CreatesAtThreshold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{{ID: 1, DisplayName: "קוקה קולה זירו", CanonicalOf: 1}})

	// three of four tokens shared: 0.75 is not above the threshold
	res, err := newResolver(s).Resolve(ctx, "קוקה קולה זירו בקבוק", nil)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(2), res.ProductID)
}

func TestResolve_MatchesAboveThreshold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{{ID: 1, DisplayName: "קוקה קולה זירו בקבוק", CanonicalOf: 1}})

	res, err := newResolver(s).Resolve(ctx, "קוקה קולה זירו בקבוק גדול", nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, int64(1), res.ProductID)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
}

func TestResolve_CreatesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{{ID: 1, DisplayName: "קוקה קולה זירו", CanonicalOf: 1}})

	brand := "קוקה קולה"
	res, err := newResolver(s).Resolve(ctx, `קולה זירו 500 מ"ל`, &brand)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(2), res.ProductID)

	created, err := s.Products().Get(ctx, res.ProductID)
	require.NoError(t, err)
	assert.Equal(t, `קולה זירו 500 מ"ל`, created.DisplayName)
	assert.Equal(t, brand, created.BrandName())
	assert.True(t, created.IsCanonical())
}

func TestResolve_TieKeepsLowestID(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		{ID: 4, DisplayName: "חלב תנובה טרי", CanonicalOf: 4},
		{ID: 9, DisplayName: "חלב תנובה טרי", CanonicalOf: 9},
	})

	res, err := newResolver(s).Resolve(ctx, "חלב תנובה טרי", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.ProductID)
}

func TestResolve_HigherScoreWinsOverLowerID(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		{ID: 1, DisplayName: "במבה אסם גדול מיוחד", CanonicalOf: 1},
		{ID: 2, DisplayName: "במבה אסם גדול", CanonicalOf: 2},
	})

	res, err := newResolver(s).Resolve(ctx, "במבה אסם גדול", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.ProductID)
	assert.Equal(t, 1.0, res.Score)
}

func TestResolve_BrandGuardRejectsShortBrandedNames(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{{ID: 1, DisplayName: "שופרסל מלח", CanonicalOf: 1}})

	res, err := newResolver(s).Resolve(ctx, "שופרסל מלח", nil)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, int64(1), res.ProductID)
}

func TestResolve_SkipsMergedAwayRows(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		{ID: 1, DisplayName: "קפה טורקי עלית שחור", CanonicalOf: 2},
		{ID: 2, DisplayName: "קפה עלית טורקי שחור טחון", CanonicalOf: 2},
	})

	res, err := newResolver(s).Resolve(ctx, "קפה טורקי עלית שחור", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.ProductID)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
}

func TestResolve_Unresolvable(t *testing.T) {
	for _, name := range []string{"", "   ", "100%", "א ב"} {
		_, err := newResolver(memory.New()).Resolve(context.Background(), name, nil)
		assert.ErrorIs(t, err, sorrelerrors.ErrUnresolvableProduct, "name %q", name)
	}
}

func TestResolve_SecondCallMatchesFirst(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResolver(s)

	first, err := r.Resolve(ctx, "שמן זית כתית מעולה", nil)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "שמן זית כתית מעולה", nil)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)
}
