package consolidation

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func seeded() *memory.Store {
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		{ID: 1, DisplayName: "קוקה קולה זירו 1.5 ליטר", CanonicalOf: 1},
		{ID: 2, DisplayName: "קוקה קולה זירו", CanonicalOf: 2},
		{ID: 3, DisplayName: "קולה זירו", CanonicalOf: 3},
		{ID: 4, DisplayName: "קוקה קולה זירו בקבוק", CanonicalOf: 1},
		{ID: 5, DisplayName: "במבה", CanonicalOf: 5},
		{ID: 6, DisplayName: "במבה אסם", CanonicalOf: 6},
	})
	return s
}

func reviewed() map[int64][]Member {
	return map[int64][]Member{
		20: {{ProductID: 6, DisplayName: "במבה אסם"}, {ProductID: 5, DisplayName: "במבה"}},
		10: {
			{ProductID: 1, DisplayName: "קוקה קולה זירו 1.5 ליטר", IsCanonical: true},
			{ProductID: 2, DisplayName: "קוקה קולה זירו"},
			{ProductID: 3, DisplayName: "קולה זירו"},
		},
	}
}

func canonicalOf(t *testing.T, s *memory.Store) map[int64]int64 {
	t.Helper()
	all, err := s.Products().ListAll(context.Background())
	require.NoError(t, err)
	out := make(map[int64]int64, len(all))
	for _, p := range all {
		out[p.ID] = p.CanonicalOf
	}
	return out
}

func TestRepresentative(t *testing.T) {
	rep, ok := Representative([]Member{
		{ProductID: 1, DisplayName: "abcd"},
		{ProductID: 2, DisplayName: "אבג"},
		{ProductID: 3, DisplayName: "דהו"},
	})
	require.True(t, ok)
	assert.Equal(t, int64(2), rep.ProductID, "length counts characters, ties keep the first")

	rep, ok = Representative([]Member{
		{ProductID: 7, DisplayName: "  חלב  "},
		{ProductID: 8, DisplayName: "חלב 1%"},
	})
	require.True(t, ok)
	assert.Equal(t, int64(8), rep.ProductID, "surrounding spaces count toward the length")

	_, ok = Representative(nil)
	assert.False(t, ok)
}

func TestApply_FlattensToOneHop(t *testing.T) {
	ctx := context.Background()
	s := seeded()
	svc := NewService(nopLogger(), s)

	result, err := svc.Apply(ctx, reviewed())
	require.NoError(t, err)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, GroupResult{GroupID: 10, Representative: 3, Repointed: 4, ReviewerPick: 1}, result.Groups[0])
	assert.Equal(t, GroupResult{GroupID: 20, Representative: 5, Repointed: 2}, result.Groups[1])
	assert.Equal(t, int64(6), result.Repointed)

	assert.Equal(t, map[int64]int64{1: 3, 2: 3, 3: 3, 4: 3, 5: 5, 6: 5}, canonicalOf(t, s))

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, models.CheckRedirects(all))
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := seeded()
	svc := NewService(nopLogger(), s)

	_, err := svc.Apply(ctx, reviewed())
	require.NoError(t, err)
	first := canonicalOf(t, s)

	_, err = svc.Apply(ctx, reviewed())
	require.NoError(t, err)
	assert.Equal(t, first, canonicalOf(t, s))
}

func TestApply_SkipsSingletonGroups(t *testing.T) {
	s := seeded()
	result, err := NewService(nopLogger(), s).Apply(context.Background(), map[int64][]Member{
		1: {{ProductID: 5, DisplayName: "במבה"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Groups)
}

type failingProducts struct {
	store.ProductRepository
	failTarget int64
}

func (f failingProducts) Consolidate(ctx context.Context, memberIDs []int64, target int64) (int64, error) {
	if target == f.failTarget {
		return 0, sorrelerrors.NewStoreError("product.consolidate", errors.New("connection reset"))
	}
	return f.ProductRepository.Consolidate(ctx, memberIDs, target)
}

type failingCatalog struct {
	*memory.Store
	products store.ProductRepository
}

func (c *failingCatalog) Products() store.ProductRepository { return c.products }

func TestApply_FailureOnLastGroupRollsBackEverything(t *testing.T) {
	s := seeded()
	before := canonicalOf(t, s)
	catalog := &failingCatalog{Store: s, products: failingProducts{ProductRepository: s.Products(), failTarget: 5}}

	_, err := NewService(nopLogger(), catalog).Apply(context.Background(), reviewed())
	require.Error(t, err)
	assert.True(t, sorrelerrors.IsStoreError(err))

	assert.Equal(t, before, canonicalOf(t, s))
}
