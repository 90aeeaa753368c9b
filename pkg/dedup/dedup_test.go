package dedup

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/clustering"
	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func brand(s string) *string { return &s }

func product(id int64, name string, b *string, canonicalOf int64) models.CanonicalProduct {
	return models.CanonicalProduct{ID: id, DisplayName: name, Brand: b, CanonicalOf: canonicalOf}
}

var seededListings = []models.ListingUpsert{
	{StoreID: 1, RetailerItemCode: "A", CanonicalProductID: 2},
	{StoreID: 1, RetailerItemCode: "B", CanonicalProductID: 1},
	{StoreID: 2, RetailerItemCode: "C", CanonicalProductID: 5},
	{StoreID: 2, RetailerItemCode: "D", CanonicalProductID: 7},
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		product(1, "ורוד", brand("קסטל"), 1),
		product(2, "ורוד", brand("קסטל"), 2),
		product(3, "ורוד", nil, 3),
		product(4, "לבן", brand("קסטל"), 4),
		product(5, "ורוד", brand("קסטל"), 5),
		product(6, "אסם", brand("אסם"), 6),
		product(7, "אסם", brand("אסם"), 7),
		product(8, "אסם", brand("אסם"), 8),
		product(9, "תנובה", brand("תנובה"), 9),
		product(10, "תנובה", brand("תנובה"), 10),
		product(11, "במבה", nil, 2),
		product(12, "כחול", brand("כחול"), 12),
	})

	ctx := context.Background()
	for _, l := range seededListings {
		_, err := s.Listings().Upsert(ctx, l)
		require.NoError(t, err)
	}
	_, err := s.Groups().Create(ctx, models.GroupKey{Brand: "x"}, []int64{2, 7})
	require.NoError(t, err)
	return s
}

type snapshot struct {
	products map[int64]models.CanonicalProduct
	groups   []models.ComparisonGroup
}

func snap(t *testing.T, s *memory.Store) snapshot {
	t.Helper()
	ctx := context.Background()
	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	groups, err := s.Groups().List(ctx)
	require.NoError(t, err)
	out := snapshot{products: make(map[int64]models.CanonicalProduct, len(all)), groups: groups}
	for _, p := range all {
		p.UpdatedAt = p.UpdatedAt.UTC().Truncate(0)
		out.products[p.ID] = p
	}
	return out
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	svc := NewService(nopLogger(), s)

	results, err := svc.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, PassColorMerge, results[0].Pass)
	assert.Equal(t, 1, results[0].Groups)
	assert.Equal(t, int64(2), results[0].Merged.Deleted)
	assert.Equal(t, int64(2), results[0].Merged.Listings)

	assert.Equal(t, PassBrandMerge, results[1].Pass)
	assert.Equal(t, 2, results[1].Groups)
	assert.Equal(t, int64(3), results[1].Merged.Deleted)

	assert.Equal(t, PassRenameColors, results[2].Pass)
	assert.Equal(t, 2, results[2].Renamed)

	state := snap(t, s)
	ids := make([]int64, 0, len(state.products))
	for id := range state.products {
		ids = append(ids, id)
	}
	assert.ElementsMatch(t, []int64{1, 3, 4, 6, 9, 11, 12}, ids)
	assert.Equal(t, "קסטל - ורוד", state.products[1].DisplayName)
	assert.Equal(t, "קסטל - לבן", state.products[4].DisplayName)
	assert.Equal(t, "ורוד", state.products[3].DisplayName, "no brand to prefix")
	assert.Equal(t, "כחול", state.products[12].DisplayName, "brand equals name")
	assert.Equal(t, int64(1), state.products[11].CanonicalOf, "dependents follow the merge")

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, models.CheckRedirects(all))

	for _, l := range seededListings {
		listing, err := s.Listings().GetByKey(ctx, l.StoreID, l.RetailerItemCode)
		require.NoError(t, err)
		assert.Contains(t, state.products, listing.CanonicalProductID, "listing %s owned by a deleted product", l.RetailerItemCode)
	}
	listing, err := s.Listings().GetByKey(ctx, 2, "C")
	require.NoError(t, err)
	assert.Equal(t, int64(1), listing.CanonicalProductID, "all three pink products collapse into the lowest id")

	require.Len(t, state.groups, 1)
	assert.Equal(t, []int64{1, 6}, state.groups[0].ProductIDs)

	renamed, err := s.Products().FindCandidates(ctx, features.NewTokenSet("קסטל"))
	require.NoError(t, err)
	require.Len(t, renamed, 2)
	assert.Equal(t, int64(1), renamed[0].ID)
	assert.Equal(t, int64(4), renamed[1].ID)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	svc := NewService(nopLogger(), s)

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	before := snap(t, s)

	results, err := svc.Run(ctx)
	require.NoError(t, err)
	for _, r := range results {
		assert.Zero(t, r.Rows(), r.Pass)
		assert.Zero(t, r.Groups, r.Pass)
	}
	assert.Equal(t, before, snap(t, s))
}

func TestMergeColorOnly_DropsGroupsLeftWithOneMember(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	attrs := models.Attributes{models.AttrProductType: "מגבת", models.AttrSizeValue: "1", models.AttrSizeUnit: "units"}
	s.Seed([]models.CanonicalProduct{
		{ID: 1, DisplayName: "ורוד", Brand: brand("קסטל"), Attributes: attrs, CanonicalOf: 1},
		{ID: 2, DisplayName: "ורוד", Brand: brand("קסטל"), Attributes: attrs, CanonicalOf: 2},
	})

	written, err := clustering.NewService(nopLogger(), s).RebuildGroups(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, written)

	res, err := NewService(nopLogger(), s).MergeColorOnly(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Merged.GroupsDropped)

	groups, err := s.Groups().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMergeColorOnly_MissingAndEmptyBrandStayApart(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		product(1, "ורוד", nil, 1),
		product(2, "ורוד", brand(""), 2),
		product(3, "ורוד", nil, 3),
	})

	res, err := NewService(nopLogger(), s).MergeColorOnly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(2), all[1].ID)
}

func TestMergeBrandNamed_Limit(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	res, err := NewService(nopLogger(), s, WithBrandGroupLimit(1)).MergeBrandNamed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)

	left, err := s.Products().FindBrandNamed(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, p := range left {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{6, 9, 10, 12}, ids, "largest group merged first")
}

func TestMerger_TargetPointingAtLoser(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		product(1, "a", nil, 2),
		product(2, "b", nil, 2),
		product(3, "c", nil, 2),
	})

	var res MergeResult
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = NewMerger(s).Merge(ctx, 1, []int64{1, 2})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Redirected: 2, Deleted: 1}, res)

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsCanonical())
	assert.Equal(t, int64(1), all[1].CanonicalOf)
	assert.Empty(t, models.CheckRedirects(all))
}

func TestMerger_TargetAlreadyMerged(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed([]models.CanonicalProduct{
		product(1, "a", nil, 5),
		product(2, "b", nil, 2),
		product(3, "c", nil, 2),
		product(5, "e", nil, 5),
	})

	_, err := NewMerger(s).Merge(ctx, 1, []int64{2})
	require.NoError(t, err)

	p, err := s.Products().Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CanonicalOf, "dependents skip the non-canonical target")

	all, err := s.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, models.CheckRedirects(all))
}

func TestBuildReport(t *testing.T) {
	r := BuildReport([]models.CanonicalProduct{
		product(1, "ורוד", brand("קסטל"), 1),
		product(2, "ורוד", brand("קסטל"), 1),
		product(3, "אסם", brand("אסם"), 3),
		product(4, "במבה אסם", brand(" "), 4),
		product(5, "חלב תנובה 3%", nil, 5),
	})
	assert.Equal(t, &Report{
		Total:             5,
		DistinctNameBrand: 4,
		ColorOnly:         2,
		ShortNames:        1,
		MissingBrand:      2,
		BrandNamed:        1,
	}, r)
}
