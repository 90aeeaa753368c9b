package dedup

import (
	"context"
	"slices"

	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// MergeResult counts the rows touched by one Merge call.
type MergeResult struct {
	Listings      int64 `json:"listings"`
	Memberships   int64 `json:"memberships"`
	GroupsDropped int64 `json:"groups_dropped"`
	Redirected    int64 `json:"redirected"`
	Deleted       int64 `json:"deleted"`
}

func (r *MergeResult) add(o MergeResult) {
	r.Listings += o.Listings
	r.Memberships += o.Memberships
	r.GroupsDropped += o.GroupsDropped
	r.Redirected += o.Redirected
	r.Deleted += o.Deleted
}

func (r MergeResult) Rows() int64 {
	return r.Listings + r.Memberships + r.GroupsDropped + r.Redirected + r.Deleted
}

// Merger folds loser products into a target in two phases. Dependents are
// redirected first (listings, group memberships, canonical_of of other rows),
// then the losers and their tokens are reclaimed. Groups that no longer compare
// anything are removed along the way. Callers run it inside a unit
// of work.
type Merger struct {
	catalog store.Catalog
}

func NewMerger(catalog store.Catalog) *Merger {
	return &Merger{catalog: catalog}
}

func (m *Merger) Merge(ctx context.Context, target int64, losers []int64) (MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Merger.Merge")
	defer span.End()

	from := make([]int64, 0, len(losers))
	for _, id := range losers {
		if id != target {
			from = append(from, id)
		}
	}
	var res MergeResult
	if len(from) == 0 {
		return res, nil
	}

	t, err := m.catalog.Products().Get(ctx, target)
	if err != nil {
		return res, tracing.RecordError(span, err)
	}
	// dependents follow the target's own redirect unless it points at a loser
	dest := target
	if !t.IsCanonical() && !slices.Contains(from, t.CanonicalOf) {
		dest = t.CanonicalOf
	}

	if res.Listings, err = m.catalog.Listings().Repoint(ctx, from, target); err != nil {
		return res, tracing.RecordError(span, err)
	}
	if res.Memberships, err = m.catalog.Groups().RepointMembers(ctx, from, target); err != nil {
		return res, tracing.RecordError(span, err)
	}
	if res.GroupsDropped, err = m.catalog.Groups().DeleteUndersized(ctx); err != nil {
		return res, tracing.RecordError(span, err)
	}
	if res.Redirected, err = m.catalog.Products().Redirect(ctx, from, dest); err != nil {
		return res, tracing.RecordError(span, err)
	}
	if res.Deleted, err = m.catalog.Products().Delete(ctx, from); err != nil {
		return res, tracing.RecordError(span, err)
	}
	return res, nil
}
