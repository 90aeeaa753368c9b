package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

type listingRepo struct {
	s *Store
}

func (r *listingRepo) Upsert(ctx context.Context, l models.ListingUpsert) (*models.RetailerListing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.products[l.CanonicalProductID]; !ok {
		return nil, sorrelerrors.NewIntegrityViolation("listing.upsert", l.CanonicalProductID, "canonical product does not exist")
	}

	seen := l.SeenAt
	if seen.IsZero() {
		seen = r.s.now()
	}

	key := listingKey{storeID: l.StoreID, itemCode: l.RetailerItemCode}
	if id, ok := st.listingKeys[key]; ok {
		listing := st.listings[id]
		listing.CanonicalProductID = l.CanonicalProductID
		listing.OriginalName = l.OriginalName
		listing.LastSeenAt = seen
		st.listings[id] = listing
		return &listing, nil
	}

	listing := models.RetailerListing{
		ID:                 st.nextListingID,
		StoreID:            l.StoreID,
		RetailerItemCode:   l.RetailerItemCode,
		CanonicalProductID: l.CanonicalProductID,
		OriginalName:       l.OriginalName,
		FirstSeenAt:        seen,
		LastSeenAt:         seen,
	}
	st.nextListingID++
	st.listings[listing.ID] = listing
	st.listingKeys[key] = listing.ID
	return &listing, nil
}

func (r *listingRepo) GetByKey(ctx context.Context, storeID int64, itemCode string) (*models.RetailerListing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.state.listingKeys[listingKey{storeID: storeID, itemCode: itemCode}]
	if !ok {
		return nil, fmt.Errorf("listing (%d, %s): %w", storeID, itemCode, store.ErrNotFound)
	}
	listing := r.s.state.listings[id]
	return &listing, nil
}

func (r *listingRepo) ListByCanonical(ctx context.Context, canonicalID int64) ([]models.RetailerListing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st := r.s.state
	out := make([]models.RetailerListing, 0)
	for _, l := range st.listings {
		owner, ok := st.products[l.CanonicalProductID]
		if ok && owner.CanonicalOf == canonicalID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *listingRepo) CountByProduct(ctx context.Context, productIDs []int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := idSet(productIDs)
	var n int64
	for _, l := range r.s.state.listings {
		if _, ok := ids[l.CanonicalProductID]; ok {
			n++
		}
	}
	return n, nil
}

func (r *listingRepo) Repoint(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.products[target]; !ok {
		return 0, sorrelerrors.NewIntegrityViolation("listing.repoint", target, "target product does not exist")
	}

	from := idSet(fromIDs)
	var n int64
	for id, l := range st.listings {
		if _, ok := from[l.CanonicalProductID]; !ok {
			continue
		}
		l.CanonicalProductID = target
		st.listings[id] = l
		n++
	}
	return n, nil
}

type priceRepo struct {
	s *Store
}

func (r *priceRepo) Append(ctx context.Context, listingID int64, price decimal.Decimal, observedAt time.Time, runID string) (*models.PriceObservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.listings[listingID]; !ok {
		return nil, sorrelerrors.NewIntegrityViolation("price.append", 0, "listing %d does not exist", listingID)
	}
	if observedAt.IsZero() {
		observedAt = r.s.now()
	}

	obs := models.PriceObservation{
		ID:          st.nextPriceID,
		ListingID:   listingID,
		Price:       price.Round(2),
		ObservedAt:  observedAt,
		IngestRunID: runID,
	}
	st.nextPriceID++
	st.prices = append(st.prices, obs)
	return &obs, nil
}

func (r *priceRepo) History(ctx context.Context, listingID int64) ([]models.PriceObservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.PriceObservation, 0)
	for _, obs := range r.s.state.prices {
		if obs.ListingID == listingID {
			out = append(out, obs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *priceRepo) Latest(ctx context.Context, listingIDs []int64) (map[int64]models.PriceObservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := idSet(listingIDs)
	latest := make(map[int64]models.PriceObservation)
	for _, obs := range r.s.state.prices {
		if _, ok := wanted[obs.ListingID]; !ok {
			continue
		}
		cur, ok := latest[obs.ListingID]
		if !ok || obs.ObservedAt.After(cur.ObservedAt) || (obs.ObservedAt.Equal(cur.ObservedAt) && obs.ID > cur.ID) {
			latest[obs.ListingID] = obs
		}
	}
	return latest, nil
}
