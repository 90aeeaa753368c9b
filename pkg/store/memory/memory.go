// Package memory is an in-process implementation of store.Catalog. A unit of work
// holds a catalog mutex and restores a snapshot when it fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

type txKey struct{}

type listingKey struct {
	storeID  int64
	itemCode string
}

type state struct {
	nextProductID int64
	nextListingID int64
	nextPriceID   int64
	nextGroupID   int64

	products map[int64]models.CanonicalProduct
	tokens   map[int64]features.TokenSet
	postings map[string]map[int64]struct{}

	listings    map[int64]models.RetailerListing
	listingKeys map[listingKey]int64

	prices []models.PriceObservation

	groups   map[int64]models.ComparisonGroup
	memberOf map[int64]int64
}

func newState() *state {
	return &state{
		nextProductID: 1,
		nextListingID: 1,
		nextPriceID:   1,
		nextGroupID:   1,
		products:      make(map[int64]models.CanonicalProduct),
		tokens:        make(map[int64]features.TokenSet),
		postings:      make(map[string]map[int64]struct{}),
		listings:      make(map[int64]models.RetailerListing),
		listingKeys:   make(map[listingKey]int64),
		groups:        make(map[int64]models.ComparisonGroup),
		memberOf:      make(map[int64]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextProductID: s.nextProductID,
		nextListingID: s.nextListingID,
		nextPriceID:   s.nextPriceID,
		nextGroupID:   s.nextGroupID,
		products:      make(map[int64]models.CanonicalProduct, len(s.products)),
		tokens:        make(map[int64]features.TokenSet, len(s.tokens)),
		postings:      make(map[string]map[int64]struct{}, len(s.postings)),
		listings:      make(map[int64]models.RetailerListing, len(s.listings)),
		listingKeys:   make(map[listingKey]int64, len(s.listingKeys)),
		prices:        append([]models.PriceObservation(nil), s.prices...),
		groups:        make(map[int64]models.ComparisonGroup, len(s.groups)),
		memberOf:      make(map[int64]int64, len(s.memberOf)),
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for id, t := range s.tokens {
		c.tokens[id] = t
	}
	for token, ids := range s.postings {
		cp := make(map[int64]struct{}, len(ids))
		for id := range ids {
			cp[id] = struct{}{}
		}
		c.postings[token] = cp
	}
	for id, l := range s.listings {
		c.listings[id] = l
	}
	for k, id := range s.listingKeys {
		c.listingKeys[k] = id
	}
	for id, g := range s.groups {
		g.ProductIDs = append([]int64(nil), g.ProductIDs...)
		c.groups[id] = g
	}
	for pid, gid := range s.memberOf {
		c.memberOf[pid] = gid
	}
	return c
}

func (s *state) index(id int64, tokens features.TokenSet) {
	s.unindex(id)
	s.tokens[id] = tokens
	for t := range tokens {
		ids, ok := s.postings[t]
		if !ok {
			ids = make(map[int64]struct{})
			s.postings[t] = ids
		}
		ids[id] = struct{}{}
	}
}

func (s *state) unindex(id int64) {
	for t := range s.tokens[id] {
		delete(s.postings[t], id)
		if len(s.postings[t]) == 0 {
			delete(s.postings, t)
		}
	}
	delete(s.tokens, id)
}

// Store is safe for concurrent use.
type Store struct {
	catalogMu sync.Mutex
	mu        sync.RWMutex
	state     *state
	now       func() time.Time
}

type Option func(*Store)

// WithClock sets the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	// a cancelled unit of work never commits
	return ctx.Err()
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()
}

// Seed loads existing catalog rows, keeping their ids, and indexes their names.
func (s *Store) Seed(products []models.CanonicalProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		s.state.products[p.ID] = p
		s.state.index(p.ID, features.Extract(p.DisplayName))
		if p.ID >= s.state.nextProductID {
			s.state.nextProductID = p.ID + 1
		}
	}
}

func (s *Store) Products() store.ProductRepository { return &productRepo{s: s} }
func (s *Store) Listings() store.ListingRepository { return &listingRepo{s: s} }
func (s *Store) Prices() store.PriceRepository     { return &priceRepo{s: s} }
func (s *Store) Groups() store.GroupRepository     { return &groupRepo{s: s} }

var _ store.Catalog = (*Store)(nil)

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortProducts(products []models.CanonicalProduct) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
}
