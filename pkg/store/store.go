// Package store defines the persistence contract of the catalog. The PostgreSQL
// implementation lives in internal/repositories; store/memory backs tests and
// dry runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Transactor runs fn as one unit of work holding the exclusive catalog lock.
// Calls nested inside fn join the outer unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewProduct is the insert shape of a canonical product.
type NewProduct struct {
	DisplayName string
	Brand       *string
	Attributes  models.Attributes
}

type ProductRepository interface {
	// Create inserts a canonical product, points canonical_of at itself and indexes tokens.
	Create(ctx context.Context, p NewProduct, tokens features.TokenSet) (*models.CanonicalProduct, error)
	Get(ctx context.Context, id int64) (*models.CanonicalProduct, error)
	// ListCanonical returns products with canonical_of == id, ascending by id.
	ListCanonical(ctx context.Context) ([]models.CanonicalProduct, error)
	// ListAll returns every row, merged-away ones included, ascending by id.
	ListAll(ctx context.Context) ([]models.CanonicalProduct, error)
	// FindCandidates returns canonical products sharing at least one token, ascending by id.
	FindCandidates(ctx context.Context, tokens features.TokenSet) ([]models.CanonicalProduct, error)
	// FindByDisplayNames returns every row whose display name is in names, ascending by id.
	FindByDisplayNames(ctx context.Context, names []string) ([]models.CanonicalProduct, error)
	// FindBrandNamed returns rows whose display name equals their non-null brand, ascending by id.
	FindBrandNamed(ctx context.Context) ([]models.CanonicalProduct, error)
	// Consolidate points members, and every row pointing at a member, at target.
	// target itself becomes canonical.
	Consolidate(ctx context.Context, memberIDs []int64, target int64) (int64, error)
	// Redirect points rows whose canonical_of is one of fromIDs at target.
	// The fromIDs rows themselves are left alone.
	Redirect(ctx context.Context, fromIDs []int64, target int64) (int64, error)
	// Rename changes the display name and re-indexes tokens.
	Rename(ctx context.Context, id int64, displayName string, tokens features.TokenSet) error
	// Delete removes rows and their tokens. Referenced rows fail with IntegrityViolation.
	Delete(ctx context.Context, ids []int64) (int64, error)
	// ReplaceTokens rewrites the token index of one product.
	ReplaceTokens(ctx context.Context, id int64, tokens features.TokenSet) error
}

type ListingRepository interface {
	// Upsert inserts or refreshes the listing keyed by (store, item code) in one statement.
	Upsert(ctx context.Context, l models.ListingUpsert) (*models.RetailerListing, error)
	GetByKey(ctx context.Context, storeID int64, itemCode string) (*models.RetailerListing, error)
	// ListByCanonical returns listings whose product resolves to canonicalID, ascending by id.
	ListByCanonical(ctx context.Context, canonicalID int64) ([]models.RetailerListing, error)
	// CountByProduct counts listings owned directly by productIDs.
	CountByProduct(ctx context.Context, productIDs []int64) (int64, error)
	// Repoint moves listings owned by fromIDs to target.
	Repoint(ctx context.Context, fromIDs []int64, target int64) (int64, error)
}

type PriceRepository interface {
	Append(ctx context.Context, listingID int64, price decimal.Decimal, observedAt time.Time, runID string) (*models.PriceObservation, error)
	// History returns observations ascending by timestamp, then id.
	History(ctx context.Context, listingID int64) ([]models.PriceObservation, error)
	// Latest returns the newest observation of each listing, keyed by listing id.
	Latest(ctx context.Context, listingIDs []int64) (map[int64]models.PriceObservation, error)
}

type GroupRepository interface {
	DeleteAll(ctx context.Context) error
	Create(ctx context.Context, key models.GroupKey, productIDs []int64) (*models.ComparisonGroup, error)
	// List returns groups ascending by id with members ascending by product id.
	List(ctx context.Context) ([]models.ComparisonGroup, error)
	// RepointMembers moves memberships of fromIDs to target, dropping any that
	// would give target a second membership.
	RepointMembers(ctx context.Context, fromIDs []int64, target int64) (int64, error)
	// DeleteUndersized removes groups left with fewer than two members.
	DeleteUndersized(ctx context.Context) (int64, error)
}

// Catalog is the full store: repositories plus the unit-of-work boundary.
type Catalog interface {
	Transactor
	Products() ProductRepository
	Listings() ListingRepository
	Prices() PriceRepository
	Groups() GroupRepository
}
