package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/repositories"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const upsertListingSQL = `
INSERT INTO retailer_listings (store_id, retailer_item_code, canonical_product_id, original_name, first_seen_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (store_id, retailer_item_code) DO UPDATE SET
    canonical_product_id = EXCLUDED.canonical_product_id,
    original_name        = EXCLUDED.original_name,
    last_seen_at         = EXCLUDED.last_seen_at
RETURNING id, store_id, retailer_item_code, canonical_product_id, original_name, first_seen_at, last_seen_at`

// Repository implements store.ListingRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var _ store.ListingRepository = (*Repository)(nil)

func (r *Repository) Upsert(ctx context.Context, l models.ListingUpsert) (*models.RetailerListing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Upsert")
	defer span.End()

	seen := l.SeenAt
	if seen.IsZero() {
		seen = time.Now().UTC()
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"store_id":             l.StoreID,
		"retailer_item_code":   l.RetailerItemCode,
		"canonical_product_id": l.CanonicalProductID,
	}).Debug("Upserting listing")

	var row ListingRow
	err := database.Conn(ctx, r.db).GetContext(ctx, &row, upsertListingSQL,
		l.StoreID, l.RetailerItemCode, l.CanonicalProductID, l.OriginalName, seen)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert listing")
		return nil, tracing.RecordError(span, repositories.Wrap("listing.upsert", l.CanonicalProductID, err))
	}
	return ToListing(&row), nil
}

func (r *Repository) GetByKey(ctx context.Context, storeID int64, itemCode string) (*models.RetailerListing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.GetByKey")
	defer span.End()

	sb := listingStruct.SelectFrom(listingsTable)
	sb.Where(
		sb.Equal("store_id", storeID),
		sb.Equal("retailer_item_code", itemCode),
	)
	query, args := sb.Build()

	var row ListingRow
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		key := fmt.Sprintf("(%d, %s)", storeID, itemCode)
		return nil, tracing.RecordError(span, repositories.NotFound("listing.get", "listing", key, err))
	}
	return ToListing(&row), nil
}

func (r *Repository) ListByCanonical(ctx context.Context, canonicalID int64) ([]models.RetailerListing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.ListByCanonical")
	defer span.End()

	sb := listingStruct.SelectFrom(listingsTable)
	sb.Where(fmt.Sprintf("canonical_product_id IN (SELECT id FROM canonical_products WHERE canonical_of = %s)", sb.Var(canonicalID)))
	sb.OrderBy("id").Asc()
	query, args := sb.Build()

	var rows []ListingRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("canonical_id", canonicalID).Error("Failed to list listings")
		return nil, tracing.RecordError(span, repositories.Wrap("listing.list_by_canonical", canonicalID, err))
	}
	return ToListings(rows), nil
}

func (r *Repository) CountByProduct(ctx context.Context, productIDs []int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.CountByProduct")
	defer span.End()

	if len(productIDs) == 0 {
		return 0, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("count(*)").From(listingsTable)
	sb.Where(fmt.Sprintf("canonical_product_id = ANY(%s)", sb.Var(database.Int64Array(productIDs))))
	query, args := sb.Build()

	var n int64
	if err := database.Conn(ctx, r.db).GetContext(ctx, &n, query, args...); err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("listing.count", 0, err))
	}
	return n, nil
}

func (r *Repository) Repoint(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Repoint")
	defer span.End()

	if len(fromIDs) == 0 {
		return 0, nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(listingsTable)
	ub.Set(ub.Assign("canonical_product_id", target))
	ub.Where(fmt.Sprintf("canonical_product_id = ANY(%s)", ub.Var(database.Int64Array(fromIDs))))
	query, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"from":   fromIDs,
		"target": target,
	}).Debug("Repointing listings")

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint listings")
		return 0, tracing.RecordError(span, repositories.Wrap("listing.repoint", target, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("listing.repoint", target, err))
	}
	return n, nil
}
