package price

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/sorrel/internal/repositories"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const insertPriceSQL = `
INSERT INTO price_observations (listing_id, price, observed_at, ingest_run_id)
VALUES ($1, $2, $3, $4)
RETURNING id, listing_id, price, observed_at, ingest_run_id`

// Repository implements store.PriceRepository. Observations are append-only.
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

var _ store.PriceRepository = (*Repository)(nil)

func (r *Repository) Append(ctx context.Context, listingID int64, price decimal.Decimal, observedAt time.Time, runID string) (*models.PriceObservation, error) {
	ctx, span := tracing.StartSpan(ctx, "PriceRepository.Append")
	defer span.End()

	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	var row PriceRow
	err := database.Conn(ctx, r.db).GetContext(ctx, &row, insertPriceSQL,
		listingID, price.Round(2), observedAt, sql.NullString{String: runID, Valid: runID != ""})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("listing_id", listingID).Error("Failed to append price observation")
		return nil, tracing.RecordError(span, repositories.Wrap("price.append", 0, err))
	}
	return ToObservation(&row), nil
}

func (r *Repository) History(ctx context.Context, listingID int64) ([]models.PriceObservation, error) {
	ctx, span := tracing.StartSpan(ctx, "PriceRepository.History")
	defer span.End()

	sb := priceStruct.SelectFrom(pricesTable)
	sb.Where(sb.Equal("listing_id", listingID))
	sb.OrderBy("observed_at", "id").Asc()
	query, args := sb.Build()

	var rows []PriceRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, tracing.RecordError(span, repositories.Wrap("price.history", 0, err))
	}

	history := make([]models.PriceObservation, len(rows))
	for i := range rows {
		history[i] = *ToObservation(&rows[i])
	}
	return history, nil
}

func (r *Repository) Latest(ctx context.Context, listingIDs []int64) (map[int64]models.PriceObservation, error) {
	ctx, span := tracing.StartSpan(ctx, "PriceRepository.Latest")
	defer span.End()

	latest := make(map[int64]models.PriceObservation, len(listingIDs))
	if len(listingIDs) == 0 {
		return latest, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("DISTINCT ON (listing_id) id", "listing_id", "price", "observed_at", "ingest_run_id").From(pricesTable)
	sb.Where(fmt.Sprintf("listing_id = ANY(%s)", sb.Var(database.Int64Array(listingIDs))))
	sb.OrderBy("listing_id", "observed_at DESC", "id DESC")
	query, args := sb.Build()

	var rows []PriceRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, tracing.RecordError(span, repositories.Wrap("price.latest", 0, err))
	}
	for i := range rows {
		obs := ToObservation(&rows[i])
		latest[obs.ListingID] = *obs
	}
	return latest, nil
}
