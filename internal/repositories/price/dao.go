package price

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

const pricesTable = "price_observations"

// PriceRow represents the database row for a price observation
type PriceRow struct {
	ID          sql.NullInt64   `db:"id"`
	ListingID   sql.NullInt64   `db:"listing_id"`
	Price       decimal.Decimal `db:"price"`
	ObservedAt  sql.NullTime    `db:"observed_at"`
	IngestRunID sql.NullString  `db:"ingest_run_id"`
}

var priceStruct = database.NewStruct(new(PriceRow))

func ToObservation(row *PriceRow) *models.PriceObservation {
	return &models.PriceObservation{
		ID:          row.ID.Int64,
		ListingID:   row.ListingID.Int64,
		Price:       row.Price,
		ObservedAt:  row.ObservedAt.Time,
		IngestRunID: row.IngestRunID.String,
	}
}
