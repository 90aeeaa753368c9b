package listing

import (
	"database/sql"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

const listingsTable = "retailer_listings"

// ListingRow represents the database row for a retailer listing
type ListingRow struct {
	ID                 sql.NullInt64  `db:"id"`
	StoreID            sql.NullInt64  `db:"store_id"`
	RetailerItemCode   sql.NullString `db:"retailer_item_code"`
	CanonicalProductID sql.NullInt64  `db:"canonical_product_id"`
	OriginalName       sql.NullString `db:"original_name"`
	FirstSeenAt        sql.NullTime   `db:"first_seen_at"`
	LastSeenAt         sql.NullTime   `db:"last_seen_at"`
}

var listingStruct = database.NewStruct(new(ListingRow))

func ToListing(row *ListingRow) *models.RetailerListing {
	return &models.RetailerListing{
		ID:                 row.ID.Int64,
		StoreID:            row.StoreID.Int64,
		RetailerItemCode:   row.RetailerItemCode.String,
		CanonicalProductID: row.CanonicalProductID.Int64,
		OriginalName:       row.OriginalName.String,
		FirstSeenAt:        row.FirstSeenAt.Time,
		LastSeenAt:         row.LastSeenAt.Time,
	}
}

func ToListings(rows []ListingRow) []models.RetailerListing {
	listings := make([]models.RetailerListing, len(rows))
	for i := range rows {
		listings[i] = *ToListing(&rows[i])
	}
	return listings
}
