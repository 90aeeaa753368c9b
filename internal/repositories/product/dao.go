package product

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

const (
	productsTable = "canonical_products"
	tokensTable   = "canonical_product_tokens"
)

// ProductRow represents the database row for a canonical product
type ProductRow struct {
	ID          sql.NullInt64                     `db:"id" fieldtag:"pk"`
	DisplayName sql.NullString                    `db:"display_name"`
	Brand       sql.NullString                    `db:"brand"`
	Attributes  database.JSONB[models.Attributes] `db:"attributes"`
	CanonicalOf sql.NullInt64                     `db:"canonical_of"`
	CreatedAt   sql.NullTime                      `db:"created_at"`
	UpdatedAt   sql.NullTime                      `db:"updated_at"`
}

var productStruct = database.NewStruct(new(ProductRow))

func ToProduct(row *ProductRow) *models.CanonicalProduct {
	p := &models.CanonicalProduct{
		ID:          row.ID.Int64,
		DisplayName: row.DisplayName.String,
		Attributes:  row.Attributes.Data,
		CanonicalOf: row.CanonicalOf.Int64,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.Brand.Valid {
		brand := row.Brand.String
		p.Brand = &brand
	}
	return p
}

func ToProducts(rows []ProductRow) []models.CanonicalProduct {
	products := make([]models.CanonicalProduct, len(rows))
	for i := range rows {
		products[i] = *ToProduct(&rows[i])
	}
	return products
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
