package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RetailerListing struct {
	ID                 int64     `json:"id"`
	StoreID            int64     `json:"store_id"`
	RetailerItemCode   string    `json:"retailer_item_code"`
	CanonicalProductID int64     `json:"canonical_product_id"`
	OriginalName       string    `json:"original_name"`
	FirstSeenAt        time.Time `json:"first_seen_at"`
	LastSeenAt         time.Time `json:"last_seen_at"`
}

// ListingUpsert is the write side of a listing, keyed by (StoreID, RetailerItemCode).
type ListingUpsert struct {
	StoreID            int64
	RetailerItemCode   string
	CanonicalProductID int64
	OriginalName       string
	SeenAt             time.Time
}

// PriceObservation is immutable once written.
type PriceObservation struct {
	ID          int64           `json:"id"`
	ListingID   int64           `json:"listing_id"`
	Price       decimal.Decimal `json:"price"`
	ObservedAt  time.Time       `json:"observed_at"`
	IngestRunID string          `json:"ingest_run_id,omitempty"`
}

// ListingPrice pairs a listing with its latest observation.
type ListingPrice struct {
	Listing RetailerListing  `json:"listing"`
	Latest  PriceObservation `json:"latest"`
}
