package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemCode accepts retailer item codes written as JSON strings or numbers.
type ItemCode string

func (c *ItemCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ItemCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("retailer_item_code: %w", err)
	}
	*c = ItemCode(n.String())
	return nil
}

// RawListing is one scraped item as produced by a retailer scraper.
type RawListing struct {
	ProductName      string           `json:"product_name" validate:"required"`
	Brand            *string          `json:"brand,omitempty"`
	Price            *decimal.Decimal `json:"price" validate:"required,gt=0"`
	StoreID          int64            `json:"store_id" validate:"required"`
	RetailerItemCode ItemCode         `json:"retailer_item_code" validate:"required"`
}

// ListingBatch is one retailer file: the unit of work for ingestion.
type ListingBatch struct {
	Source string       `json:"source,omitempty"`
	Items  []RawListing `json:"items"`
}

// UnmarshalJSON accepts either the envelope form or a bare array of items.
func (b *ListingBatch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &b.Items)
	}
	type envelope ListingBatch
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*b = ListingBatch(env)
	return nil
}
