package models

import "time"

// GroupKey is the equivalence key of a comparison group.
type GroupKey struct {
	Brand       string `json:"brand"` // lower-cased
	ProductType string `json:"product_type"`
	SizeValue   string `json:"size_value"`
	SizeUnit    string `json:"size_unit"`
}

func (k GroupKey) Less(other GroupKey) bool {
	if k.Brand != other.Brand {
		return k.Brand < other.Brand
	}
	if k.ProductType != other.ProductType {
		return k.ProductType < other.ProductType
	}
	if k.SizeValue != other.SizeValue {
		return k.SizeValue < other.SizeValue
	}
	return k.SizeUnit < other.SizeUnit
}

type ComparisonGroup struct {
	ID         int64     `json:"id"`
	Key        GroupKey  `json:"key"`
	ProductIDs []int64   `json:"product_ids"`
	CreatedAt  time.Time `json:"created_at"`
}
