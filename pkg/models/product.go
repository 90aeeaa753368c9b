package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Attribute keys used by equivalence clustering.
const (
	AttrProductType = "product_type"
	AttrSizeValue   = "size_value"
	AttrSizeUnit    = "size_unit"
)

// Attributes is the free-form attribute map of a canonical product, stored as JSONB.
type Attributes map[string]any

// Get returns the attribute rendered as text, the way postgres ->> renders it.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

type CanonicalProduct struct {
	ID          int64      `json:"id"`
	DisplayName string     `json:"display_name"`
	Brand       *string    `json:"brand,omitempty"`
	Attributes  Attributes `json:"attributes,omitempty"`
	CanonicalOf int64      `json:"canonical_of"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsCanonical reports whether the product is its own canonical entry.
func (p CanonicalProduct) IsCanonical() bool {
	return p.CanonicalOf == p.ID
}

// BrandName returns the brand or "" when absent.
func (p CanonicalProduct) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return *p.Brand
}

func (p CanonicalProduct) Ref() CanonicalRef {
	if p.IsCanonical() {
		return Canonical{ID: p.ID}
	}
	return MergedInto{ID: p.ID, Survivor: p.CanonicalOf}
}

// CanonicalRef is the application view of the canonical_of column:
// either Canonical or MergedInto. Redirects are a single hop.
type CanonicalRef interface {
	ProductID() int64
	// Target is the canonical id this product resolves to.
	Target() int64
	isCanonicalRef()
}

type Canonical struct {
	ID int64
}

func (c Canonical) ProductID() int64 { return c.ID }
func (c Canonical) Target() int64    { return c.ID }
func (Canonical) isCanonicalRef()    {}

type MergedInto struct {
	ID       int64
	Survivor int64
}

func (m MergedInto) ProductID() int64 { return m.ID }
func (m MergedInto) Target() int64    { return m.Survivor }
func (MergedInto) isCanonicalRef()    {}

// RedirectViolation describes one row that breaks the one-hop rule.
type RedirectViolation struct {
	ProductID   int64
	CanonicalOf int64
	Reason      string
}

func (v RedirectViolation) String() string {
	return fmt.Sprintf("product %d -> %d: %s", v.ProductID, v.CanonicalOf, v.Reason)
}

// CheckRedirects returns every product whose canonical_of does not land, in at most
// one hop, on a row that is canonical. Results are ordered by product id.
func CheckRedirects(products []CanonicalProduct) []RedirectViolation {
	byID := make(map[int64]CanonicalProduct, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var violations []RedirectViolation
	for _, p := range products {
		switch ref := p.Ref().(type) {
		case Canonical:
			continue
		case MergedInto:
			target, ok := byID[ref.Survivor]
			switch {
			case !ok:
				violations = append(violations, RedirectViolation{p.ID, p.CanonicalOf, "target does not exist"})
			case !target.IsCanonical():
				violations = append(violations, RedirectViolation{p.ID, p.CanonicalOf, "target is itself merged away"})
			}
		}
	}

	sort.Slice(violations, func(i, j int) bool { return violations[i].ProductID < violations[j].ProductID })
	return violations
}
