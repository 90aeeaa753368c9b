// Package ingest records retailer listings and their price observations.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	statusMatched = "matched"
	statusCreated = "created"
	statusInvalid = "invalid"
	statusSkipped = "unresolvable"
)

// BatchResult summarizes one committed batch.
type BatchResult struct {
	RunID     string `json:"run_id"`
	Source    string `json:"source"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Created   int    `json:"created"`
	Matched   int    `json:"matched"`
}

type Service struct {
	log      ectologger.Logger
	catalog  store.Catalog
	resolver *resolution.Resolver
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(log ectologger.Logger, catalog store.Catalog, resolver *resolution.Resolver, opts ...Option) *Service {
	s := &Service{
		log:      log,
		catalog:  catalog,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestListing upserts the listing keyed by (storeID, itemCode), pointing it at
// canonicalID, and appends one price observation. It joins the unit of work
// carried by ctx.
func (s *Service) IngestListing(ctx context.Context, canonicalID, storeID int64, itemCode, originalName string, price decimal.Decimal) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Service.IngestListing",
		attribute.Int64("store_id", storeID),
		attribute.String("retailer_item_code", itemCode),
	)
	defer span.End()

	var listingID int64
	err := s.catalog.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		listing, err := s.catalog.Listings().Upsert(ctx, models.ListingUpsert{
			StoreID:            storeID,
			RetailerItemCode:   itemCode,
			CanonicalProductID: canonicalID,
			OriginalName:       originalName,
			SeenAt:             now,
		})
		if err != nil {
			return err
		}
		if _, err := s.catalog.Prices().Append(ctx, listing.ID, price, now, runctx.GetRunID(ctx)); err != nil {
			return err
		}
		listingID = listing.ID
		return nil
	})
	if err != nil {
		return 0, tracing.RecordError(span, err)
	}
	return listingID, nil
}

// IngestFile ingests one retailer batch as a single unit of work. Invalid and
// unresolvable items are skipped; any store error rolls the whole batch back.
func (s *Service) IngestFile(ctx context.Context, batch *models.ListingBatch) (*BatchResult, error) {
	ctx, runID := runctx.EnsureRunID(ctx)
	if batch.Source != "" {
		ctx = runctx.SetSource(ctx, batch.Source)
	}
	ctx, span := tracing.StartSpan(ctx, "ingest.Service.IngestFile",
		attribute.String("run_id", runID),
		attribute.String("source", batch.Source),
		attribute.Int("items", len(batch.Items)),
	)
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(runctx.Fields(ctx))
	log.WithField("items", len(batch.Items)).Info("Ingesting listing batch")

	start := time.Now()
	var result *BatchResult
	err := s.catalog.WithinTx(ctx, func(ctx context.Context) error {
		result = &BatchResult{RunID: runID, Source: batch.Source}
		for i, item := range batch.Items {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := Validate(item); err != nil {
				log.WithError(err).WithField("index", i).Warn("Skipping invalid listing")
				metrics.RecordIngestItem(batch.Source, statusInvalid)
				result.Skipped++
				continue
			}

			name := strings.TrimSpace(item.ProductName)
			res, err := s.resolver.Resolve(ctx, name, brandOf(item.Brand))
			if errors.Is(err, sorrelerrors.ErrUnresolvableProduct) {
				log.WithFields(map[string]any{
					"index":        i,
					"product_name": item.ProductName,
				}).Warn("Skipping unresolvable listing")
				metrics.RecordIngestItem(batch.Source, statusSkipped)
				result.Skipped++
				continue
			}
			if err != nil {
				return err
			}

			if _, err := s.IngestListing(ctx, res.ProductID, item.StoreID, string(item.RetailerItemCode), name, *item.Price); err != nil {
				return err
			}

			result.Processed++
			if res.Created {
				result.Created++
				metrics.RecordIngestItem(batch.Source, statusCreated)
			} else {
				result.Matched++
				metrics.RecordIngestItem(batch.Source, statusMatched)
			}
		}
		return nil
	})
	metrics.RecordIngestBatch(metrics.Status(err), time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).Error("Listing batch rolled back")
		return nil, tracing.RecordError(span, err)
	}

	log.WithFields(map[string]any{
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"created":   result.Created,
		"matched":   result.Matched,
	}).Info("Listing batch committed")
	return result, nil
}

// LatestPrices returns the newest observation of every listing that resolves to canonicalID.
// Listings without observations are left out.
func (s *Service) LatestPrices(ctx context.Context, canonicalID int64) ([]models.ListingPrice, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Service.LatestPrices")
	defer span.End()

	listings, err := s.catalog.Listings().ListByCanonical(ctx, canonicalID)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}

	ids := make([]int64, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	latest, err := s.catalog.Prices().Latest(ctx, ids)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}

	out := make([]models.ListingPrice, 0, len(listings))
	for _, l := range listings {
		if obs, ok := latest[l.ID]; ok {
			out = append(out, models.ListingPrice{Listing: l, Latest: obs})
		}
	}
	return out, nil
}

// PriceHistory returns the observations of one listing ascending by timestamp.
func (s *Service) PriceHistory(ctx context.Context, listingID int64) ([]models.PriceObservation, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Service.PriceHistory")
	defer span.End()

	history, err := s.catalog.Prices().History(ctx, listingID)
	return history, tracing.RecordError(span, err)
}

func brandOf(brand *string) *string {
	if brand == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*brand)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
