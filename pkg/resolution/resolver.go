// Package resolution decides whether an incoming product name denotes a product
// already in the catalog, creating a canonical product when it does not.
package resolution

import (
	"context"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	OutcomeMatched      = "matched"
	OutcomeCreated      = "created"
	OutcomeUnresolvable = "unresolvable"
)

// Resolution is the outcome of resolving one name.
type Resolution struct {
	ProductID int64
	Created   bool
	// Score of the winning candidate; zero when a product was created.
	Score float64
}

type Resolver struct {
	log     ectologger.Logger
	catalog store.Catalog
	scorer  *matching.Scorer
}

func NewResolver(log ectologger.Logger, catalog store.Catalog, scorer *matching.Scorer) *Resolver {
	if scorer == nil {
		scorer = matching.NewScorer(0, nil)
	}
	return &Resolver{
		log:     log,
		catalog: catalog,
		scorer:  scorer,
	}
}

// Resolve returns the canonical product named by name. Candidates sharing a
// token are scored in ascending id order and only a strictly better score
// replaces the current best, so ties keep the lowest id. When nothing is
// eligible a canonical product is inserted. Resolve joins the unit of work
// carried by ctx and opens one when there is none.
func (r *Resolver) Resolve(ctx context.Context, name string, brand *string) (*Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Resolver.Resolve")
	defer span.End()

	tokens := features.Extract(name)
	if tokens.Len() == 0 {
		metrics.RecordResolution(OutcomeUnresolvable, 0)
		return nil, tracing.RecordError(span, sorrelerrors.ErrUnresolvableProduct)
	}

	var res *Resolution
	err := r.catalog.WithinTx(ctx, func(ctx context.Context) error {
		candidates, err := r.catalog.Products().FindCandidates(ctx, tokens)
		if err != nil {
			return err
		}

		var (
			bestID    int64
			bestScore float64
		)
		for _, c := range candidates {
			score, ok := r.scorer.Eligible(tokens, features.Extract(c.DisplayName))
			if ok && (bestID == 0 || score > bestScore) {
				bestID, bestScore = c.ID, score
			}
		}

		if bestID != 0 {
			metrics.RecordResolution(OutcomeMatched, len(candidates))
			res = &Resolution{ProductID: bestID, Score: bestScore}
			return nil
		}

		created, err := r.catalog.Products().Create(ctx, store.NewProduct{DisplayName: name, Brand: brand}, tokens)
		if err != nil {
			return err
		}
		metrics.RecordResolution(OutcomeCreated, len(candidates))
		res = &Resolution{ProductID: created.ID, Created: true}
		return nil
	})
	if err != nil {
		r.log.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to resolve product name")
		return nil, tracing.RecordError(span, err)
	}

	span.SetAttributes(
		attribute.Int64("product_id", res.ProductID),
		attribute.Bool("created", res.Created),
	)
	r.log.WithContext(ctx).WithFields(map[string]any{
		"name":       name,
		"product_id": res.ProductID,
		"created":    res.Created,
		"score":      res.Score,
	}).Debug("Resolved product name")

	return res, nil
}
