package resolution

import (
	"context"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const passReindex = "reindex"

// Reindex rebuilds the token index of every row from its current display name.
// Run it after the extractor changes.
func (r *Resolver) Reindex(ctx context.Context) (int, error) {
	ctx = runctx.SetPass(ctx, passReindex)
	ctx, span := tracing.StartSpan(ctx, "resolution.Resolver.Reindex")
	defer span.End()

	var n int
	err := r.catalog.WithinTx(ctx, func(ctx context.Context) error {
		products, err := r.catalog.Products().ListAll(ctx)
		if err != nil {
			return err
		}
		n = 0
		for _, p := range products {
			if err := r.catalog.Products().ReplaceTokens(ctx, p.ID, features.Extract(p.DisplayName)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		metrics.RecordMaintenancePass(passReindex, metrics.Status(err), 0)
		return 0, tracing.RecordError(span, err)
	}

	metrics.RecordMaintenancePass(passReindex, metrics.Status(nil), int64(n))
	r.log.WithContext(ctx).WithField("products", n).Info("Token index rebuilt")
	return n, nil
}
