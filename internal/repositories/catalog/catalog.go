// Package catalog assembles the PostgreSQL repositories into a store.Catalog.
package catalog

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/internal/repositories"
	"github.com/Ramsey-B/sorrel/internal/repositories/group"
	"github.com/Ramsey-B/sorrel/internal/repositories/listing"
	"github.com/Ramsey-B/sorrel/internal/repositories/price"
	"github.com/Ramsey-B/sorrel/internal/repositories/product"
	"github.com/Ramsey-B/sorrel/pkg/database"
	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/lock"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

type Catalog struct {
	db          database.DB
	logger      ectologger.Logger
	writerLock  lock.CatalogLock
	coordinator lock.CatalogLock

	products *product.Repository
	listings *listing.Repository
	prices   *price.Repository
	groups   *group.Repository
}

type Option func(*Catalog)

// WithLockKey changes the advisory lock key, for deployments sharing one database.
func WithLockKey(key int64) Option {
	return func(c *Catalog) {
		c.writerLock = lock.NewAdvisoryLock(key)
	}
}

// WithCoordinator adds a cross-host lock taken before the transaction opens.
func WithCoordinator(l lock.CatalogLock) Option {
	return func(c *Catalog) {
		c.coordinator = l
	}
}

func New(db database.DB, logger ectologger.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		db:         db,
		logger:     logger,
		writerLock: lock.NewAdvisoryLock(lock.DefaultKey),
		products:   product.NewRepository(db, logger),
		listings:   listing.NewRepository(db, logger),
		prices:     price.NewRepository(db, logger),
		groups:     group.NewRepository(db, logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ store.Catalog = (*Catalog)(nil)

// WithinTx runs fn in one transaction whose first statement takes the catalog
// writer lock. A call made inside fn joins the outer transaction.
func (c *Catalog) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if database.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracing.StartSpan(ctx, "Catalog.WithinTx")
	defer span.End()

	if c.coordinator != nil {
		release, err := c.coordinator.Acquire(ctx)
		if err != nil {
			return tracing.RecordError(span, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				c.logger.WithContext(ctx).WithError(err).Warn("Failed to release catalog coordinator lock")
			}
		}()
	}

	err := c.db.WithTx(ctx, nil, func(ctx context.Context) error {
		if _, err := c.writerLock.Acquire(ctx); err != nil {
			return err
		}
		if err := fn(ctx); err != nil {
			return err
		}
		// a cancelled unit of work never commits
		return ctx.Err()
	})
	// deferred constraints only fire at commit
	if database.IsForeignKeyViolation(err) && !sorrelerrors.IsIntegrityViolation(err) {
		err = repositories.Wrap("catalog.commit", 0, err)
	}
	return tracing.RecordError(span, err)
}

func (c *Catalog) Products() store.ProductRepository { return c.products }
func (c *Catalog) Listings() store.ListingRepository { return c.listings }
func (c *Catalog) Prices() store.PriceRepository     { return c.prices }
func (c *Catalog) Groups() store.GroupRepository     { return c.groups }
