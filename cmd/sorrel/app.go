package main

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/internal/repositories/catalog"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/events"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/lock"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/redis"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/startup"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const redisLockPrefix = "sorrel:lock:"

// app holds the dependencies one command run needs.
type app struct {
	cfg      *config.Config
	log      ectologger.Logger
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	catalog  *catalog.Catalog
	emitter  *events.Emitter
	scorer   *matching.Scorer

	deps    *startup.Startup
	closers []func(context.Context) error
}

type appOptions struct {
	// maintenance commands coordinate through Redis and announce changes
	maintenance bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{File: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}

	log, syncLog, err := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error {
		_ = syncLog()
		return nil
	})

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing(), log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	a.deps = startup.NewStartup(log, cfg.StartupMaxAttempts)
	a.deps.AddDependency(&startup.Dependency{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			db, err := database.Open(ctx, cfg.Database(), log)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		StopFn: func(context.Context) error { return a.db.Close() },
	})
	if opts.maintenance && cfg.RedisEnabled {
		a.deps.AddDependency(&startup.Dependency{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, cfg.Redis(), log)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFn: func(context.Context) error { return a.redis.Close() },
		})
	}
	if opts.maintenance && cfg.KafkaOutputTopic != "" {
		a.deps.AddDependency(&startup.Dependency{
			Name: "kafka-producer",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(cfg.Producer(), log)
				return nil
			},
			StopFn: func(context.Context) error { return a.producer.Close() },
		})
	}
	if err := a.deps.Start(ctx); err != nil {
		a.close(context.WithoutCancel(ctx))
		return nil, err
	}

	catalogOpts := []catalog.Option{catalog.WithLockKey(cfg.CatalogLockKey)}
	if a.redis != nil {
		coordinator := lock.NewRedisLock(redis.NewLocker(a.redis, redisLockPrefix),
			cfg.CatalogLockRedisKey, cfg.CatalogLockTTL, cfg.CatalogLockWait, log)
		catalogOpts = append(catalogOpts, catalog.WithCoordinator(coordinator))
	}
	a.catalog = catalog.New(a.db, log, catalogOpts...)
	a.scorer = matching.NewScorer(cfg.MatchThreshold, cfg.BrandKeywordList())

	var publisher events.Publisher
	if a.producer != nil {
		publisher = a.producer
	}
	a.emitter = events.NewEmitter(publisher, log)
	return a, nil
}

func (a *app) resolver() *resolution.Resolver {
	return resolution.NewResolver(a.log, a.catalog, a.scorer)
}

// announce publishes a catalog.changed event. A publish failure is logged
// only; the pass itself has already committed.
func (a *app) announce(ctx context.Context, pass string, rows int64, details any) {
	if err := a.emitter.EmitCatalogChanged(ctx, pass, rows, details); err != nil {
		a.log.WithContext(ctx).WithError(err).Warn("Catalog change was committed but not announced")
	}
}

func (a *app) close(ctx context.Context) {
	var errs []error
	if a.deps != nil {
		errs = append(errs, a.deps.Stop(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.WithError(err).Warn("Shutdown finished with errors")
	}
}

// withApp wraps a command body with app setup and teardown.
func withApp(cmd *cobra.Command, opts appOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}
