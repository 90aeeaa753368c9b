package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/redis"
)

// RedisLock coordinates maintenance runs across hosts. While held, the lock's
// TTL is extended every half TTL so long passes keep it.
type RedisLock struct {
	locker *redis.Locker
	key    string
	ttl    time.Duration
	wait   time.Duration
	logger ectologger.Logger
}

func NewRedisLock(locker *redis.Locker, key string, ttl, wait time.Duration, logger ectologger.Logger) *RedisLock {
	if key == "" {
		key = "catalog"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{
		locker: locker,
		key:    key,
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (ReleaseFunc, error) {
	held, err := l.locker.TryAcquire(ctx, l.key, l.ttl, l.wait)
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock %q: %w", l.key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := held.Extend(context.Background(), l.ttl); err != nil {
					l.logger.WithError(err).WithField("key", l.key).Warn("Failed to extend catalog lock")
					return
				}
			}
		}
	}()

	var once sync.Once
	var releaseErr error
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
			releaseErr = held.Release(ctx)
		})
		return releaseErr
	}, nil
}
