// Package lock provides the exclusive catalog writer lock taken by every ingest
// and maintenance unit of work.
package lock

import (
	"context"
)

// DefaultKey is the advisory lock key of the catalog ("sorrel" in ASCII).
const DefaultKey int64 = 0x736f7272656c

// ReleaseFunc gives the lock back. Calling it more than once is harmless.
type ReleaseFunc func(ctx context.Context) error

type CatalogLock interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context) (ReleaseFunc, error)
}

func noopRelease(context.Context) error { return nil }
