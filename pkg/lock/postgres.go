package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

var ErrNoTransaction = errors.New("advisory lock requires a transaction in context")

// AdvisoryLock takes pg_advisory_xact_lock on the transaction carried by ctx.
// Postgres releases it at commit or rollback.
type AdvisoryLock struct {
	key int64
}

func NewAdvisoryLock(key int64) *AdvisoryLock {
	if key == 0 {
		key = DefaultKey
	}
	return &AdvisoryLock{key: key}
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (ReleaseFunc, error) {
	ctx, span := tracing.StartSpan(ctx, "lock.AdvisoryLock.Acquire")
	defer span.End()

	tx := database.TxFromContext(ctx)
	if tx == nil {
		return nil, ErrNoTransaction
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", l.key); err != nil {
		return nil, tracing.RecordError(span, fmt.Errorf("acquire catalog advisory lock %d: %w", l.key, err))
	}
	return noopRelease, nil
}
