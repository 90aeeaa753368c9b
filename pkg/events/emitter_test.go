package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/runctx"
)

type published struct {
	key     string
	value   any
	headers map[string]string
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, value any, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, value: value, headers: headers})
	return nil
}

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestEmitCatalogChanged(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, nopLogger())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	ctx := runctx.SetRunID(context.Background(), "run-7")
	require.NoError(t, e.EmitCatalogChanged(ctx, "consolidate", 4, map[string]int{"groups": 2}))
	require.NoError(t, e.EmitCatalogChanged(ctx, "cluster", 0, nil))

	require.Len(t, pub.sent, 1, "passes without changes are not announced")
	msg := pub.sent[0]
	assert.Equal(t, "consolidate", msg.key)
	assert.Equal(t, "run-7", msg.headers["run_id"])
	assert.Equal(t, CatalogChanged{
		EventType:     EventTypeCatalogChanged,
		SchemaVersion: SchemaVersion,
		Timestamp:     now,
		RunID:         "run-7",
		Pass:          "consolidate",
		Rows:          4,
		Details:       map[string]int{"groups": 2},
	}, msg.value)
}

func TestEmitCatalogChanged_Disabled(t *testing.T) {
	e := NewEmitter(nil, nopLogger())
	assert.False(t, e.Enabled())
	assert.NoError(t, e.EmitCatalogChanged(context.Background(), "dedup", 10, nil))
}

func TestEmitCatalogChanged_PublishError(t *testing.T) {
	e := NewEmitter(&fakePublisher{err: errors.New("broker down")}, nopLogger())
	assert.Error(t, e.EmitCatalogChanged(context.Background(), "dedup", 1, nil))
}
