// Package events publishes catalog change notifications for downstream readers.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const EventTypeCatalogChanged = "catalog.changed"

// CatalogChanged tells readers that canonical rows, redirects or groups moved
// and cached views should be refreshed.
type CatalogChanged struct {
	EventType     string    `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id,omitempty"`
	Pass          string    `json:"pass"`
	Rows          int64     `json:"rows"`
	Details       any       `json:"details,omitempty"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, value any, headers map[string]string) error
}

type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter returns an emitter; a nil publisher turns every emit into a no-op.
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.publisher != nil
}

// EmitCatalogChanged publishes one event for a committed maintenance pass.
// Passes that changed nothing are not announced.
func (e *Emitter) EmitCatalogChanged(ctx context.Context, pass string, rows int64, details any) error {
	if !e.Enabled() || rows == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCatalogChanged")
	defer span.End()

	event := CatalogChanged{
		EventType:     EventTypeCatalogChanged,
		SchemaVersion: SchemaVersion,
		Timestamp:     e.now(),
		RunID:         runctx.GetRunID(ctx),
		Pass:          pass,
		Rows:          rows,
		Details:       details,
	}
	headers := map[string]string{
		kafka.HeaderEventType:     EventTypeCatalogChanged,
		kafka.HeaderSchemaVersion: SchemaVersion,
	}
	if event.RunID != "" {
		headers[kafka.HeaderRunID] = event.RunID
	}

	if err := e.publisher.Publish(ctx, pass, event, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("pass", pass).Error("Failed to emit catalog.changed event")
		return tracing.RecordError(span, err)
	}
	return nil
}
