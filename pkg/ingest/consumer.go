package ingest

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
)

// HandleMessage ingests one Kafka message carrying a whole listing batch.
// Undecodable payloads are permanent failures; store failures are retried by
// the consumer.
func (s *Service) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	batch, err := DecodeBatch(msg.Value)
	if err != nil {
		return kafka.Permanent(fmt.Errorf("decode batch at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err))
	}
	if batch.Source == "" {
		batch.Source = msg.Source()
	}
	if runID := msg.Headers[kafka.HeaderRunID]; runID != "" {
		ctx = runctx.SetRunID(ctx, runID)
	}

	_, err = s.IngestFile(ctx, batch)
	return err
}
