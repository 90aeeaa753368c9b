package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// MessageHandler processes one incoming message. The offset is committed only
// after it returns nil or a Permanent error.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	// MaxAttempts bounds handler retries of one message before the consumer stops.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Consumer reads listing batches one message at a time.
type Consumer struct {
	reader  messageReader
	topic   string
	logger  ectologger.Logger
	handler MessageHandler

	maxAttempts  int
	retryBackoff time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    50e6, // one message is one retailer file
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(reader, cfg, logger, handler)
}

func newConsumer(reader messageReader, cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Consumer{
		reader:       reader,
		topic:        cfg.Topic,
		logger:       logger,
		handler:      handler,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		done:         make(chan struct{}),
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.WithContext(ctx).WithField("topic", c.topic).Info("Kafka consumer started")
	return nil
}

// Done is closed when the consume loop exits.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the consume loop, if any.
func (c *Consumer) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.logger.WithContext(ctx).Info("Consumer loop stopping")
				return
			}
			c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.err = err
			return
		}
	}
}

// processMessage returns an error only when the consumer must stop: a later
// commit would otherwise move the group offset past an unprocessed message.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Consumer.processMessage")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})
	incoming := newIncomingMessage(msg)

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.handler(ctx, incoming)
		if err == nil || IsPermanent(err) || ctx.Err() != nil {
			break
		}
		log.WithError(err).Warnf("Failed to process message (attempt %d/%d)", attempt, c.maxAttempts)
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	switch {
	case err == nil:
		metrics.RecordKafkaConsume(msg.Topic, "success")
	case IsPermanent(err):
		metrics.RecordKafkaConsume(msg.Topic, "skipped")
		log.WithError(err).Error("Dropping message that cannot be processed")
	default:
		metrics.RecordKafkaConsume(msg.Topic, "error")
		log.WithError(err).Error("Failed to process message (not committing)")
		return tracing.RecordError(span, fmt.Errorf("message %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err))
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit message")
		return tracing.RecordError(span, err)
	}
	return nil
}
