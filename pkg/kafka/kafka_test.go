package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func messages(n int) []kafka.Message {
	out := make([]kafka.Message, n)
	for i := range out {
		out[i] = kafka.Message{
			Topic:   "listings",
			Offset:  int64(i),
			Key:     []byte("shufersal"),
			Headers: []kafka.Header{{Key: HeaderRunID, Value: []byte("run")}},
		}
	}
	return out
}

func TestConsumer_CommitsAfterSuccess(t *testing.T) {
	reader := &fakeReader{messages: messages(3)}
	var seen []int64
	c := newConsumer(reader, ConsumerConfig{Topic: "listings"}, nopLogger(), func(_ context.Context, msg *IncomingMessage) error {
		seen = append(seen, msg.Offset)
		assert.Equal(t, "shufersal", msg.Source())
		assert.Equal(t, "run", msg.Headers[HeaderRunID])
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())

	assert.Equal(t, []int64{0, 1, 2}, seen)
	assert.Equal(t, []int64{0, 1, 2}, reader.commits())
	assert.NoError(t, c.Err())
}

func TestConsumer_PermanentErrorIsCommitted(t *testing.T) {
	reader := &fakeReader{messages: messages(2)}
	calls := 0
	c := newConsumer(reader, ConsumerConfig{MaxAttempts: 3}, nopLogger(), func(_ context.Context, msg *IncomingMessage) error {
		calls++
		if msg.Offset == 0 {
			return Permanent(errors.New("invalid json"))
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())
	assert.Equal(t, 2, calls, "permanent errors are not retried")
}

func TestConsumer_StopsWithoutCommittingOnFailure(t *testing.T) {
	reader := &fakeReader{messages: messages(2)}
	calls := 0
	boom := errors.New("database unavailable")
	c := newConsumer(reader, ConsumerConfig{MaxAttempts: 2, RetryBackoff: time.Millisecond}, nopLogger(), func(context.Context, *IncomingMessage) error {
		calls++
		return boom
	})

	require.NoError(t, c.Start(context.Background()))
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	require.NoError(t, c.Stop())

	assert.ErrorIs(t, c.Err(), boom)
	assert.Equal(t, 2, calls)
	assert.Empty(t, reader.commits(), "the failed message and everything after it stay uncommitted")
}

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "catalog-events", nopLogger())

	err := p.Publish(context.Background(), "dedup", map[string]int{"rows": 3}, map[string]string{HeaderEventType: "catalog.changed"})
	require.NoError(t, err)
	require.Len(t, w.written, 1)

	msg := w.written[0]
	assert.Equal(t, "catalog-events", msg.Topic)
	assert.Equal(t, "dedup", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: HeaderEventType, Value: []byte("catalog.changed")}}, msg.Headers)

	var body map[string]int
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, 3, body["rows"])

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "dedup", 1, nil))
}
