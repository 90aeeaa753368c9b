package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s)

	err := svc.HandleMessage(ctx, &kafka.IncomingMessage{
		Key:     "victory",
		Headers: map[string]string{kafka.HeaderRunID: "run-from-header"},
		Value:   []byte(`[{"product_name":"במבה אסם","price":"4.90","store_id":2,"retailer_item_code":"1001"}]`),
	})
	require.NoError(t, err)

	listing, err := s.Listings().GetByKey(ctx, 2, "1001")
	require.NoError(t, err)
	history, err := svc.PriceHistory(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "run-from-header", history[0].IngestRunID)
}

func TestHandleMessage_UndecodableIsPermanent(t *testing.T) {
	svc := newService(memory.New())
	err := svc.HandleMessage(context.Background(), &kafka.IncomingMessage{Value: []byte("not json")})
	require.Error(t, err)
	assert.True(t, kafka.IsPermanent(err))
}
