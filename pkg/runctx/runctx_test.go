package runctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, GetRunID(ctx))

	again, same := EnsureRunID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, GetRunID(again))
}

func TestFields(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))

	ctx := SetPass(SetSource(SetRunID(context.Background(), "r1"), "shufersal.json"), "color-merge")
	assert.Equal(t, map[string]any{
		"run_id": "r1",
		"source": "shufersal.json",
		"pass":   "color-merge",
	}, Fields(ctx))
}
