package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

func TestReindex(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p, err := s.Products().Create(ctx, store.NewProduct{DisplayName: "קפה עלית טורקי"}, features.NewTokenSet("stale"))
	require.NoError(t, err)

	n, err := newResolver(s).Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale, err := s.Products().FindCandidates(ctx, features.NewTokenSet("stale"))
	require.NoError(t, err)
	assert.Empty(t, stale)

	found, err := s.Products().FindCandidates(ctx, features.NewTokenSet("טורקי"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)
}
