package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalProduct_Ref(t *testing.T) {
	canonical := CanonicalProduct{ID: 7, CanonicalOf: 7}
	merged := CanonicalProduct{ID: 9, CanonicalOf: 7}

	assert.Equal(t, Canonical{ID: 7}, canonical.Ref())
	assert.Equal(t, int64(7), canonical.Ref().Target())

	ref, ok := merged.Ref().(MergedInto)
	require.True(t, ok)
	assert.Equal(t, int64(9), ref.ProductID())
	assert.Equal(t, int64(7), ref.Target())
}

func TestCheckRedirects(t *testing.T) {
	products := []CanonicalProduct{
		{ID: 1, CanonicalOf: 1},
		{ID: 2, CanonicalOf: 1},
		{ID: 3, CanonicalOf: 2},  // chain through 2
		{ID: 4, CanonicalOf: 99}, // dangling
		{ID: 5, CanonicalOf: 5},
	}

	violations := CheckRedirects(products)
	require.Len(t, violations, 2)
	assert.Equal(t, int64(3), violations[0].ProductID)
	assert.Equal(t, "target is itself merged away", violations[0].Reason)
	assert.Equal(t, int64(4), violations[1].ProductID)
	assert.Equal(t, "target does not exist", violations[1].Reason)

	assert.Empty(t, CheckRedirects(products[:2]))
}

func TestAttributes_Get(t *testing.T) {
	var attrs Attributes
	require.NoError(t, json.Unmarshal([]byte(`{"size_value": 500, "size_unit": "ml", "weight": 1.5, "missing": null}`), &attrs))

	v, ok := attrs.Get(AttrSizeValue)
	assert.True(t, ok)
	assert.Equal(t, "500", v)

	v, ok = attrs.Get("weight")
	assert.True(t, ok)
	assert.Equal(t, "1.5", v)

	_, ok = attrs.Get("missing")
	assert.False(t, ok)
	_, ok = attrs.Get(AttrProductType)
	assert.False(t, ok)
}

func TestListingBatch_UnmarshalJSON(t *testing.T) {
	t.Run("bare array with numeric item code", func(t *testing.T) {
		var batch ListingBatch
		err := json.Unmarshal([]byte(`[{"product_name":"חלב 3%","price":"6.90","store_id":12,"retailer_item_code":7290000042}]`), &batch)
		require.NoError(t, err)
		require.Len(t, batch.Items, 1)
		assert.Equal(t, ItemCode("7290000042"), batch.Items[0].RetailerItemCode)
		assert.Equal(t, "6.9", batch.Items[0].Price.String())
	})

	t.Run("envelope", func(t *testing.T) {
		var batch ListingBatch
		err := json.Unmarshal([]byte(`{"source":"shufersal.json","items":[{"product_name":"במבה","price":4.5,"store_id":1,"retailer_item_code":"A1","brand":"אסם"}]}`), &batch)
		require.NoError(t, err)
		assert.Equal(t, "shufersal.json", batch.Source)
		require.Len(t, batch.Items, 1)
		assert.Equal(t, "אסם", *batch.Items[0].Brand)
	})
}
