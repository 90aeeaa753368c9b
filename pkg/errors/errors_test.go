package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
)

func TestStoreError_UnwrapsDriverError(t *testing.T) {
	driverErr := errors.New("connection reset")
	err := fmt.Errorf("ingest file: %w", NewStoreError("listing.upsert", driverErr))

	assert.True(t, IsStoreError(err))
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "store listing.upsert: connection reset")
}

func TestIntegrityViolation_Message(t *testing.T) {
	err := NewIntegrityViolation("dedup.delete", 42, "product still referenced by %d listings", 3)

	assert.True(t, IsIntegrityViolation(err))
	assert.False(t, IsStoreError(err))
	assert.Equal(t, "integrity violation in dedup.delete (product 42): product still referenced by 3 listings", err.Error())
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unresolvable", fmt.Errorf("item 3: %w", ErrUnresolvableProduct), http.StatusUnprocessableEntity},
		{"store", NewStoreError("product.create", errors.New("timeout")), http.StatusServiceUnavailable},
		{"integrity", NewIntegrityViolation("merge", 1, "dangling"), http.StatusConflict},
		{"http passthrough", httperror.NewHTTPError(http.StatusNotFound, "missing"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := ToHTTPError(tt.err)
			assert.Equal(t, tt.code, httperror.GetStatusCode(httpErr))
		})
	}

	assert.Nil(t, ToHTTPError(nil))
}
