// Package repositories holds the PostgreSQL implementation of the catalog store.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ramsey-B/sorrel/pkg/database"
	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

// Wrap classifies a driver error. Constraint and trigger failures become
// IntegrityViolation; everything else is a StoreError that aborts the unit of work.
func Wrap(op string, productID int64, err error) error {
	if err == nil {
		return nil
	}
	if database.IsForeignKeyViolation(err) || database.IsUniqueViolation(err) || database.IsRaisedException(err) {
		return sorrelerrors.WrapIntegrityViolation(op, productID, err)
	}
	return sorrelerrors.NewStoreError(op, err)
}

// NotFound turns sql.ErrNoRows into store.ErrNotFound and wraps anything else.
func NotFound(op, kind string, key any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", kind, key, store.ErrNotFound)
	}
	return Wrap(op, 0, err)
}
