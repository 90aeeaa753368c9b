package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
)

// ErrUnresolvableProduct is returned when a product name yields no tokens.
// Callers skip the item and continue the batch.
var ErrUnresolvableProduct = errors.New("unresolvable product: name has no matchable tokens")

// StoreError is a failed round trip to the catalog store. It aborts the unit of work in flight.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusServiceUnavailable, e.Error()).AddMetaValue("op", e.Op)
}

// IntegrityViolation means a write would leave a dangling reference or a redirect chain.
type IntegrityViolation struct {
	Op        string
	ProductID int64
	Message   string
	Err       error
}

func NewIntegrityViolation(op string, productID int64, format string, args ...any) *IntegrityViolation {
	return &IntegrityViolation{
		Op:        op,
		ProductID: productID,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrapIntegrityViolation keeps the driver error that reported the violation.
func WrapIntegrityViolation(op string, productID int64, err error) *IntegrityViolation {
	return &IntegrityViolation{
		Op:        op,
		ProductID: productID,
		Message:   err.Error(),
		Err:       err,
	}
}

func (e *IntegrityViolation) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf("integrity violation in %s (product %d): %s", e.Op, e.ProductID, e.Message)
	}
	return fmt.Sprintf("integrity violation in %s: %s", e.Op, e.Message)
}

func (e *IntegrityViolation) Unwrap() error {
	return e.Err
}

func (e *IntegrityViolation) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error()).
		AddMetaValue("op", e.Op).
		AddMetaValue("product_id", strconv.FormatInt(e.ProductID, 10))
}

func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

func IsIntegrityViolation(err error) bool {
	var violation *IntegrityViolation
	return errors.As(err, &violation)
}

// ToHTTPError maps engine errors onto status-coded errors for consumers that surface them.
func ToHTTPError(err error) *httperror.HTTPError {
	if err == nil {
		return nil
	}

	var violation *IntegrityViolation
	if errors.As(err, &violation) {
		return violation.ToHTTPError()
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.ToHTTPError()
	}

	if errors.Is(err, ErrUnresolvableProduct) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if httperror.IsHTTPError(err) {
		return httperror.NewHTTPError(httperror.GetStatusCode(err), err.Error())
	}

	return httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
}
