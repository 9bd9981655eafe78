package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is, and handlers map the kind to an HTTP status.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrTransactionFailed = errors.New("transaction failed")
)

// Error is a domain error with a user-facing message and a kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errors returned by the order and work order services.
var (
	ErrEmptyItems          = newError(ErrValidation, "at least one item is required")
	ErrInvalidQuantity     = newError(ErrValidation, "quantity must be between 1 and 9999")
	ErrInvalidItemID       = newError(ErrValidation, "item id must be a positive integer")
	ErrInvalidUnitPrice    = newError(ErrValidation, "unit price must be a number greater than 0")
	ErrInvalidTaxRate      = newError(ErrValidation, "tax rate must be between 0 and 1")
	ErrInvalidSalePrice    = newError(ErrValidation, "client sale price must be a non-negative number")
	ErrDescriptionRequired = newError(ErrValidation, "item description is required")
	ErrClientNameRequired  = newError(ErrValidation, "client name is required")
	ErrCustomerRequired    = newError(ErrValidation, "customer name and phone are required")
	ErrInvalidStatus       = newError(ErrValidation, "invalid status")
	ErrInvalidVehicleYear  = newError(ErrValidation, "vehicle year is out of range")
	ErrInvalidOdometer     = newError(ErrValidation, "vehicle odometer must not be negative")
	ErrAmountTooLarge      = newError(ErrValidation, "total exceeds 99999999.99")

	ErrItemNotFound      = newError(ErrNotFound, "menu item not found")
	ErrOrderNotFound     = newError(ErrNotFound, "order not found")
	ErrWorkOrderNotFound = newError(ErrNotFound, "work order not found")

	ErrItemUnavailable = newError(ErrConflict, "menu item is not available")

	ErrPrincipalRequired = newError(ErrUnauthenticated, "authentication required")
)

// txFailed marks a datastore failure inside a write transaction.
func txFailed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransactionFailed, err)
}
