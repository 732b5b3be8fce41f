package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned by mutating operations called
	// without a signed-in tenant session.
	ErrUnauthenticated = errors.New("no authenticated tenant session")

	// ErrInvalidState means the stored transaction kind does not match
	// the operation (e.g. an entry operation on a stored expense).
	ErrInvalidState = errors.New("transaction kind does not match operation")

	ErrNotFound = errors.New("transaction not found")

	// ErrConflict is returned when an update carries a version that no
	// longer matches the stored transaction.
	ErrConflict = errors.New("transaction was modified by another session")

	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidTipo        = errors.New("invalid transaction kind")
	ErrEmptyTenant        = errors.New("empty tenant id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyPaymentMethod = errors.New("empty payment method")
	ErrMissingMember      = errors.New("tithe entry requires a member")
	ErrEmptyMemberName    = errors.New("empty member name")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// SchemaError reports a persisted row that cannot be decoded into a
// domain entity. Rows are never silently defaulted into shape.
type SchemaError struct {
	Entity string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("decode %s: field %s: %s", e.Entity, e.Field, e.Reason)
}

// PersistenceError wraps a backend failure. The ledger performs no
// automatic retry; callers decide whether repeating the operation is
// safe (creates without an idempotency key are not).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
