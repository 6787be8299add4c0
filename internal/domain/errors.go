package domain

import "errors"

var (
	// ErrPrecondition marks a malformed or impossible transition input.
	// It aborts the whole order mutation so no partial ledger update
	// is committed.
	ErrPrecondition = errors.New("precondition failed")

	// ErrUnauthorized rejects a subscription join across tenants.
	ErrUnauthorized = errors.New("unauthorized")

	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)
