package types

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var (
	ErrGroupNotFound = fmt.Errorf("group %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("content item %w", ErrNotFound)
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Provider errors are recorded on the ledger row and never returned by a dispatch.
var (
	ErrProviderNotConfigured = errors.New("provider is not configured")
	ErrProviderFailure       = errors.New("provider failure")
)

// ErrClaimLost means another run already claimed the item.
var ErrClaimLost = errors.New("claim lost")

// ErrStoreFailure marks a failed read or write against the data store.
var ErrStoreFailure = errors.New("store failure")
