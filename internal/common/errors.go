package common

import (
	"errors"
	"fmt"
)

// Error classes shared by the valuation and ledger paths. Callers classify
// failures with errors.Is; concrete errors wrap one of these.
var (
	// ErrConfiguration reports missing identifiers or credentials. It is
	// raised before any network call is made.
	ErrConfiguration = errors.New("configuration error")

	// ErrRateUnavailable reports that a price or FX provider returned no
	// usable value.
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrUpstream reports a non-success response from the document store
	// or an external provider.
	ErrUpstream = errors.New("upstream request failed")

	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput reports a malformed request parameter or body.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict reports a write that would duplicate an existing record.
	ErrConflict = errors.New("conflict")
)

// DuplicateError is returned when a record with the same external id exists.
type DuplicateError struct {
	ExternalID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate record: external id %s", e.ExternalID)
}

func (e *DuplicateError) Unwrap() error { return ErrConflict }
