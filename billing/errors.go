/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All billing error values in one place. Callers branch with errors.Is();
  the API layer maps categories to HTTP statuses through the Is* helpers.

ERROR CATEGORIES:
  1. Not found   - referenced entity does not exist
  2. Client      - invalid input, no state mutated
  3. Conflict    - uniqueness or double-merge violations
  4. Concurrency - optimistic-lock failures, safe to retry
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrObligationNotFound   = errors.New("obligation not found")
	ErrReadingNotFound      = errors.New("reading not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrPlotNotFound         = errors.New("plot not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotAuthorized is returned when an entity exists but is not owned
	// by the calling admin's chain. Handlers must not leak entity contents
	// past this error.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidAmount rejects non-positive payment amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidAgreement marks an agreement whose end precedes its start.
	ErrInvalidAgreement = errors.New("invalid agreement: end before start")

	// ErrObligationExists is returned when an obligation already exists for
	// the same (tenant, month).
	ErrObligationExists = errors.New("obligation already exists for month")

	// ErrReadingAlreadyMerged prevents double-counting a reading that is
	// already merged into an obligation.
	ErrReadingAlreadyMerged = errors.New("reading already merged into an obligation")

	// ErrConcurrentModification is returned when optimistic locking detects
	// a conflicting write.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidAmountError carries the rejected payment amount.
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid payment amount %s: must be positive", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// MergeConflictError carries the obligation a reading is already linked to.
type MergeConflictError struct {
	ReadingID  ReadingID
	MergedInto ObligationID
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("reading %s already merged into obligation %s", e.ReadingID, e.MergedInto)
}

func (e *MergeConflictError) Unwrap() error { return ErrReadingAlreadyMerged }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrObligationNotFound) ||
		errors.Is(err, ErrReadingNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrPlotNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// IsClientError reports invalid input the caller can fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidAgreement)
}

// IsConflict reports uniqueness or double-merge violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrObligationExists) ||
		errors.Is(err, ErrReadingAlreadyMerged)
}

// IsRetryable reports errors that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
