// ============================================================================
// backend/internal/shared/errors.go
// Domain error taxonomy shared by all services
// ============================================================================

package shared

import "errors"

// Sentinel errors. Services wrap these with context via fmt.Errorf("%w: ...")
// and the gateway maps them to HTTP statuses in one place.
var (
	// ErrValidation covers count invariants, out-of-range semesters and
	// malformed dimension fields. Raised before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateQueueItem: an identical (stream, semester, subject) is
	// already awaiting attendance in the teacher's queue.
	ErrDuplicateQueueItem = errors.New("class already queued")

	// ErrQueueItemNotFound: the referenced queue item is not pending.
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrNotFound covers missing records, profiles and subjects.
	ErrNotFound = errors.New("not found")

	// Authentication failures from the identity adapter.
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict: a profile replace lost the compare-and-swap race.
	// Callers reload and retry; it never reaches the HTTP surface directly.
	ErrVersionConflict = errors.New("profile version conflict")

	// ErrInvalidPhoneNumber: recipient number outside 10-15 digits.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrExternalService: messaging/AI provider failure after retries.
	// Isolated from the core workflow; returned as data where possible.
	ErrExternalService = errors.New("external service error")

	// ErrUnavailable: the document store is unreachable.
	ErrUnavailable = errors.New("service unavailable")
)
