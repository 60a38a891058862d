package domain

import "errors"

// Typed failures surfaced by the core. Lifecycle validation errors are meant
// to be presented to the user; store-read failures are fatal and wrapped with
// context by the caller.
var (
	// ErrRecordAlreadyExists is returned when starting tracking for a month
	// that already has an active or closed execution record
	ErrRecordAlreadyExists = errors.New("execution: record already exists for month")

	// ErrRecordNotFound is returned when no execution record exists for the
	// requested month
	ErrRecordNotFound = errors.New("execution: record not found")

	// ErrInvalidTransition is returned when a lifecycle operation is invoked
	// on a record in the wrong state
	ErrInvalidTransition = errors.New("execution: invalid status transition")

	// ErrUndoExpired is returned when an undo is attempted outside the grace
	// window
	ErrUndoExpired = errors.New("execution: undo grace window expired")

	// ErrInvalidWindow is returned when an attribution window ends before it
	// starts
	ErrInvalidWindow = errors.New("attribution: window end precedes start")

	// ErrRateUnavailable is returned when a currency rate lookup fails or
	// times out. The progress calculator degrades to a 1:1 fallback.
	ErrRateUnavailable = errors.New("rates: rate unavailable")

	// ErrAssetNotFound is returned when an asset lookup misses
	ErrAssetNotFound = errors.New("store: asset not found")

	// ErrGoalNotFound is returned when a goal lookup misses
	ErrGoalNotFound = errors.New("store: goal not found")

	// ErrPlanNotFound is returned when no monthly plan exists for a month
	ErrPlanNotFound = errors.New("store: plan not found")
)

// IsNotFound checks if the given error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrGoalNotFound) ||
		errors.Is(err, ErrPlanNotFound)
}
