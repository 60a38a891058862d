package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource provides currency conversion multipliers. Lookups may suspend
// on network I/O and may fail; callers that can degrade should treat
// ErrRateUnavailable as recoverable.
type RateSource interface {
	// Rate returns the multiplier that converts an amount in `from` into
	// `to`. Implementations should return ErrRateUnavailable (possibly
	// wrapped) when the rate cannot be resolved.
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}
