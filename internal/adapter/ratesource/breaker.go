package ratesource

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/logging"
)

// Breaker wraps a RateSource with circuit breaker protection so a flapping
// provider fails fast instead of stalling every progress calculation.
// An open circuit surfaces as ErrRateUnavailable, which the progress
// calculator already degrades on.
type Breaker struct {
	source domain.RateSource
	cb     *gobreaker.CircuitBreaker
}

// BreakerConfig holds circuit breaker tuning
type BreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval over which failure counts are accumulated while closed
	Interval time.Duration
	// Timeout before an open circuit transitions to half-open
	Timeout time.Duration
	// ConsecutiveFailures that trip the circuit
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns a default breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewBreaker wraps the given source with a circuit breaker
func NewBreaker(source domain.RateSource, config BreakerConfig, logger *logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logger.Named("ratesource")

	settings := gobreaker.Settings{
		Name:        "ratesource",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{
		source: source,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Rate implements domain.RateSource
func (b *Breaker) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.source.Rate(ctx, from, to)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	return result.(decimal.Decimal), nil
}
