package ratesource

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// Static is a fixed-table rate source for development and tests.
// Identical currencies always convert at 1; missing pairs return
// ErrRateUnavailable.
type Static struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewStatic creates a new empty Static rate source
func NewStatic() *Static {
	return &Static{rates: make(map[string]decimal.Decimal)}
}

// Set registers the rate for a currency pair
func (s *Static) Set(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pairKey(from, to)] = rate
}

// Rate implements domain.RateSource
func (s *Static) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[pairKey(from, to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s", domain.ErrRateUnavailable, from, to)
	}
	return rate, nil
}

func pairKey(from, to string) string {
	return from + "/" + to
}
