package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Asset represents a tracked balance in one currency (e.g. a BTC wallet).
// Assets are ownership-agnostic: they can be linked to zero, one, or many
// goals via allocations.
type Asset struct {
	ID           uuid.UUID
	Name         string
	CurrencyCode string
	Address      *string // Optional on-chain address
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if a.Name == "" {
		return errors.New("asset name cannot be empty")
	}
	if a.CurrencyCode == "" {
		return errors.New("asset currency code cannot be empty")
	}
	return nil
}
