package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Goal represents a savings goal in the domain layer
// A goal has its own currency; contributions from assets in other currencies
// are converted at calculation time via a RateSource.
type Goal struct {
	ID           uuid.UUID
	Name         string
	CurrencyCode string
	TargetAmount decimal.Decimal
	Deadline     *time.Time
}

// Validate ensures the goal adheres to domain rules
// Returns an error if validation fails
func (g *Goal) Validate() error {
	if g.Name == "" {
		return errors.New("goal name cannot be empty")
	}
	if g.CurrencyCode == "" {
		return errors.New("goal currency code cannot be empty")
	}
	if g.TargetAmount.LessThan(decimal.Zero) {
		return errors.New("goal target amount cannot be negative")
	}
	return nil
}

// MonthlyPlan holds the planned monthly contribution per goal for one
// calendar month. It is the editable input that gets frozen into an
// ExecutionSnapshot when tracking starts.
type MonthlyPlan struct {
	ID         uuid.UUID
	MonthLabel string // YYYY-MM
	Entries    []PlanEntry
}

// PlanEntry represents a single goal's planned amount within a monthly plan
type PlanEntry struct {
	GoalID          uuid.UUID
	RequiredMonthly decimal.Decimal
}

// TotalRequired sums the planned amounts across all entries
func (p *MonthlyPlan) TotalRequired() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range p.Entries {
		total = total.Add(entry.RequiredMonthly)
	}
	return total
}

// Validate ensures the plan adheres to domain rules
// Returns an error if validation fails
func (p *MonthlyPlan) Validate() error {
	if err := ValidateMonthLabel(p.MonthLabel); err != nil {
		return err
	}
	if len(p.Entries) == 0 {
		return errors.New("monthly plan must have at least one entry")
	}
	for _, entry := range p.Entries {
		if entry.RequiredMonthly.LessThan(decimal.Zero) {
			return errors.New("planned monthly amount cannot be negative")
		}
	}
	return nil
}

// ValidateMonthLabel checks that a month label is in YYYY-MM format
func ValidateMonthLabel(label string) error {
	if _, err := time.Parse("2006-01", label); err != nil {
		return errors.New("month label must be in YYYY-MM format")
	}
	return nil
}
