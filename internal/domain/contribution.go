package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContributionKind represents the type of user-facing contribution entry
type ContributionKind string

const (
	ContributionKindDeposit      ContributionKind = "DEPOSIT"
	ContributionKindWithdrawal   ContributionKind = "WITHDRAWAL"
	ContributionKindReallocation ContributionKind = "REALLOCATION"
)

// Contribution is a user-facing ledger entry distinct from the raw
// Transaction: an attributed deposit, withdrawal, or reallocation tied to a
// goal and asset, optionally linked to an execution record. It exists for
// display and manual bookkeeping; attribution computes totals from raw
// transactions and allocation history and never reads contributions.
type Contribution struct {
	ID                uuid.UUID
	GoalID            uuid.UUID
	AssetID           uuid.UUID
	ExecutionRecordID *uuid.UUID
	Kind              ContributionKind
	Amount            decimal.Decimal // ABSOLUTE VALUE (Always Positive)
	Timestamp         time.Time
	Note              string
}

// Validate ensures the contribution adheres to domain rules
// Returns an error if validation fails
func (c *Contribution) Validate() error {
	if c.GoalID == uuid.Nil {
		return errors.New("contribution must reference a goal")
	}
	if c.AssetID == uuid.Nil {
		return errors.New("contribution must reference an asset")
	}
	if c.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("contribution amount must be positive (absolute value)")
	}
	switch c.Kind {
	case ContributionKindDeposit, ContributionKindWithdrawal, ContributionKindReallocation:
	default:
		return errors.New("contribution kind must be DEPOSIT, WITHDRAWAL, or REALLOCATION")
	}
	return nil
}
