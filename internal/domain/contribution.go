package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContributionType string

const (
	ContributionTypeShare      ContributionType = "SHARE"
	ContributionTypeSocialFund ContributionType = "SOCIAL_FUND"
)

func (t ContributionType) Valid() bool {
	return t == ContributionTypeShare || t == ContributionTypeSocialFund
}

type Contribution struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	MemberID         uuid.UUID        `json:"member_id" db:"member_id"`
	Type             ContributionType `json:"type" db:"type"`
	Amount           decimal.Decimal  `json:"amount" db:"amount"`
	ContributionDate time.Time        `json:"contribution_date" db:"contribution_date"`
	Remarks          *string          `json:"remarks,omitempty" db:"remarks"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// CreateContributionRequest takes either Amount or, for SHARE contributions,
// a number of Units priced at the configured share unit value.
type CreateContributionRequest struct {
	MemberID         uuid.UUID        `json:"-"`
	Type             ContributionType `json:"type" validate:"required"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Units            *int             `json:"units,omitempty" validate:"omitempty,gt=0"`
	ContributionDate *time.Time       `json:"contribution_date,omitempty"`
	Remarks          *string          `json:"remarks,omitempty" validate:"omitempty,max=500"`
}

type Penalty struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	MemberID    uuid.UUID       `json:"member_id" db:"member_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PenaltyDate time.Time       `json:"penalty_date" db:"penalty_date"`
	Reason      *string         `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type CreatePenaltyRequest struct {
	MemberID    uuid.UUID       `json:"-"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	PenaltyDate *time.Time      `json:"penalty_date,omitempty"`
	Reason      *string         `json:"reason,omitempty" validate:"omitempty,max=500"`
}
