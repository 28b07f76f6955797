package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Member is a cooperative member. The three running balances are only moved
// by contributions, penalties and the year-end clear.
type Member struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	FullName        string          `json:"full_name" db:"full_name"`
	ContactInfo     *string         `json:"contact_info,omitempty" db:"contact_info"`
	JoinDate        time.Time       `json:"join_date" db:"join_date"`
	TotalShares     decimal.Decimal `json:"total_shares" db:"total_shares"`
	TotalSocialFund decimal.Decimal `json:"total_social_fund" db:"total_social_fund"`
	TotalPenalties  decimal.Decimal `json:"total_penalties" db:"total_penalties"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type CreateMemberRequest struct {
	FullName    string     `json:"full_name" validate:"required,max=200"`
	ContactInfo *string    `json:"contact_info,omitempty" validate:"omitempty,max=200"`
	JoinDate    *time.Time `json:"join_date,omitempty"`
}

type UpdateMemberRequest struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactInfo *string `json:"contact_info,omitempty" validate:"omitempty,max=200"`
}
