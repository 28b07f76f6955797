package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceChargeRatePlaces is the scale of the stored service charge rate.
const ServiceChargeRatePlaces = 4

type LoanStatus string

const (
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusReleased  LoanStatus = "RELEASED"
	LoanStatusOngoing   LoanStatus = "ONGOING"
	LoanStatusCompleted LoanStatus = "COMPLETED"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// loanTransitions lists the statuses an operator may move a loan to.
// COMPLETED and CANCELLED are terminal.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusApproved: {LoanStatusReleased, LoanStatusCancelled},
	LoanStatusReleased: {LoanStatusOngoing, LoanStatusCompleted, LoanStatusCancelled},
	LoanStatusOngoing:  {LoanStatusCompleted, LoanStatusCancelled},
}

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusApproved, LoanStatusReleased, LoanStatusOngoing, LoanStatusCompleted, LoanStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusCompleted || s == LoanStatusCancelled
}

// CanTransitionTo reports whether an operator may move a loan from s to next.
// Re-applying the current status is allowed and is a no-op.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Loan represents a loan disbursed to a member.
//
// OriginalPrincipal and OriginalServiceCharge are fixed at creation.
// PrincipalAmount and ServiceChargeAmount hold what is still owed and only
// decrease as payments are applied.
type Loan struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	MemberID              uuid.UUID       `json:"member_id" db:"member_id"`
	OriginalPrincipal     decimal.Decimal `json:"original_principal" db:"original_principal"`
	PrincipalAmount       decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	TermMonths            *int            `json:"term_months,omitempty" db:"term_months"`
	ServiceChargeRate     decimal.Decimal `json:"service_charge_rate" db:"service_charge_rate"`
	OriginalServiceCharge decimal.Decimal `json:"original_service_charge" db:"original_service_charge"`
	ServiceChargeAmount   decimal.Decimal `json:"service_charge_amount" db:"service_charge_amount"`
	Status                LoanStatus      `json:"status" db:"status"`
	ApprovedAt            time.Time       `json:"approved_at" db:"approved_at"`
	ReleasedAt            *time.Time      `json:"released_at,omitempty" db:"released_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	Remarks               *string         `json:"remarks,omitempty" db:"remarks"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	MemberID          uuid.UUID        `json:"member_id" validate:"required"`
	PrincipalAmount   decimal.Decimal  `json:"principal_amount" validate:"decimal_gt0"`
	TermMonths        *int             `json:"term_months,omitempty" validate:"omitempty,gt=0"`
	ServiceChargeRate *decimal.Decimal `json:"service_charge_rate,omitempty"`
	Remarks           *string          `json:"remarks,omitempty" validate:"omitempty,max=500"`
}

type UpdateLoanStatusRequest struct {
	Status LoanStatus `json:"status" validate:"required"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type LoanDetailResponse struct {
	Loan        *Loan           `json:"loan"`
	Payments    []*LoanPayment  `json:"payments"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
