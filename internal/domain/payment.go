package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypePrincipal     PaymentType = "PRINCIPAL"
	PaymentTypeServiceCharge PaymentType = "SERVICE_CHARGE"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypePrincipal || t == PaymentTypeServiceCharge
}

// LoanPayment is an immutable payment recorded against a loan.
type LoanPayment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentType PaymentType     `json:"payment_type" db:"payment_type"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Remarks     *string         `json:"remarks,omitempty" db:"remarks"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// MakePaymentRequest carries a payment against a loan. Amount is required
// for PRINCIPAL payments and ignored for SERVICE_CHARGE payments.
type MakePaymentRequest struct {
	LoanID      uuid.UUID        `json:"-"`
	PaymentType PaymentType      `json:"payment_type" validate:"required"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	PaymentDate *time.Time       `json:"payment_date,omitempty"`
	Remarks     *string          `json:"remarks,omitempty" validate:"omitempty,max=500"`
}
