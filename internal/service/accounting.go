package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/utils"
)

// DefaultServiceChargeRate applies when neither the request nor the
// configuration supplies a rate.
var DefaultServiceChargeRate = decimal.RequireFromString("0.02")

// ServiceCharge computes the one-time service charge of a loan:
// round(principal * rate, 2).
func ServiceCharge(principal, rate decimal.Decimal) decimal.Decimal {
	return utils.RoundMoney(principal.Mul(rate))
}

// PaidByType sums payment amounts by payment type.
func PaidByType(payments []*domain.LoanPayment) (principal, serviceCharge decimal.Decimal) {
	principal, serviceCharge = decimal.Zero, decimal.Zero
	for _, p := range payments {
		switch p.PaymentType {
		case domain.PaymentTypePrincipal:
			principal = principal.Add(p.Amount)
		case domain.PaymentTypeServiceCharge:
			serviceCharge = serviceCharge.Add(p.Amount)
		}
	}
	return principal, serviceCharge
}

// OutstandingBalance re-derives what is still owed on loan from its original
// terms and its full payment history:
//
//	max(0, principal - Σ PRINCIPAL) + max(0, service charge - Σ SERVICE_CHARGE)
//
// payments must all belong to loan.
func OutstandingBalance(loan *domain.Loan, payments []*domain.LoanPayment) decimal.Decimal {
	paidPrincipal, paidServiceCharge := PaidByType(payments)

	unpaidPrincipal := utils.FloorZero(loan.OriginalPrincipal.Sub(paidPrincipal))
	unpaidServiceCharge := utils.FloorZero(loan.OriginalServiceCharge.Sub(paidServiceCharge))

	return unpaidPrincipal.Add(unpaidServiceCharge)
}

// PaymentApplication is the outcome of applying one payment to a loan.
type PaymentApplication struct {
	Payment   *domain.LoanPayment
	Completed bool
}

// ApplyPayment mutates loan for a payment of the given type and returns the
// payment to record. For SERVICE_CHARGE the amount argument is ignored and
// the loan's entire remaining service charge is settled.
func ApplyPayment(loan *domain.Loan, paymentType domain.PaymentType, amount decimal.Decimal, paymentDate time.Time, remarks *string, now time.Time) (*PaymentApplication, error) {
	if loan.Status == domain.LoanStatusCancelled {
		return nil, customError.WrapLoanAlreadyClosed(loan.ID.String())
	}

	app := &PaymentApplication{}

	switch paymentType {
	case domain.PaymentTypePrincipal:
		if !loan.PrincipalAmount.IsPositive() {
			return nil, customError.WrapNoOutstandingBalance(loan.ID.String(), "principal")
		}
		loan.PrincipalAmount = utils.FloorZero(loan.PrincipalAmount.Sub(amount))
		if loan.PrincipalAmount.IsZero() && loan.Status != domain.LoanStatusCompleted {
			loan.Status = domain.LoanStatusCompleted
			completedAt := now
			loan.CompletedAt = &completedAt
			app.Completed = true
		}

	case domain.PaymentTypeServiceCharge:
		if !loan.ServiceChargeAmount.IsPositive() {
			return nil, customError.WrapNoOutstandingBalance(loan.ID.String(), "service charge")
		}
		amount = loan.ServiceChargeAmount
		loan.ServiceChargeAmount = decimal.Zero

	default:
		return nil, customError.WrapValidation("payment_type", "must be PRINCIPAL or SERVICE_CHARGE")
	}

	loan.UpdatedAt = now
	app.Payment = &domain.LoanPayment{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		Amount:      amount,
		PaymentType: paymentType,
		PaymentDate: paymentDate,
		Remarks:     remarks,
		CreatedAt:   now,
	}
	return app, nil
}
