package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/event"
	"github.com/segyhp/coop-ledger/internal/metrics"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/utils"
)

// LoanService implements loan accounting: creation, payment application,
// status changes and outstanding balances.
type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	MemberRepo  repository.MemberRepository
	publisher   event.Publisher
	config      *config.Config
	now         func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	memberRepo repository.MemberRepository,
	publisher event.Publisher,
	config *config.Config,
) *LoanService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		MemberRepo:  memberRepo,
		publisher:   publisher,
		config:      config,
		now:         time.Now,
	}
}

func (s *LoanService) defaultRate() decimal.Decimal {
	if s.config == nil {
		return DefaultServiceChargeRate
	}
	return s.config.GetServiceChargeRate()
}

// CreateLoan creates a loan in APPROVED status with its service charge fixed
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	principal := utils.RoundMoney(request.PrincipalAmount)
	if !principal.IsPositive() {
		return nil, customError.WrapInvalidAmount("principal_amount", request.PrincipalAmount)
	}

	rate := s.defaultRate()
	if request.ServiceChargeRate != nil {
		rate = *request.ServiceChargeRate
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, customError.WrapValidation("service_charge_rate", "must be at least 0 and below 1")
	}
	if !rate.Equal(rate.Truncate(domain.ServiceChargeRatePlaces)) {
		return nil, customError.WrapValidation("service_charge_rate", "must have at most 4 decimal places")
	}

	if _, err := s.MemberRepo.GetByID(ctx, request.MemberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(request.MemberID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	serviceCharge := ServiceCharge(principal, rate)

	loan := &domain.Loan{
		ID:                    uuid.New(),
		MemberID:              request.MemberID,
		OriginalPrincipal:     principal,
		PrincipalAmount:       principal,
		TermMonths:            request.TermMonths,
		ServiceChargeRate:     rate,
		OriginalServiceCharge: serviceCharge,
		ServiceChargeAmount:   serviceCharge,
		Status:                domain.LoanStatusApproved,
		ApprovedAt:            now,
		Remarks:               request.Remarks,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loan, nil
}

// RecordPayment applies a payment to a loan. The balance update and the
// payment row are written in one transaction against the locked loan.
func (s *LoanService) RecordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.LoanPayment, error) {
	if !request.PaymentType.Valid() {
		return nil, customError.WrapValidation("payment_type", "must be PRINCIPAL or SERVICE_CHARGE")
	}

	amount := decimal.Zero
	if request.PaymentType == domain.PaymentTypePrincipal {
		if request.Amount == nil {
			return nil, customError.WrapInvalidAmount("amount", nil)
		}
		amount = utils.RoundMoney(*request.Amount)
		if !amount.IsPositive() {
			return nil, customError.WrapInvalidAmount("amount", *request.Amount)
		}
	}

	now := s.now()
	paymentDate := utils.DateOrToday(request.PaymentDate, now)

	var app *PaymentApplication
	var completedLoan domain.Loan
	payment, err := s.LoanRepo.ApplyPayment(ctx, request.LoanID, func(loan *domain.Loan) (*domain.LoanPayment, error) {
		var applyErr error
		app, applyErr = ApplyPayment(loan, request.PaymentType, amount, paymentDate, request.Remarks, now)
		if applyErr != nil {
			return nil, applyErr
		}
		completedLoan = *loan
		return app.Payment, nil
	})
	if err != nil {
		return nil, s.mapPaymentError(request.LoanID, err)
	}

	metrics.PaymentRecorded(string(payment.PaymentType))
	if app != nil && app.Completed {
		metrics.LoanCompleted()
		_ = s.publisher.PublishLoanCompleted(ctx, event.LoanCompletedEvent{
			LoanID:      completedLoan.ID,
			MemberID:    completedLoan.MemberID,
			CompletedAt: now,
		})
	}

	return payment, nil
}

func (s *LoanService) mapPaymentError(loanID uuid.UUID, err error) error {
	var businessErr *customError.BusinessError
	switch {
	case errors.As(err, &businessErr):
		return businessErr
	case errors.Is(err, sql.ErrNoRows):
		return customError.WrapLoanNotFound(loanID.String())
	case errors.Is(err, repository.ErrTxAborted):
		return customError.WrapTransactionFailure("loan payment", err)
	default:
		return customError.WrapDatabaseError(err)
	}
}

// UpdateLoanStatus moves a loan along the allowed status transitions
func (s *LoanService) UpdateLoanStatus(ctx context.Context, loanID uuid.UUID, status domain.LoanStatus) (*domain.Loan, error) {
	if !status.Valid() {
		return nil, customError.WrapValidation("status", "unknown loan status "+string(status))
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if !loan.Status.CanTransitionTo(status) {
		return nil, customError.WrapInvalidStatusTransition(loanID.String(), string(loan.Status), string(status))
	}
	if loan.Status == status {
		return loan, nil
	}

	from := loan.Status
	now := s.now()
	loan.Status = status
	loan.UpdatedAt = now
	switch status {
	case domain.LoanStatusReleased:
		loan.ReleasedAt = &now
	case domain.LoanStatusCompleted:
		loan.CompletedAt = &now
	}

	// A payment or another operator may have moved the loan since it was read.
	if err := s.LoanRepo.UpdateStatus(ctx, loan, from); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, customError.WrapLoanNotFound(loanID.String())
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, customError.WrapInvalidStatusTransition(loanID.String(), string(from)+" (changed concurrently)", string(status))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return loan, nil
}

// DeleteLoan hard-deletes a loan together with its payments
func (s *LoanService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	if err := s.LoanRepo.Delete(ctx, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// ListLoans returns every loan, most recently approved first
func (s *LoanService) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// ListLoanPayments returns a loan's payments in payment date order
func (s *LoanService) ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// GetLoan returns a loan with its payments and outstanding balance
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetailResponse, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.LoanDetailResponse{
		Loan:        loan,
		Payments:    payments,
		Outstanding: OutstandingBalance(loan, payments),
	}, nil
}

// GetOutstanding calculates and returns the outstanding balance for a loan
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	detail, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return detail.Outstanding, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}
