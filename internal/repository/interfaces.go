package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/segyhp/coop-ledger/internal/domain"
)

// ErrTxAborted marks a failure after a multi-statement transaction started.
// The transaction is rolled back, but callers must surface it as a
// transaction failure rather than an ordinary store error.
var ErrTxAborted = errors.New("transaction aborted")

// ErrStatusChanged reports that a loan's status no longer matches the status
// a conditional update expected.
var ErrStatusChanged = errors.New("loan status changed")

// PaymentFunc receives the locked loan row, mutates its balances and status,
// and returns the payment to record. Returning an error aborts the
// transaction without writing anything.
type PaymentFunc func(loan *domain.Loan) (*domain.LoanPayment, error)

// MemberRepository defines the interface for member data operations.
// Lookups of unknown ids return sql.ErrNoRows.
type MemberRepository interface {
	// Create creates a new member
	Create(ctx context.Context, member *domain.Member) error

	// GetByID retrieves a member by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)

	// Update updates a member's name and contact info
	Update(ctx context.Context, member *domain.Member) error

	// List returns all members ordered by join date
	List(ctx context.Context) ([]*domain.Member, error)
}

// ContributionRepository records contributions and penalties together with
// the matching member balance change.
type ContributionRepository interface {
	// Create inserts the contribution and adds its amount to the member's
	// running balance, returning the updated member
	Create(ctx context.Context, contribution *domain.Contribution) (*domain.Member, error)

	// ListByMemberID returns a member's contributions ordered by date
	ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]*domain.Contribution, error)

	// CreatePenalty inserts the penalty and adds it to the member's total
	CreatePenalty(ctx context.Context, penalty *domain.Penalty) (*domain.Member, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// List returns all loans, most recently approved first
	List(ctx context.Context) ([]*domain.Loan, error)

	// UpdateStatus persists status and lifecycle timestamps only while the
	// stored status is still from. Otherwise it returns ErrStatusChanged
	UpdateStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) error

	// Delete removes a loan and, by cascade, its payments
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyPayment locks the loan row, lets apply compute the payment, and
	// writes the payment and the loan's new balances in one transaction
	ApplyPayment(ctx context.Context, loanID uuid.UUID, apply PaymentFunc) (*domain.LoanPayment, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// GetByLoanID retrieves all payments for a loan ordered by payment date
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error)

	// List retrieves every payment in the ledger
	List(ctx context.Context) ([]*domain.LoanPayment, error)
}

// LedgerRepository holds operations spanning every table.
type LedgerRepository interface {
	// ClearYearData deletes payments, loans, contributions and penalties and
	// zeroes member balances in a single transaction. Members are kept.
	ClearYearData(ctx context.Context) (*domain.ClearResult, error)
}
