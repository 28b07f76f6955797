package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/metrics"
)

const loanColumns = `id, member_id, original_principal, principal_amount, term_months, service_charge_rate,
	original_service_charge, service_charge_amount, status, approved_at, released_at, completed_at,
	remarks, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :member_id, :original_principal, :principal_amount, :term_months, :service_charge_rate,
			:original_service_charge, :service_charge_amount, :status, :approved_at, :released_at, :completed_at,
			:remarks, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY approved_at DESC`

	start := time.Now()
	loans := make([]*domain.Loan, 0)
	err := r.db.SelectContext(ctx, &loans, query)
	metrics.RecordDBQuery("ListLoans", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) error {
	query := `
		UPDATE loans
		SET status = $2, released_at = $3, completed_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	res, err := r.db.ExecContext(ctx, query, loan.ID, loan.Status, loan.ReleasedAt, loan.CompletedAt, loan.UpdatedAt, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, loan.ID); err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrStatusChanged
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *loanRepository) ApplyPayment(ctx context.Context, loanID uuid.UUID, apply PaymentFunc) (payment *domain.LoanPayment, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("ApplyPayment", err, time.Since(start)) }()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan domain.Loan
	lockSQL := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &loan, lockSQL, loanID); err != nil {
		return nil, err
	}

	payment, err = apply(&loan)
	if err != nil {
		return nil, err
	}

	insertSQL := `
		INSERT INTO loan_payments (id, loan_id, amount, payment_type, payment_date, remarks, created_at)
		VALUES (:id, :loan_id, :amount, :payment_type, :payment_date, :remarks, :created_at)
	`
	if _, err = tx.NamedExecContext(ctx, insertSQL, payment); err != nil {
		return nil, fmt.Errorf("%w: insert payment: %w", ErrTxAborted, err)
	}

	updateSQL := `
		UPDATE loans
		SET principal_amount = $2, service_charge_amount = $3, status = $4, completed_at = $5, updated_at = $6
		WHERE id = $1
	`
	if _, err = tx.ExecContext(ctx, updateSQL,
		loan.ID,
		loan.PrincipalAmount,
		loan.ServiceChargeAmount,
		loan.Status,
		loan.CompletedAt,
		loan.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: update loan balances: %w", ErrTxAborted, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrTxAborted, err)
	}

	return payment, nil
}
