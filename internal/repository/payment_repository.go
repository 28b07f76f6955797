package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/metrics"
)

const paymentColumns = `id, loan_id, amount, payment_type, payment_date, remarks, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY payment_date ASC, created_at ASC
	`

	payments := make([]*domain.LoanPayment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.LoanPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM loan_payments ORDER BY payment_date ASC, created_at ASC`

	start := time.Now()
	payments := make([]*domain.LoanPayment, 0)
	err := r.db.SelectContext(ctx, &payments, query)
	metrics.RecordDBQuery("ListPayments", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return payments, nil
}
