package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/metrics"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ClearYearData(ctx context.Context) (result *domain.ClearResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("ClearYearData", err, time.Since(start)) }()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result = &domain.ClearResult{}

	// Children before parents.
	steps := []struct {
		name  string
		query string
		count *int64
	}{
		{"delete loan payments", `DELETE FROM loan_payments`, &result.PaymentsDeleted},
		{"delete loans", `DELETE FROM loans`, &result.LoansDeleted},
		{"delete contributions", `DELETE FROM contributions`, &result.ContributionsDeleted},
		{"delete penalties", `DELETE FROM penalties`, &result.PenaltiesDeleted},
		{"reset member balances", `
			UPDATE members
			SET total_shares = 0, total_social_fund = 0, total_penalties = 0, updated_at = NOW()`,
			&result.MembersReset},
	}

	for _, step := range steps {
		res, execErr := tx.ExecContext(ctx, step.query)
		if execErr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrTxAborted, step.name, execErr)
			return nil, err
		}
		if *step.count, execErr = res.RowsAffected(); execErr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrTxAborted, step.name, execErr)
			return nil, err
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("%w: commit: %w", ErrTxAborted, commitErr)
		return nil, err
	}

	return result, nil
}
