package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
)

// balanceColumn maps a contribution type to the member balance it feeds.
var balanceColumn = map[domain.ContributionType]string{
	domain.ContributionTypeShare:      "total_shares",
	domain.ContributionTypeSocialFund: "total_social_fund",
}

type contributionRepository struct {
	db *sqlx.DB
}

func NewContributionRepository(db *sqlx.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, contribution *domain.Contribution) (*domain.Member, error) {
	column, ok := balanceColumn[contribution.Type]
	if !ok {
		return nil, fmt.Errorf("unknown contribution type %q", contribution.Type)
	}

	query := `
		INSERT INTO contributions (id, member_id, type, amount, contribution_date, remarks, created_at)
		VALUES (:id, :member_id, :type, :amount, :contribution_date, :remarks, :created_at)
	`

	return r.creditMember(ctx, contribution.MemberID, column, contribution.Amount, query, contribution)
}

func (r *contributionRepository) CreatePenalty(ctx context.Context, penalty *domain.Penalty) (*domain.Member, error) {
	query := `
		INSERT INTO penalties (id, member_id, amount, penalty_date, reason, created_at)
		VALUES (:id, :member_id, :amount, :penalty_date, :reason, :created_at)
	`

	return r.creditMember(ctx, penalty.MemberID, "total_penalties", penalty.Amount, query, penalty)
}

// creditMember adds amount to one member balance column and inserts row in
// the same transaction. An unknown member yields sql.ErrNoRows.
func (r *contributionRepository) creditMember(ctx context.Context, memberID uuid.UUID, column string, amount decimal.Decimal, insertSQL string, row any) (*domain.Member, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updateSQL := fmt.Sprintf(`
		UPDATE members
		SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %[2]s
	`, column, memberColumns)

	var member domain.Member
	if err := tx.GetContext(ctx, &member, updateSQL, memberID, amount); err != nil {
		return nil, err
	}

	if _, err := tx.NamedExecContext(ctx, insertSQL, row); err != nil {
		return nil, fmt.Errorf("%w: insert %s row: %w", ErrTxAborted, column, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrTxAborted, err)
	}

	return &member, nil
}

func (r *contributionRepository) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]*domain.Contribution, error) {
	query := `
		SELECT id, member_id, type, amount, contribution_date, remarks, created_at
		FROM contributions
		WHERE member_id = $1
		ORDER BY contribution_date ASC, created_at ASC
	`

	contributions := make([]*domain.Contribution, 0)
	if err := r.db.SelectContext(ctx, &contributions, query, memberID); err != nil {
		return nil, err
	}

	return contributions, nil
}
