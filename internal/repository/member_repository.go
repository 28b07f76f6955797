package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/metrics"
)

const memberColumns = `id, full_name, contact_info, join_date, total_shares, total_social_fund, total_penalties, created_at, updated_at`

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (:id, :full_name, :contact_info, :join_date, :total_shares, :total_social_fund, :total_penalties, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, member)
	return err
}

func (r *memberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	var member domain.Member
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}

	return &member, nil
}

func (r *memberRepository) Update(ctx context.Context, member *domain.Member) error {
	query := `
		UPDATE members
		SET full_name = $2, contact_info = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, member.ID, member.FullName, member.ContactInfo, member.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *memberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY join_date ASC, created_at ASC`

	start := time.Now()
	members := make([]*domain.Member, 0)
	err := r.db.SelectContext(ctx, &members, query)
	metrics.RecordDBQuery("ListMembers", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return members, nil
}

// requireRow turns an UPDATE or DELETE that touched nothing into sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
