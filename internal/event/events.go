package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
)

const (
	RoutingKeyLoanCompleted    = "ledger.loan.completed"
	RoutingKeyYearEndCleared   = "ledger.year_end.cleared"
	RoutingKeyContributionMade = "ledger.contribution.created"
)

// Publisher announces ledger changes to interested consumers. Publishing is
// best effort: a failed publish never rolls back the ledger write.
type Publisher interface {
	PublishLoanCompleted(ctx context.Context, event LoanCompletedEvent) error
	PublishContributionCreated(ctx context.Context, event ContributionCreatedEvent) error
	PublishYearEndCleared(ctx context.Context, event YearEndClearedEvent) error
}

type LoanCompletedEvent struct {
	LoanID      uuid.UUID `json:"loanId"`
	MemberID    uuid.UUID `json:"memberId"`
	CompletedAt time.Time `json:"completedAt"`
}

type ContributionCreatedEvent struct {
	ContributionID uuid.UUID               `json:"contributionId"`
	MemberID       uuid.UUID               `json:"memberId"`
	Type           domain.ContributionType `json:"type"`
	Amount         decimal.Decimal         `json:"amount"`
	Timestamp      time.Time               `json:"timestamp"`
}

type YearEndClearedEvent struct {
	Result    domain.ClearResult `json:"result"`
	ClearedAt time.Time          `json:"clearedAt"`
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishLoanCompleted(context.Context, LoanCompletedEvent) error { return nil }

func (NoopPublisher) PublishContributionCreated(context.Context, ContributionCreatedEvent) error {
	return nil
}

func (NoopPublisher) PublishYearEndCleared(context.Context, YearEndClearedEvent) error { return nil }
