package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/event"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/utils"
)

// DefaultShareUnitValue is the peso value of one share when not configured.
var DefaultShareUnitValue = decimal.NewFromInt(500)

// MemberService manages members and the contributions and penalties that
// move their running balances.
type MemberService struct {
	MemberRepo       repository.MemberRepository
	ContributionRepo repository.ContributionRepository
	publisher        event.Publisher
	config           *config.Config
	now              func() time.Time
}

func NewMemberService(
	memberRepo repository.MemberRepository,
	contributionRepo repository.ContributionRepository,
	publisher event.Publisher,
	config *config.Config,
) *MemberService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &MemberService{
		MemberRepo:       memberRepo,
		ContributionRepo: contributionRepo,
		publisher:        publisher,
		config:           config,
		now:              time.Now,
	}
}

func (s *MemberService) shareUnitValue() decimal.Decimal {
	if s.config == nil {
		return DefaultShareUnitValue
	}
	return s.config.GetShareUnitValue()
}

// ListMembers returns members ordered by join date
func (s *MemberService) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	members, err := s.MemberRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return members, nil
}

func (s *MemberService) GetMember(ctx context.Context, memberID uuid.UUID) (*domain.Member, error) {
	member, err := s.MemberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(memberID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return member, nil
}

// CreateMember registers a member with zero balances
func (s *MemberService) CreateMember(ctx context.Context, request *domain.CreateMemberRequest) (*domain.Member, error) {
	name := strings.TrimSpace(request.FullName)
	if name == "" {
		return nil, customError.WrapValidation("full_name", "is required")
	}

	now := s.now()
	member := &domain.Member{
		ID:              uuid.New(),
		FullName:        name,
		ContactInfo:     request.ContactInfo,
		JoinDate:        utils.DateOrToday(request.JoinDate, now),
		TotalShares:     decimal.Zero,
		TotalSocialFund: decimal.Zero,
		TotalPenalties:  decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.MemberRepo.Create(ctx, member); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return member, nil
}

// UpdateMember changes name and/or contact info. Balances are untouched.
func (s *MemberService) UpdateMember(ctx context.Context, memberID uuid.UUID, request *domain.UpdateMemberRequest) (*domain.Member, error) {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if request.FullName != nil {
		name := strings.TrimSpace(*request.FullName)
		if name == "" {
			return nil, customError.WrapValidation("full_name", "must not be blank")
		}
		member.FullName = name
	}
	if request.ContactInfo != nil {
		member.ContactInfo = request.ContactInfo
	}
	member.UpdatedAt = s.now()

	if err := s.MemberRepo.Update(ctx, member); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(memberID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return member, nil
}

// CreateContribution records a share or social fund contribution and
// credits the member's balance in the same transaction.
func (s *MemberService) CreateContribution(ctx context.Context, request *domain.CreateContributionRequest) (*domain.Contribution, error) {
	if !request.Type.Valid() {
		return nil, customError.WrapValidation("type", "must be SHARE or SOCIAL_FUND")
	}

	amount, err := s.contributionAmount(request)
	if err != nil {
		return nil, err
	}

	now := s.now()
	contribution := &domain.Contribution{
		ID:               uuid.New(),
		MemberID:         request.MemberID,
		Type:             request.Type,
		Amount:           amount,
		ContributionDate: utils.DateOrToday(request.ContributionDate, now),
		Remarks:          request.Remarks,
		CreatedAt:        now,
	}

	if _, err := s.ContributionRepo.Create(ctx, contribution); err != nil {
		return nil, mapCreditError(request.MemberID, "contribution", err)
	}

	_ = s.publisher.PublishContributionCreated(ctx, event.ContributionCreatedEvent{
		ContributionID: contribution.ID,
		MemberID:       contribution.MemberID,
		Type:           contribution.Type,
		Amount:         contribution.Amount,
		Timestamp:      now,
	})

	return contribution, nil
}

// contributionAmount resolves the peso amount, pricing share units at the
// configured unit value. Exactly one of amount and units may be given.
func (s *MemberService) contributionAmount(request *domain.CreateContributionRequest) (decimal.Decimal, error) {
	if request.Amount != nil && request.Units != nil {
		return decimal.Zero, customError.WrapValidation("units", "cannot be combined with amount")
	}

	if request.Amount != nil {
		amount := utils.RoundMoney(*request.Amount)
		if !amount.IsPositive() {
			return decimal.Zero, customError.WrapInvalidAmount("amount", *request.Amount)
		}
		return amount, nil
	}

	if request.Units != nil {
		if request.Type != domain.ContributionTypeShare {
			return decimal.Zero, customError.WrapValidation("units", "only SHARE contributions can be given in units")
		}
		if *request.Units <= 0 {
			return decimal.Zero, customError.WrapValidation("units", "must be greater than zero")
		}
		return s.shareUnitValue().Mul(decimal.NewFromInt(int64(*request.Units))), nil
	}

	return decimal.Zero, customError.WrapInvalidAmount("amount", nil)
}

func (s *MemberService) ListContributions(ctx context.Context, memberID uuid.UUID) ([]*domain.Contribution, error) {
	if _, err := s.GetMember(ctx, memberID); err != nil {
		return nil, err
	}

	contributions, err := s.ContributionRepo.ListByMemberID(ctx, memberID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return contributions, nil
}

// CreatePenalty records a penalty and adds it to the member's total
func (s *MemberService) CreatePenalty(ctx context.Context, request *domain.CreatePenaltyRequest) (*domain.Penalty, error) {
	amount := utils.RoundMoney(request.Amount)
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidAmount("amount", request.Amount)
	}

	now := s.now()
	penalty := &domain.Penalty{
		ID:          uuid.New(),
		MemberID:    request.MemberID,
		Amount:      amount,
		PenaltyDate: utils.DateOrToday(request.PenaltyDate, now),
		Reason:      request.Reason,
		CreatedAt:   now,
	}

	if _, err := s.ContributionRepo.CreatePenalty(ctx, penalty); err != nil {
		return nil, mapCreditError(request.MemberID, "penalty", err)
	}
	return penalty, nil
}

func mapCreditError(memberID uuid.UUID, operation string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return customError.WrapMemberNotFound(memberID.String())
	case errors.Is(err, repository.ErrTxAborted):
		return customError.WrapTransactionFailure(operation, err)
	default:
		return customError.WrapDatabaseError(err)
	}
}
