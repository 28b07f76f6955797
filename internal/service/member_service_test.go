package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/event"
	"github.com/segyhp/coop-ledger/internal/mocks"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
)

type memberFixture struct {
	memberRepo       *mocks.MockMemberRepository
	contributionRepo *mocks.MockContributionRepository
	publisher        *mocks.MockPublisher
	service          *MemberService
}

func newMemberFixture(cfg *config.Config) *memberFixture {
	f := &memberFixture{
		memberRepo:       &mocks.MockMemberRepository{},
		contributionRepo: &mocks.MockContributionRepository{},
		publisher:        &mocks.MockPublisher{},
	}
	f.service = NewMemberService(f.memberRepo, f.contributionRepo, f.publisher, cfg)
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func intPtr(i int) *int {
	return &i
}

func TestCreateMember_DefaultsJoinDate(t *testing.T) {
	f := newMemberFixture(nil)
	f.memberRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Member")).Return(nil)

	member, err := f.service.CreateMember(context.Background(), &domain.CreateMemberRequest{
		FullName: "  Maria Santos ",
	})

	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", member.FullName)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), member.JoinDate)
	assert.True(t, member.TotalShares.IsZero())
	assert.True(t, member.TotalSocialFund.IsZero())
	assert.True(t, member.TotalPenalties.IsZero())
}

func TestCreateMember_BlankName(t *testing.T) {
	f := newMemberFixture(nil)

	_, err := f.service.CreateMember(context.Background(), &domain.CreateMemberRequest{FullName: "   "})

	assert.ErrorIs(t, err, customError.ErrValidation)
	f.memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateMember_PartialUpdate(t *testing.T) {
	f := newMemberFixture(nil)
	contact := "0917 000 0000"
	existing := &domain.Member{ID: uuid.New(), FullName: "Jose", ContactInfo: &contact, TotalShares: dec("500")}
	newContact := "jose@example.com"

	f.memberRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.memberRepo.On("Update", mock.Anything, existing).Return(nil)

	updated, err := f.service.UpdateMember(context.Background(), existing.ID, &domain.UpdateMemberRequest{
		ContactInfo: &newContact,
	})

	require.NoError(t, err)
	assert.Equal(t, "Jose", updated.FullName)
	assert.Equal(t, newContact, *updated.ContactInfo)
	assert.True(t, updated.TotalShares.Equal(dec("500")))
}

func TestUpdateMember_NotFound(t *testing.T) {
	f := newMemberFixture(nil)
	id := uuid.New()
	f.memberRepo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

	name := "Nobody"
	_, err := f.service.UpdateMember(context.Background(), id, &domain.UpdateMemberRequest{FullName: &name})

	assert.ErrorIs(t, err, customError.ErrMemberNotFound)
	assert.Equal(t, customError.ErrCodeMemberNotFound, customError.Code(err))
}

func TestCreateContribution_ShareUnits(t *testing.T) {
	cfg := &config.Config{Business: config.BusinessConfig{ShareUnitValue: "500"}}
	f := newMemberFixture(cfg)
	memberID := uuid.New()

	f.contributionRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Contribution) bool {
		return c.MemberID == memberID && c.Amount.Equal(dec("1000"))
	})).Return(&domain.Member{ID: memberID, TotalShares: dec("1000")}, nil)
	f.publisher.On("PublishContributionCreated", mock.Anything, mock.MatchedBy(func(e event.ContributionCreatedEvent) bool {
		return e.MemberID == memberID && e.Type == domain.ContributionTypeShare
	})).Return(nil)

	contribution, err := f.service.CreateContribution(context.Background(), &domain.CreateContributionRequest{
		MemberID: memberID,
		Type:     domain.ContributionTypeShare,
		Units:    intPtr(2),
	})

	require.NoError(t, err)
	assert.Equal(t, "1000.00", contribution.Amount.StringFixed(2))
	f.contributionRepo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestCreateContribution_SocialFundAmount(t *testing.T) {
	f := newMemberFixture(nil)
	memberID := uuid.New()
	f.contributionRepo.On("Create", mock.Anything, mock.Anything).Return(&domain.Member{ID: memberID}, nil)
	f.publisher.On("PublishContributionCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	contribution, err := f.service.CreateContribution(context.Background(), &domain.CreateContributionRequest{
		MemberID: memberID,
		Type:     domain.ContributionTypeSocialFund,
		Amount:   decPtr("300"),
	})

	require.NoError(t, err, "publish failures must not fail the write")
	assert.Equal(t, domain.ContributionTypeSocialFund, contribution.Type)
	assert.True(t, contribution.Amount.Equal(dec("300")))
}

func TestCreateContribution_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		request *domain.CreateContributionRequest
	}{
		{name: "unknown type", request: &domain.CreateContributionRequest{Type: "DONATION", Amount: decPtr("10")}},
		{name: "missing amount", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeShare}},
		{name: "zero amount", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeShare, Amount: decPtr("0")}},
		{name: "negative amount", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeSocialFund, Amount: decPtr("-1")}},
		{name: "units on social fund", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeSocialFund, Units: intPtr(1)}},
		{name: "zero units", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeShare, Units: intPtr(0)}},
		{name: "amount and units", request: &domain.CreateContributionRequest{Type: domain.ContributionTypeShare, Amount: decPtr("100"), Units: intPtr(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMemberFixture(nil)
			tt.request.MemberID = uuid.New()

			_, err := f.service.CreateContribution(context.Background(), tt.request)

			assert.ErrorIs(t, err, customError.ErrValidation)
			f.contributionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateContribution_StoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{name: "unknown member", repoErr: sql.ErrNoRows, wantErr: customError.ErrMemberNotFound},
		{name: "insert failed after credit", repoErr: repository.ErrTxAborted, wantErr: customError.ErrTransactionFailure},
		{name: "store down", repoErr: errors.New("timeout"), wantErr: customError.ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMemberFixture(nil)
			f.contributionRepo.On("Create", mock.Anything, mock.Anything).Return(nil, tt.repoErr)

			_, err := f.service.CreateContribution(context.Background(), &domain.CreateContributionRequest{
				MemberID: uuid.New(),
				Type:     domain.ContributionTypeShare,
				Amount:   decPtr("500"),
			})

			assert.ErrorIs(t, err, tt.wantErr)
			f.publisher.AssertNotCalled(t, "PublishContributionCreated", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePenalty(t *testing.T) {
	f := newMemberFixture(nil)
	memberID := uuid.New()
	reason := "late payment"
	f.contributionRepo.On("CreatePenalty", mock.Anything, mock.MatchedBy(func(p *domain.Penalty) bool {
		return p.MemberID == memberID && p.Amount.Equal(dec("25.50"))
	})).Return(&domain.Member{ID: memberID, TotalPenalties: dec("25.50")}, nil)

	penalty, err := f.service.CreatePenalty(context.Background(), &domain.CreatePenaltyRequest{
		MemberID: memberID,
		Amount:   dec("25.5"),
		Reason:   &reason,
	})

	require.NoError(t, err)
	assert.Equal(t, &reason, penalty.Reason)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), penalty.PenaltyDate)
}

func TestCreatePenalty_RejectsNonPositive(t *testing.T) {
	f := newMemberFixture(nil)

	_, err := f.service.CreatePenalty(context.Background(), &domain.CreatePenaltyRequest{
		MemberID: uuid.New(),
		Amount:   dec("0"),
	})

	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
}

func TestListContributions_UnknownMember(t *testing.T) {
	f := newMemberFixture(nil)
	id := uuid.New()
	f.memberRepo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

	_, err := f.service.ListContributions(context.Background(), id)

	assert.ErrorIs(t, err, customError.ErrMemberNotFound)
}
