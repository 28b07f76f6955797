package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/mocks"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
)

func TestDashboardSummary_RecomputesEachCall(t *testing.T) {
	memberRepo := &mocks.MockMemberRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	s := NewDashboardService(memberRepo, loanRepo, paymentRepo, nil)

	memberRepo.On("List", mock.Anything).Return([]*domain.Member{newTestMember("A", "1000.005", "300", "0")}, nil)
	loanRepo.On("List", mock.Anything).Return([]*domain.Loan{}, nil)
	paymentRepo.On("List", mock.Anything).Return([]*domain.LoanPayment{}, nil)

	for i := 0; i < 2; i++ {
		summary, err := s.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1000.01", summary.TotalShares.String())
		assert.Equal(t, "1300.01", summary.GrandTotalCashOnHand.String())
	}

	memberRepo.AssertNumberOfCalls(t, "List", 2)
}

func TestDashboardSummary_StoreError(t *testing.T) {
	memberRepo := &mocks.MockMemberRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	s := NewDashboardService(memberRepo, loanRepo, paymentRepo, nil)

	memberRepo.On("List", mock.Anything).Return([]*domain.Member{}, nil)
	loanRepo.On("List", mock.Anything).Return(nil, errors.New("too many connections"))
	paymentRepo.On("List", mock.Anything).Return([]*domain.LoanPayment{}, nil)

	_, err := s.Summary(context.Background())

	assert.ErrorIs(t, err, customError.ErrStore)
}

func TestTakeSnapshot(t *testing.T) {
	memberRepo := &mocks.MockMemberRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	store := &mocks.MockSnapshotStore{}
	s := NewDashboardService(memberRepo, loanRepo, paymentRepo, store)
	s.now = func() time.Time { return fixedNow }

	memberRepo.On("List", mock.Anything).Return([]*domain.Member{}, nil)
	loanRepo.On("List", mock.Anything).Return([]*domain.Loan{}, nil)
	paymentRepo.On("List", mock.Anything).Return([]*domain.LoanPayment{}, nil)
	store.On("StoreSnapshot", mock.Anything, mock.AnythingOfType("*domain.LedgerSummary"), fixedNow).Return(nil)

	summary, err := s.TakeSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.MemberCount)
	store.AssertExpectations(t)
}

func TestSnapshots_WithoutStore(t *testing.T) {
	s := NewDashboardService(nil, nil, nil, nil)

	snapshots, err := s.Snapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshots)

	_, err = s.TakeSnapshot(context.Background())
	assert.Equal(t, customError.ErrCodeCacheError, customError.Code(err))
}
