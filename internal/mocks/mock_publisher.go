package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/coop-ledger/internal/event"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLoanCompleted(ctx context.Context, e event.LoanCompletedEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) PublishContributionCreated(ctx context.Context, e event.ContributionCreatedEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) PublishYearEndCleared(ctx context.Context, e event.YearEndClearedEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
