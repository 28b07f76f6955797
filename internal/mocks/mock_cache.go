package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/coop-ledger/internal/domain"
)

type MockYearEndCache struct {
	mock.Mock
	Released int
}

func (m *MockYearEndCache) PreviewGeneration(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockYearEndCache) StorePreview(ctx context.Context, report *domain.DistributionReport, generation int64) (bool, error) {
	args := m.Called(ctx, report, generation)
	return args.Bool(0), args.Error(1)
}

func (m *MockYearEndCache) LoadPreview(ctx context.Context) (*domain.DistributionReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DistributionReport), args.Error(1)
}

func (m *MockYearEndCache) InvalidatePreview(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// AcquireClearLock returns (acquired, err) from the expectation. The release
// func counts calls in Released.
func (m *MockYearEndCache) AcquireClearLock(ctx context.Context) (func(context.Context) error, bool, error) {
	args := m.Called(ctx)
	if !args.Bool(0) || args.Error(1) != nil {
		return nil, args.Bool(0), args.Error(1)
	}
	return func(context.Context) error {
		m.Released++
		return nil
	}, true, nil
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) StoreSnapshot(ctx context.Context, summary *domain.LedgerSummary, takenAt time.Time) error {
	args := m.Called(ctx, summary, takenAt)
	return args.Error(0)
}

func (m *MockSnapshotStore) Snapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerSnapshot), args.Error(1)
}
