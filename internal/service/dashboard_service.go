package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
)

var errSnapshotsDisabled = errors.New("snapshot store is not configured")

// SnapshotStore keeps dated copies of the dashboard totals.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, summary *domain.LedgerSummary, takenAt time.Time) error
	Snapshots(ctx context.Context) ([]domain.LedgerSnapshot, error)
}

// DashboardService serves the ledger totals. Totals are always recomputed
// from the store; snapshots are history only.
type DashboardService struct {
	MemberRepo  repository.MemberRepository
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	snapshots   SnapshotStore
	now         func() time.Time
}

// NewDashboardService creates a dashboard service. snapshots may be nil when
// redis is disabled.
func NewDashboardService(
	memberRepo repository.MemberRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	snapshots SnapshotStore,
) *DashboardService {
	return &DashboardService{
		MemberRepo:  memberRepo,
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		snapshots:   snapshots,
		now:         time.Now,
	}
}

// Summary aggregates the current ledger, rounded for presentation
func (s *DashboardService) Summary(ctx context.Context) (*domain.LedgerSummary, error) {
	snapshot, err := loadLedger(ctx, s.MemberRepo, s.LoanRepo, s.PaymentRepo)
	if err != nil {
		return nil, err
	}
	return Aggregate(snapshot.members, snapshot.loans, snapshot.payments).Rounded(), nil
}

// TakeSnapshot stores the current summary in the snapshot history
func (s *DashboardService) TakeSnapshot(ctx context.Context) (*domain.LedgerSummary, error) {
	if s.snapshots == nil {
		return nil, customError.WrapCacheError(errSnapshotsDisabled)
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.StoreSnapshot(ctx, summary, s.now()); err != nil {
		return nil, customError.WrapCacheError(err)
	}
	return summary, nil
}

// Snapshots returns the stored history, newest first. Without a snapshot
// store the history is empty.
func (s *DashboardService) Snapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	if s.snapshots == nil {
		return []domain.LedgerSnapshot{}, nil
	}
	snapshots, err := s.snapshots.Snapshots(ctx)
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}
	return snapshots, nil
}

type ledgerData struct {
	members  []*domain.Member
	loans    []*domain.Loan
	payments []*domain.LoanPayment
}

// loadLedger reads the three collections concurrently. The first store error
// cancels the other reads.
func loadLedger(ctx context.Context, memberRepo repository.MemberRepository, loanRepo repository.LoanRepository, paymentRepo repository.PaymentRepository) (*ledgerData, error) {
	var data ledgerData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		data.members, err = memberRepo.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.loans, err = loanRepo.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.payments, err = paymentRepo.List(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return &data, nil
}
