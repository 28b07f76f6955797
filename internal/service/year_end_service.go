package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/event"
	"github.com/segyhp/coop-ledger/internal/metrics"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
)

// DefaultConfirmationPhrase is accepted by ClearYearData when no phrase is
// configured.
const DefaultConfirmationPhrase = "CLEAR YEAR-END DATA"

// YearEndCache stores the latest distribution preview and serialises
// year-end clears across server instances.
type YearEndCache interface {
	PreviewGeneration(ctx context.Context) (int64, error)
	StorePreview(ctx context.Context, report *domain.DistributionReport, generation int64) (stored bool, err error)
	LoadPreview(ctx context.Context) (*domain.DistributionReport, error)
	InvalidatePreview(ctx context.Context) error
	AcquireClearLock(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

// YearEndService computes the year-end payout and performs the period-close
// reset.
type YearEndService struct {
	MemberRepo  repository.MemberRepository
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	LedgerRepo  repository.LedgerRepository
	cache       YearEndCache
	publisher   event.Publisher
	config      *config.Config
	now         func() time.Time
}

// NewYearEndService creates a year-end service. cache and publisher may be
// nil.
func NewYearEndService(
	memberRepo repository.MemberRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	cache YearEndCache,
	publisher event.Publisher,
	config *config.Config,
) *YearEndService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &YearEndService{
		MemberRepo:  memberRepo,
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		LedgerRepo:  ledgerRepo,
		cache:       cache,
		publisher:   publisher,
		config:      config,
		now:         time.Now,
	}
}

func (s *YearEndService) defaultBasis() domain.DistributionBasis {
	if s.config == nil {
		return domain.DistributionAccrued
	}
	return s.config.GetDistributionBasis()
}

func (s *YearEndService) confirmationPhrase() string {
	if s.config == nil || strings.TrimSpace(s.config.Business.ConfirmationPhrase) == "" {
		return DefaultConfirmationPhrase
	}
	return s.config.Business.ConfirmationPhrase
}

// Preview computes the distribution from the current ledger. An empty basis
// uses the configured one. The report is cached on a best effort basis, and
// not at all if a clear invalidated the cache while it was being computed.
func (s *YearEndService) Preview(ctx context.Context, basis domain.DistributionBasis) (*domain.DistributionReport, error) {
	if basis == "" {
		basis = s.defaultBasis()
	}
	if _, err := domain.ParseDistributionBasis(string(basis)); err != nil {
		return nil, customError.WrapValidation("basis", err.Error())
	}

	// Read before loading so a clear committed in between is detected.
	var (
		generation int64
		genErr     error
	)
	if s.cache != nil {
		generation, genErr = s.cache.PreviewGeneration(ctx)
	}

	ledger, err := loadLedger(ctx, s.MemberRepo, s.LoanRepo, s.PaymentRepo)
	if err != nil {
		return nil, err
	}

	report := ComputeDistribution(ledger.members, ledger.loans, ledger.payments, basis)

	if s.cache != nil && genErr == nil {
		_, _ = s.cache.StorePreview(ctx, report, generation)
	}
	return report, nil
}

// CachedPreview returns the last stored preview, or nil when none is cached.
func (s *YearEndService) CachedPreview(ctx context.Context) (*domain.DistributionReport, error) {
	if s.cache == nil {
		return nil, nil
	}
	report, err := s.cache.LoadPreview(ctx)
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}
	return report, nil
}

// ClearYearData deletes every payment, loan, contribution and penalty and
// zeroes member balances. The phrase guards against accidental triggering;
// it is not an authorization check.
func (s *YearEndService) ClearYearData(ctx context.Context, confirmation string) (*domain.ClearResult, error) {
	expected := s.confirmationPhrase()
	if subtle.ConstantTimeCompare([]byte(confirmation), []byte(expected)) != 1 {
		metrics.YearEndClear("rejected")
		return nil, customError.WrapConfirmationRequired()
	}

	if s.cache != nil {
		release, acquired, err := s.cache.AcquireClearLock(ctx)
		if err != nil {
			metrics.YearEndClear("failed")
			return nil, customError.WrapCacheError(err)
		}
		if !acquired {
			metrics.YearEndClear("rejected")
			return nil, customError.WrapClearInProgress()
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}

	result, err := s.LedgerRepo.ClearYearData(ctx)
	if err != nil {
		metrics.YearEndClear("failed")
		if errors.Is(err, repository.ErrTxAborted) {
			return nil, customError.WrapTransactionFailure("year-end clear", err)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	metrics.YearEndClear("success")

	now := s.now()
	if s.cache != nil {
		_ = s.cache.InvalidatePreview(ctx)
	}
	_ = s.publisher.PublishYearEndCleared(ctx, event.YearEndClearedEvent{
		Result:    *result,
		ClearedAt: now,
	})

	return result, nil
}
