// Package scheduler runs the periodic ledger jobs: the nightly dashboard
// snapshot and the year-end distribution preview.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
)

const defaultJobTimeout = 5 * time.Minute

type Snapshotter interface {
	TakeSnapshot(ctx context.Context) (*domain.LedgerSummary, error)
}

type Previewer interface {
	Preview(ctx context.Context, basis domain.DistributionBasis) (*domain.DistributionReport, error)
}

// Job is one named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// SnapshotJob stores the current dashboard totals in the snapshot history.
type SnapshotJob struct {
	dashboard Snapshotter
	logger    *slog.Logger
}

func NewSnapshotJob(dashboard Snapshotter, logger *slog.Logger) *SnapshotJob {
	return &SnapshotJob{dashboard: dashboard, logger: logger}
}

func (j *SnapshotJob) Name() string { return "ledger-snapshot" }

func (j *SnapshotJob) Run(ctx context.Context) error {
	summary, err := j.dashboard.TakeSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("take snapshot: %w", err)
	}
	j.logger.InfoContext(ctx, "ledger snapshot stored",
		"members", summary.MemberCount,
		"active_loans", summary.ActiveLoanCount,
		"cash_on_hand", summary.GrandTotalCashOnHand.StringFixed(2),
	)
	return nil
}

// PreviewJob computes the year-end distribution ahead of the clear so the
// officers can review it. It never clears anything.
type PreviewJob struct {
	yearEnd Previewer
	logger  *slog.Logger
}

func NewPreviewJob(yearEnd Previewer, logger *slog.Logger) *PreviewJob {
	return &PreviewJob{yearEnd: yearEnd, logger: logger}
}

func (j *PreviewJob) Name() string { return "year-end-preview" }

func (j *PreviewJob) Run(ctx context.Context) error {
	report, err := j.yearEnd.Preview(ctx, "")
	if err != nil {
		return fmt.Errorf("compute preview: %w", err)
	}
	j.logger.InfoContext(ctx, "year-end preview computed",
		"basis", report.Summary.Basis,
		"members", report.Summary.MemberCount,
		"total_distribution", report.Summary.TotalDistribution.StringFixed(2),
	)
	return nil
}

// New creates a cron runner in the configured time zone. Specs include a
// seconds field.
func New(cfg *config.Config) *cron.Cron {
	return cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetSchedulerLocation()))
}

// Schedule registers job under spec. Each run gets its own timeout and
// logs its outcome.
func Schedule(c *cron.Cron, spec string, job Job, logger *slog.Logger) (cron.EntryID, error) {
	jobLogger := logger.With("job_name", job.Name())

	id, err := c.AddJob(spec, cron.FuncJob(func() {
		runJob(job, jobLogger, defaultJobTimeout)
	}))
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	jobLogger.Info("job scheduled", "schedule", spec, "job_id", id)
	return id, nil
}

func runJob(job Job, logger *slog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	logger.Info("job started")
	if err := job.Run(ctx); err != nil {
		logger.Error("job finished with error", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("job finished", "duration", time.Since(start))
}
