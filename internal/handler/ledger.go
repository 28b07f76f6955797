package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/response"
)

// LedgerHandler serves the dashboard and the year-end operations.
type LedgerHandler struct {
	dashboard DashboardService
	yearEnd   YearEndService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewLedgerHandler(dashboard DashboardService, yearEnd YearEndService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		dashboard: dashboard,
		yearEnd:   yearEnd,
		validator: NewValidator(),
		logger:    logger.With("component", "LedgerHandler"),
	}
}

func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, summary)
}

func (h *LedgerHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.dashboard.Snapshots(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, snapshots)
}

// Distribution previews the year-end payout. ?basis=accrued|paid_only
// overrides the configured basis.
func (h *LedgerHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	basis := domain.DistributionBasis(r.URL.Query().Get("basis"))

	report, err := h.yearEnd.Preview(r.Context(), basis)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, report)
}

// LatestDistribution returns the last preview computed by the scheduler or a
// previous request. Data is null when nothing is cached.
func (h *LedgerHandler) LatestDistribution(w http.ResponseWriter, r *http.Request) {
	report, err := h.yearEnd.CachedPreview(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, report)
}

// ClearYearData wipes the year's transactions after checking the
// confirmation phrase.
func (h *LedgerHandler) ClearYearData(w http.ResponseWriter, r *http.Request) {
	var req domain.ClearYearDataRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.WarnContext(r.Context(), "year-end clear requested", "remote_addr", r.RemoteAddr)

	result, err := h.yearEnd.ClearYearData(r.Context(), req.Confirmation)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.WarnContext(r.Context(), "year-end data cleared",
		"payments_deleted", result.PaymentsDeleted,
		"loans_deleted", result.LoansDeleted,
		"contributions_deleted", result.ContributionsDeleted,
		"penalties_deleted", result.PenaltiesDeleted,
		"members_reset", result.MembersReset,
	)
	response.Success(w, result)
}
