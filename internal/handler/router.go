package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/traceid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/segyhp/coop-ledger/internal/metrics"
	"github.com/segyhp/coop-ledger/pkg/response"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Member      *MemberHandler
	Loan        *LoanHandler
	Ledger      *LedgerHandler
	Health      *HealthHandler
	RateLimiter *RateLimiter
}

// NewRouter wires the HTTP API under /api/v1 plus health and metrics.
func NewRouter(h Handlers, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	router.Use(traceid.Middleware)
	router.Use(response.LoggingMiddleware(logger))
	router.Use(response.RecoveryMiddleware(logger))
	router.Use(metrics.Middleware)
	router.Use(response.CORSMiddleware)

	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/members", h.Member.ListMembers).Methods(http.MethodGet)
	api.HandleFunc("/members", h.Member.CreateMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{memberId}", h.Member.GetMember).Methods(http.MethodGet)
	api.HandleFunc("/members/{memberId}", h.Member.UpdateMember).Methods(http.MethodPatch)
	api.HandleFunc("/members/{memberId}/contributions", h.Member.ListContributions).Methods(http.MethodGet)
	api.HandleFunc("/members/{memberId}/contributions", h.Member.CreateContribution).Methods(http.MethodPost)
	api.HandleFunc("/members/{memberId}/penalties", h.Member.CreatePenalty).Methods(http.MethodPost)

	api.HandleFunc("/loans", h.Loan.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.Loan.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}", h.Loan.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Loan.DeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{loanId}/outstanding", h.Loan.GetOutstanding).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/status", h.Loan.UpdateLoanStatus).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{loanId}/payments", h.Loan.ListLoanPayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", h.Loan.CreateLoanPayment).Methods(http.MethodPost)

	api.HandleFunc("/dashboard", h.Ledger.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/snapshots", h.Ledger.Snapshots).Methods(http.MethodGet)
	api.HandleFunc("/year-end/distribution", h.Ledger.Distribution).Methods(http.MethodGet)
	api.HandleFunc("/year-end/distribution/latest", h.Ledger.LatestDistribution).Methods(http.MethodGet)

	clearHandler := http.Handler(http.HandlerFunc(h.Ledger.ClearYearData))
	if h.RateLimiter != nil {
		clearHandler = h.RateLimiter.Middleware(clearHandler)
	}
	api.Handle("/year-end/clear", clearHandler).Methods(http.MethodPost)

	return router
}
