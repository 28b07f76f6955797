// Package metrics exposes the prometheus collectors used by the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status_code"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_db_query_duration_seconds",
		Help:    "Duration of ledger store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_loan_payments_total",
		Help: "Loan payments recorded, by payment type.",
	}, []string{"payment_type"})

	loansCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_loans_completed_total",
		Help: "Loans automatically completed by a principal payment.",
	})

	yearEndClears = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_year_end_clears_total",
		Help: "Year-end clear attempts, by outcome.",
	}, []string{"outcome"})
)

// RecordDBQuery observes the duration of a store operation.
func RecordDBQuery(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	dbQueryDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func PaymentRecorded(paymentType string) {
	paymentsRecorded.WithLabelValues(paymentType).Inc()
}

func LoanCompleted() {
	loansCompleted.Inc()
}

// YearEndClear counts a clear attempt. outcome is one of "success",
// "rejected" or "failed"; "failed" is the alertable case.
func YearEndClear(outcome string) {
	yearEndClears.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

// Middleware records request counts and latencies labelled by route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		code := strconv.Itoa(rec.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, path, code).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}
