package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/loans/{loanId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods("GET")

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/loans/{loanId}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/loans/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/loans/{loanId}", "418"))
	assert.Equal(t, before+1, after)
}

func TestLedgerCounters(t *testing.T) {
	beforePayments := testutil.ToFloat64(paymentsRecorded.WithLabelValues("PRINCIPAL"))
	beforeCompleted := testutil.ToFloat64(loansCompleted)
	beforeFailed := testutil.ToFloat64(yearEndClears.WithLabelValues("failed"))

	PaymentRecorded("PRINCIPAL")
	LoanCompleted()
	YearEndClear("failed")
	RecordDBQuery("ListLoans", errors.New("boom"), 10*time.Millisecond)

	assert.Equal(t, beforePayments+1, testutil.ToFloat64(paymentsRecorded.WithLabelValues("PRINCIPAL")))
	assert.Equal(t, beforeCompleted+1, testutil.ToFloat64(loansCompleted))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(yearEndClears.WithLabelValues("failed")))
}
