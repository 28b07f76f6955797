package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/handler"
	"github.com/segyhp/coop-ledger/internal/mocks"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
)

type testServer struct {
	loans     *mocks.MockLoanService
	members   *mocks.MockMemberService
	dashboard *mocks.MockDashboardService
	yearEnd   *mocks.MockYearEndService
	logs      *bytes.Buffer
	router    http.Handler
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestServer(rateLimit config.RateLimitConfig) *testServer {
	s := &testServer{
		loans:     &mocks.MockLoanService{},
		members:   &mocks.MockMemberService{},
		dashboard: &mocks.MockDashboardService{},
		yearEnd:   &mocks.MockYearEndService{},
		logs:      &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(s.logs, nil))

	s.router = handler.NewRouter(handler.Handlers{
		Member:      handler.NewMemberHandler(s.members, logger),
		Loan:        handler.NewLoanHandler(s.loans, logger),
		Ledger:      handler.NewLedgerHandler(s.dashboard, s.yearEnd, logger),
		Health:      handler.NewHealthHandler(pingFunc(func(context.Context) error { return nil }), nil, time.Second),
		RateLimiter: handler.NewRateLimiter(rateLimit, logger),
	}, logger)
	return s
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestCreateLoan(t *testing.T) {
	memberID := uuid.New()

	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "creates loan",
			body: map[string]interface{}{"member_id": memberID, "principal_amount": "10000", "term_months": 12},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.MemberID == memberID && req.PrincipalAmount.Equal(decimal.NewFromInt(10000)) && *req.TermMonths == 12
				})).Return(&domain.Loan{
					ID:                  uuid.New(),
					MemberID:            memberID,
					PrincipalAmount:     decimal.NewFromInt(10000),
					ServiceChargeAmount: decimal.NewFromInt(200),
					Status:              domain.LoanStatusApproved,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "zero principal",
			body:           map[string]interface{}{"member_id": memberID, "principal_amount": "0"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "negative principal",
			body:           map[string]interface{}{"member_id": memberID, "principal_amount": -5},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "missing principal",
			body:           map[string]interface{}{"member_id": memberID},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "missing member",
			body:           map[string]interface{}{"principal_amount": "100"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name:           "malformed json",
			body:           `{"member_id":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name: "unknown member",
			body: map[string]interface{}{"member_id": memberID, "principal_amount": "100"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.Anything).
					Return(nil, customError.WrapMemberNotFound(memberID.String())).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeMemberNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(config.RateLimitConfig{})
			if tt.setupMock != nil {
				tt.setupMock(s.loans)
			}

			w := s.do(http.MethodPost, "/api/v1/loans", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.expectedCode, env.Code)
			if tt.setupMock == nil {
				s.loans.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
			}
			s.loans.AssertExpectations(t)
		})
	}
}

func TestCreateLoanPayment(t *testing.T) {
	loanID := uuid.New()

	t.Run("service charge without amount", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})
		s.loans.On("RecordPayment", mock.Anything, mock.MatchedBy(func(req *domain.MakePaymentRequest) bool {
			return req.LoanID == loanID && req.PaymentType == domain.PaymentTypeServiceCharge && req.Amount == nil
		})).Return(&domain.LoanPayment{
			ID:          uuid.New(),
			LoanID:      loanID,
			Amount:      decimal.NewFromInt(200),
			PaymentType: domain.PaymentTypeServiceCharge,
		}, nil)

		w := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", map[string]string{"payment_type": "SERVICE_CHARGE"})

		require.Equal(t, http.StatusCreated, w.Code)
		var payment domain.LoanPayment
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &payment))
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(200)))
	})

	t.Run("invalid loan id", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})

		w := s.do(http.MethodPost, "/api/v1/loans/not-a-uuid/payments", map[string]string{"payment_type": "PRINCIPAL"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.loans.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
	})

	t.Run("nothing outstanding", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})
		s.loans.On("RecordPayment", mock.Anything, mock.Anything).
			Return(nil, customError.WrapNoOutstandingBalance(loanID.String(), "service charge"))

		w := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", map[string]string{"payment_type": "SERVICE_CHARGE"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, customError.ErrCodeNoOutstandingBalance, decodeEnvelope(t, w).Code)
	})

	t.Run("transaction failure is logged as alert", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})
		s.loans.On("RecordPayment", mock.Anything, mock.Anything).
			Return(nil, customError.WrapTransactionFailure("loan payment", errors.New("commit failed")))

		w := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", map[string]interface{}{"payment_type": "PRINCIPAL", "amount": "10"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, customError.ErrCodeTransactionFailure, decodeEnvelope(t, w).Code)
		assert.Contains(t, s.logs.String(), `"alert":true`)
		assert.NotContains(t, w.Body.String(), "commit failed")
	})
}

func TestUpdateLoanStatus(t *testing.T) {
	loanID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})
	s.loans.On("UpdateLoanStatus", mock.Anything, loanID, domain.LoanStatusApproved).
		Return(nil, customError.WrapInvalidStatusTransition(loanID.String(), "COMPLETED", "APPROVED"))

	w := s.do(http.MethodPatch, "/api/v1/loans/"+loanID.String()+"/status", map[string]string{"status": "APPROVED"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, customError.ErrCodeInvalidStatusTransition, decodeEnvelope(t, w).Code)
}

func TestDeleteLoan(t *testing.T) {
	loanID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})
	s.loans.On("DeleteLoan", mock.Anything, loanID).Return(nil)

	w := s.do(http.MethodDelete, "/api/v1/loans/"+loanID.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	s.loans.AssertExpectations(t)
}

func TestListLoanPayments_NotFound(t *testing.T) {
	loanID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})
	s.loans.On("ListLoanPayments", mock.Anything, loanID).Return(nil, customError.WrapLoanNotFound(loanID.String()))

	w := s.do(http.MethodGet, "/api/v1/loans/"+loanID.String()+"/payments", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateContribution(t *testing.T) {
	memberID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})
	s.members.On("CreateContribution", mock.Anything, mock.MatchedBy(func(req *domain.CreateContributionRequest) bool {
		return req.MemberID == memberID && req.Type == domain.ContributionTypeShare && *req.Units == 2
	})).Return(&domain.Contribution{ID: uuid.New(), MemberID: memberID, Type: domain.ContributionTypeShare, Amount: decimal.NewFromInt(1000)}, nil)

	w := s.do(http.MethodPost, "/api/v1/members/"+memberID.String()+"/contributions", map[string]interface{}{"type": "SHARE", "units": 2})

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	s.members.AssertExpectations(t)
}

func TestCreatePenalty_Validation(t *testing.T) {
	memberID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})

	w := s.do(http.MethodPost, "/api/v1/members/"+memberID.String()+"/penalties", map[string]string{"amount": "0"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.members.AssertNotCalled(t, "CreatePenalty", mock.Anything, mock.Anything)
}

func TestMembers(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})
	member := &domain.Member{ID: uuid.New(), FullName: "Rosa"}
	s.members.On("ListMembers", mock.Anything).Return([]*domain.Member{member}, nil)
	s.members.On("CreateMember", mock.Anything, mock.MatchedBy(func(req *domain.CreateMemberRequest) bool {
		return req.FullName == "Rosa"
	})).Return(member, nil)
	s.members.On("GetMember", mock.Anything, member.ID).Return(member, nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/members", nil).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/members", map[string]string{"full_name": "Rosa"}).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/members/"+member.ID.String(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/members", map[string]string{}).Code)
}

func TestDistribution_PassesBasis(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})
	report := &domain.DistributionReport{Summary: domain.DistributionSummary{Basis: domain.DistributionPaidOnly}}
	s.yearEnd.On("Preview", mock.Anything, domain.DistributionPaidOnly).Return(report, nil)
	s.yearEnd.On("Preview", mock.Anything, domain.DistributionBasis("")).Return(report, nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/year-end/distribution?basis=paid_only", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/year-end/distribution", nil).Code)
	s.yearEnd.AssertExpectations(t)
}

func TestClearYearData(t *testing.T) {
	t.Run("wrong phrase", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})
		s.yearEnd.On("ClearYearData", mock.Anything, "yes").Return(nil, customError.WrapConfirmationRequired())

		w := s.do(http.MethodPost, "/api/v1/year-end/clear", map[string]string{"confirmation": "yes"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, customError.ErrCodeConfirmationRequired, decodeEnvelope(t, w).Code)
	})

	t.Run("cleared", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{})
		s.yearEnd.On("ClearYearData", mock.Anything, "CLEAR YEAR-END DATA").
			Return(&domain.ClearResult{LoansDeleted: 3, MembersReset: 5}, nil)

		w := s.do(http.MethodPost, "/api/v1/year-end/clear", map[string]string{"confirmation": "CLEAR YEAR-END DATA"})

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.ClearResult
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
		assert.Equal(t, int64(3), result.LoansDeleted)
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newTestServer(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1})
		s.yearEnd.On("ClearYearData", mock.Anything, mock.Anything).Return(nil, customError.WrapConfirmationRequired())

		first := s.do(http.MethodPost, "/api/v1/year-end/clear", map[string]string{"confirmation": "nope"})
		second := s.do(http.MethodPost, "/api/v1/year-end/clear", map[string]string{"confirmation": "nope"})

		assert.Equal(t, http.StatusForbidden, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		s.yearEnd.AssertNumberOfCalls(t, "ClearYearData", 1)
	})
}

func TestDashboard(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})
	s.dashboard.On("Summary", mock.Anything).Return(&domain.LedgerSummary{
		GrandTotalCashOnHand: decimal.RequireFromString("1300.00"),
		MemberCount:          1,
	}, nil)

	w := s.do(http.MethodGet, "/api/v1/dashboard", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.LedgerSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &summary))
	assert.Equal(t, 1, summary.MemberCount)
	assert.True(t, summary.GrandTotalCashOnHand.Equal(decimal.NewFromInt(1300)))
}

func TestHealth(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
	ready := s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"redis":"disabled"`)
}

func TestReady_DatabaseDown(t *testing.T) {
	h := handler.NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("connection refused") }), nil, time.Second)

	w := httptest.NewRecorder()
	h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestGetOutstanding(t *testing.T) {
	loanID := uuid.New()
	s := newTestServer(config.RateLimitConfig{})
	s.loans.On("GetOutstanding", mock.Anything, loanID).Return(decimal.RequireFromString("6200.00"), nil)

	w := s.do(http.MethodGet, "/api/v1/loans/"+loanID.String()+"/outstanding", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data domain.OutstandingResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, loanID.String(), data.LoanID)
	assert.Equal(t, "6200", data.Outstanding.String())

	w = s.do(http.MethodGet, "/api/v1/loans/not-a-uuid/outstanding", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestDistribution(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})
	s.yearEnd.On("CachedPreview", mock.Anything).Return(nil, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/year-end/distribution/latest", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data
	assert.True(t, len(data) == 0 || string(data) == "null", string(data))
	s.yearEnd.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(config.RateLimitConfig{})

	w := s.do(http.MethodGet, "/api/v1/schedules", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}
