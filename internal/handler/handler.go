package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/coop-ledger/internal/domain"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/response"
)

// LoanService is the loan accounting surface the HTTP layer needs.
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	RecordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.LoanPayment, error)
	UpdateLoanStatus(ctx context.Context, loanID uuid.UUID, status domain.LoanStatus) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error
	ListLoans(ctx context.Context) ([]*domain.Loan, error)
	ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetailResponse, error)
	GetOutstanding(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}

type MemberService interface {
	ListMembers(ctx context.Context) ([]*domain.Member, error)
	GetMember(ctx context.Context, memberID uuid.UUID) (*domain.Member, error)
	CreateMember(ctx context.Context, request *domain.CreateMemberRequest) (*domain.Member, error)
	UpdateMember(ctx context.Context, memberID uuid.UUID, request *domain.UpdateMemberRequest) (*domain.Member, error)
	CreateContribution(ctx context.Context, request *domain.CreateContributionRequest) (*domain.Contribution, error)
	ListContributions(ctx context.Context, memberID uuid.UUID) ([]*domain.Contribution, error)
	CreatePenalty(ctx context.Context, request *domain.CreatePenaltyRequest) (*domain.Penalty, error)
}

type DashboardService interface {
	Summary(ctx context.Context) (*domain.LedgerSummary, error)
	Snapshots(ctx context.Context) ([]domain.LedgerSnapshot, error)
}

type YearEndService interface {
	Preview(ctx context.Context, basis domain.DistributionBasis) (*domain.DistributionReport, error)
	CachedPreview(ctx context.Context) (*domain.DistributionReport, error)
	ClearYearData(ctx context.Context, confirmation string) (*domain.ClearResult, error)
}

// NewValidator returns a validator that understands decimal amounts.
// decimal_gt0 requires a value strictly greater than zero.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and validates it
func decodeAndValidate(r *http.Request, v *validator.Validate, dst interface{}) error {
	if r.Body == nil {
		return customError.WrapValidation("body", "request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return customError.WrapValidation("body", err.Error())
	}

	if err := v.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return customError.WrapValidation(fe.Field(), fmt.Sprintf("failed %q check", fe.Tag()))
		}
		return customError.WrapValidation("body", err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, customError.WrapValidation(name, "must be a valid UUID")
	}
	return id, nil
}

// respondError writes err and logs server-side failures. A transaction
// failure means recorded rows and aggregates may disagree and is logged as
// an alert.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, customError.ErrTransactionFailure):
		logger.ErrorContext(r.Context(), "ledger transaction failed",
			"alert", true,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	case response.StatusFor(err) >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	response.FromError(w, err)
}
