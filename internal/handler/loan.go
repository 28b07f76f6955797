package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/response"
)

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewLoanHandler(service LoanService, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger.With("component", "LoanHandler"),
	}
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, loans)
}

// CreateLoan handles POST /loans. The loan starts APPROVED with its service
// charge fixed.
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Created(w, loan)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	detail, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, detail)
}

// GetOutstanding returns what the member still owes on a loan.
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, domain.OutstandingResponse{
		LoanID:      loanID.String(),
		Outstanding: outstanding,
	})
}

func (h *LoanHandler) UpdateLoanStatus(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req domain.UpdateLoanStatusRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	loan, err := h.service.UpdateLoanStatus(r.Context(), loanID, req.Status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "loan deleted", "loan_id", loanID)
	response.NoContent(w)
}

func (h *LoanHandler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	payments, err := h.service.ListLoanPayments(r.Context(), loanID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, payments)
}

// CreateLoanPayment handles POST /loans/{loanId}/payments. SERVICE_CHARGE
// payments settle the whole remaining service charge; any amount sent is
// ignored.
func (h *LoanHandler) CreateLoanPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req domain.MakePaymentRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.LoanID = loanID

	payment, err := h.service.RecordPayment(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Created(w, payment)
}
