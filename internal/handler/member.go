package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/response"
)

type MemberHandler struct {
	service   MemberService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewMemberHandler(service MemberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger.With("component", "MemberHandler"),
	}
}

func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, members)
}

func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMemberRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	member, err := h.service.CreateMember(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Created(w, member)
}

func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, member)
}

func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req domain.UpdateMemberRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), memberID, &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, member)
}

func (h *MemberHandler) CreateContribution(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req domain.CreateContributionRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.MemberID = memberID

	contribution, err := h.service.CreateContribution(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Created(w, contribution)
}

func (h *MemberHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	contributions, err := h.service.ListContributions(r.Context(), memberID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Success(w, contributions)
}

func (h *MemberHandler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req domain.CreatePenaltyRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	req.MemberID = memberID

	penalty, err := h.service.CreatePenalty(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.Created(w, penalty)
}
