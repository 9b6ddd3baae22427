package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService service.LoanService
	logger      *logrus.Logger
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService service.LoanService, logger *logrus.Logger) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

type loanApplicationRequest struct {
	models.LoanApplication
	UserID int `json:"user_id"`
}

// Apply handles a loan application. Staff may apply on behalf of a customer.
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req loanApplicationRequest
	if !decode(w, r, &req) {
		return
	}

	req.LoanApplication.UserID = actor.UserID
	if actor.Role != models.RoleCustomer && req.UserID > 0 {
		req.LoanApplication.UserID = req.UserID
	}

	loan, err := h.loanService.Apply(r.Context(), &req.LoanApplication)
	if err != nil {
		respondError(w, h.logger, "apply for loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "loan application submitted", loan)
}

// GetAll handles retrieving the loans of a user
func (h *LoanHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	userID, ok := targetUser(w, r, actor)
	if !ok {
		return
	}

	loans, err := h.loanService.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "get loans", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loans retrieved successfully", loans)
}

// GetByID handles retrieving a specific loan
func (h *LoanHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	loan, err := h.loanService.GetByID(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan retrieved successfully", loan)
}

// GetDues handles retrieving the due schedule of a loan
func (h *LoanHandler) GetDues(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dues, summary, err := h.loanService.GetDues(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get loan dues", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "due schedule retrieved successfully", map[string]interface{}{
		"dues":    dues,
		"summary": summary,
	})
}

// GetRepayments handles retrieving the collection history of a loan
func (h *LoanHandler) GetRepayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	records, err := h.loanService.GetRepayments(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get loan repayments", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "repayments retrieved successfully", records)
}

// Approve handles approving and disbursing a pending loan
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	loan, err := h.loanService.Approve(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "approve loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan approved", loan)
}

// Reject handles rejecting a pending loan
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req remarkRequest
	if !decode(w, r, &req) {
		return
	}

	loan, err := h.loanService.Reject(r.Context(), id, req.Remark, actor)
	if err != nil {
		respondError(w, h.logger, "reject loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan rejected", loan)
}

// Settle handles closing an active loan at a negotiated amount
func (h *LoanHandler) Settle(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.SettleRequest
	if !decode(w, r, &req) {
		return
	}

	loan, err := h.loanService.Settle(r.Context(), id, &req, actor)
	if err != nil {
		respondError(w, h.logger, "settle loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan settled", loan)
}

// UpdateReferrer handles replacing the referrer of a loan
func (h *LoanHandler) UpdateReferrer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.ReferrerRequest
	if !decode(w, r, &req) {
		return
	}

	loan, err := h.loanService.UpdateReferrer(r.Context(), id, req.ReferrerID)
	if err != nil {
		respondError(w, h.logger, "update loan referrer", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "referrer updated", loan)
}

// AssignAgent handles assigning an agent to a loan
func (h *LoanHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AssignRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.loanService.AssignAgent(r.Context(), id, req.AgentID); err != nil {
		respondError(w, h.logger, "assign agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent assigned", nil)
}

// UnassignAgent handles removing an agent from a loan
func (h *LoanHandler) UnassignAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "agent_id")
	if !ok {
		return
	}

	if err := h.loanService.UnassignAgent(r.Context(), id, agentID); err != nil {
		respondError(w, h.logger, "unassign agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent unassigned", nil)
}
