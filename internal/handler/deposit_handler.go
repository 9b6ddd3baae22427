package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// DepositHandler handles deposit-related HTTP requests
type DepositHandler struct {
	depositService service.DepositService
	logger         *logrus.Logger
}

// NewDepositHandler creates a new DepositHandler
func NewDepositHandler(depositService service.DepositService, logger *logrus.Logger) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
		logger:         logger,
	}
}

type depositApplicationRequest struct {
	models.DepositApplication
	UserID int `json:"user_id"`
}

// Apply handles a deposit application
func (h *DepositHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req depositApplicationRequest
	if !decode(w, r, &req) {
		return
	}

	req.DepositApplication.UserID = actor.UserID
	if actor.Role != models.RoleCustomer && req.UserID > 0 {
		req.DepositApplication.UserID = req.UserID
	}

	deposit, err := h.depositService.Apply(r.Context(), &req.DepositApplication)
	if err != nil {
		respondError(w, h.logger, "apply for deposit", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "deposit application submitted", deposit)
}

// GetAll handles retrieving the deposits of a user
func (h *DepositHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	userID, ok := targetUser(w, r, actor)
	if !ok {
		return
	}

	deposits, err := h.depositService.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "get deposits", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "deposits retrieved successfully", deposits)
}

// GetByID handles retrieving a specific deposit
func (h *DepositHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	deposit, err := h.depositService.GetByID(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get deposit", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "deposit retrieved successfully", deposit)
}

// GetDues handles retrieving the installment schedule of a deposit
func (h *DepositHandler) GetDues(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dues, summary, err := h.depositService.GetDues(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get deposit dues", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "installments retrieved successfully", map[string]interface{}{
		"dues":    dues,
		"summary": summary,
	})
}

// GetRepayments handles retrieving the collection history of a deposit
func (h *DepositHandler) GetRepayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	records, err := h.depositService.GetRepayments(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "get deposit repayments", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "repayments retrieved successfully", records)
}

// Approve handles opening a pending deposit
func (h *DepositHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	deposit, err := h.depositService.Approve(r.Context(), id, actor)
	if err != nil {
		respondError(w, h.logger, "approve deposit", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "deposit approved", deposit)
}

// Reject handles rejecting a pending deposit
func (h *DepositHandler) Reject(w http.ResponseWriter, r *http.Request) {
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

	deposit, err := h.depositService.Reject(r.Context(), id, req.Remark, actor)
	if err != nil {
		respondError(w, h.logger, "reject deposit", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "deposit rejected", deposit)
}

// Settle handles paying out a deposit
func (h *DepositHandler) Settle(w http.ResponseWriter, r *http.Request) {
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

	deposit, err := h.depositService.Settle(r.Context(), id, &req, actor)
	if err != nil {
		respondError(w, h.logger, "settle deposit", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "deposit settled", deposit)
}

// UpdateReferrer handles replacing the referrer of a deposit
func (h *DepositHandler) UpdateReferrer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.ReferrerRequest
	if !decode(w, r, &req) {
		return
	}

	deposit, err := h.depositService.UpdateReferrer(r.Context(), id, req.ReferrerID)
	if err != nil {
		respondError(w, h.logger, "update deposit referrer", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "referrer updated", deposit)
}

// AssignAgent handles assigning an agent to a deposit
func (h *DepositHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AssignRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.depositService.AssignAgent(r.Context(), id, req.AgentID); err != nil {
		respondError(w, h.logger, "assign agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent assigned", nil)
}

// UnassignAgent handles removing an agent from a deposit
func (h *DepositHandler) UnassignAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "agent_id")
	if !ok {
		return
	}

	if err := h.depositService.UnassignAgent(r.Context(), id, agentID); err != nil {
		respondError(w, h.logger, "unassign agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent unassigned", nil)
}
