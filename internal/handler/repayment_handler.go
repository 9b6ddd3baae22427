package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// RepaymentHandler handles collection, correction and agent hand-over requests
type RepaymentHandler struct {
	collectionService service.CollectionService
	correctionService service.CorrectionService
	logger            *logrus.Logger
}

// NewRepaymentHandler creates a new RepaymentHandler
func NewRepaymentHandler(collectionService service.CollectionService, correctionService service.CorrectionService, logger *logrus.Logger) *RepaymentHandler {
	return &RepaymentHandler{
		collectionService: collectionService,
		correctionService: correctionService,
		logger:            logger,
	}
}

// Collect handles recording an installment payment
func (h *RepaymentHandler) Collect(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req models.CollectionRequest
	if !decode(w, r, &req) {
		return
	}
	req.Actor = actor

	result, err := h.collectionService.Collect(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, "collect repayment", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "repayment recorded", result)
}

// Correct handles reducing a recorded payment
func (h *RepaymentHandler) Correct(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CorrectionRequest
	if !decode(w, r, &req) {
		return
	}
	req.EmiID = id
	req.Actor = actor

	result, err := h.correctionService.Correct(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, "correct repayment", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "repayment corrected", result)
}

// Reconcile handles taking over everything an agent has collected
func (h *RepaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.collectionService.ReconcileAgent(r.Context(), agentID, actor)
	if err != nil {
		respondError(w, h.logger, "reconcile agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent collections reconciled", result)
}
