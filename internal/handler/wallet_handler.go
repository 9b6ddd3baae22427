package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// WalletHandler handles wallet-related HTTP requests
type WalletHandler struct {
	walletService service.WalletService
	logger        *logrus.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletService service.WalletService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Get handles retrieving a wallet
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := targetUser(w, r, actor)
	if !ok {
		return
	}

	wallet, err := h.walletService.GetWallet(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "get wallet", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "wallet retrieved successfully", wallet)
}

// GetTransactions handles retrieving the ledger of a wallet
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := targetUser(w, r, actor)
	if !ok {
		return
	}

	txns, err := h.walletService.GetTransactions(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "get transactions", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "transactions retrieved successfully", txns)
}

// GetWithdrawals handles retrieving the withdrawals of a wallet
func (h *WalletHandler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := targetUser(w, r, actor)
	if !ok {
		return
	}

	withdrawals, err := h.walletService.GetWithdrawals(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "get withdrawals", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "withdrawals retrieved successfully", withdrawals)
}

// Withdraw handles paying cash out of the caller's wallet
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req models.WithdrawalRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = actor.UserID

	withdrawal, err := h.walletService.Withdraw(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, "withdraw", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "withdrawal completed", withdrawal)
}

// ManualTransaction handles an admin credit or debit of any wallet
func (h *WalletHandler) ManualTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.ManualTransactionRequest
	if !decode(w, r, &req) {
		return
	}

	txn, err := h.walletService.ManualTransaction(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, "post manual transaction", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "transaction posted", txn)
}
