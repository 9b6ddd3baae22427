package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"microfinance-service/internal/middleware"
	"microfinance-service/internal/models"
)

// NewRouter wires every endpoint. Everything under /api needs a bearer token;
// staff operations additionally need the listed permission.
func NewRouter(h *Handler, jwtSecret string, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()

	// Protected routes with middleware
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(jwtSecret))
	api.Use(middleware.LogMiddleware(logger))

	guarded := func(path string, f http.HandlerFunc, method string, perms ...models.Permission) {
		api.Handle(path, middleware.RequirePermission(perms...)(f)).Methods(method)
	}

	// User endpoints
	api.HandleFunc("/me", h.User.Me).Methods(http.MethodGet)
	guarded("/users", h.User.Create, http.MethodPost, models.PermUserManagement)
	guarded("/users/{id}", h.User.GetByID, http.MethodGet, models.PermViewUserDetails)

	// Loan endpoints
	api.HandleFunc("/loans", h.Loan.Apply).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Loan.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", h.Loan.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/dues", h.Loan.GetDues).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/repayments", h.Loan.GetRepayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/statement", h.Report.LoanStatement).Methods(http.MethodGet)
	guarded("/loans/{id}/approve", h.Loan.Approve, http.MethodPost, models.PermLoanApproval)
	guarded("/loans/{id}/reject", h.Loan.Reject, http.MethodPost, models.PermLoanApproval)
	guarded("/loans/{id}/settle", h.Loan.Settle, http.MethodPost, models.PermLoanSettlement)
	guarded("/loans/{id}/referrer", h.Loan.UpdateReferrer, http.MethodPut, models.PermLoanApproval)
	guarded("/loans/{id}/agents", h.Loan.AssignAgent, http.MethodPost, models.PermAgentAssignment)
	guarded("/loans/{id}/agents/{agent_id}", h.Loan.UnassignAgent, http.MethodDelete, models.PermAgentAssignment)

	// Deposit endpoints
	api.HandleFunc("/deposits", h.Deposit.Apply).Methods(http.MethodPost)
	api.HandleFunc("/deposits", h.Deposit.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/deposits/{id}", h.Deposit.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/deposits/{id}/dues", h.Deposit.GetDues).Methods(http.MethodGet)
	api.HandleFunc("/deposits/{id}/repayments", h.Deposit.GetRepayments).Methods(http.MethodGet)
	api.HandleFunc("/deposits/{id}/statement", h.Report.DepositStatement).Methods(http.MethodGet)
	guarded("/deposits/{id}/approve", h.Deposit.Approve, http.MethodPost, models.PermDepositApproval)
	guarded("/deposits/{id}/reject", h.Deposit.Reject, http.MethodPost, models.PermDepositApproval)
	guarded("/deposits/{id}/settle", h.Deposit.Settle, http.MethodPost, models.PermDepositMaturity)
	guarded("/deposits/{id}/referrer", h.Deposit.UpdateReferrer, http.MethodPut, models.PermDepositApproval)
	guarded("/deposits/{id}/agents", h.Deposit.AssignAgent, http.MethodPost, models.PermAgentAssignment)
	guarded("/deposits/{id}/agents/{agent_id}", h.Deposit.UnassignAgent, http.MethodDelete, models.PermAgentAssignment)

	// Repayment endpoints
	guarded("/repayments", h.Repayment.Collect, http.MethodPost, models.PermRepaymentCollection)
	guarded("/repayments/{id}", h.Repayment.Correct, http.MethodPut, models.PermRepaymentCorrection)
	guarded("/agents/{id}/reconcile", h.Repayment.Reconcile, http.MethodPost, models.PermAgentCollection)

	// Wallet endpoints
	api.HandleFunc("/wallet", h.Wallet.Get).Methods(http.MethodGet)
	api.HandleFunc("/wallet/transactions", h.Wallet.GetTransactions).Methods(http.MethodGet)
	api.HandleFunc("/wallet/withdrawals", h.Wallet.GetWithdrawals).Methods(http.MethodGet)
	guarded("/wallet/withdrawals", h.Wallet.Withdraw, http.MethodPost, models.PermWithdrawalManagement)
	guarded("/wallet/transactions", h.Wallet.ManualTransaction, http.MethodPost, models.PermUserManagement)

	// Report endpoints
	guarded("/reports/pendings", h.Report.Pendings, http.MethodGet, models.PermAgentCollection)
	guarded("/reports/summary", h.Report.Summary, http.MethodGet, models.PermViewUserDetails)
	guarded("/reports/collections.xlsx", h.Report.ExportXLSX, http.MethodGet, models.PermViewUserDetails)

	// Setting endpoints
	guarded("/settings/{key}", h.Setting.Get, http.MethodGet, models.PermUserManagement)
	guarded("/settings/{key}", h.Setting.Upsert, http.MethodPut, models.PermUserManagement)

	return router
}
