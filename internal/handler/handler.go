package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/middleware"
	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// Dependencies contains handler dependencies
type Dependencies struct {
	Services *service.Service
	Logger   *logrus.Logger
	Config   *configs.Config
}

// Handler contains all HTTP handlers for the application
type Handler struct {
	User      *UserHandler
	Loan      *LoanHandler
	Deposit   *DepositHandler
	Repayment *RepaymentHandler
	Wallet    *WalletHandler
	Report    *ReportHandler
	Setting   *SettingHandler
}

// NewHandler creates a new Handler with all subhandlers
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		User:      NewUserHandler(deps.Services.User, deps.Logger, deps.Config),
		Loan:      NewLoanHandler(deps.Services.Loan, deps.Logger),
		Deposit:   NewDepositHandler(deps.Services.Deposit, deps.Logger),
		Repayment: NewRepaymentHandler(deps.Services.Collection, deps.Services.Correction, deps.Logger),
		Wallet:    NewWalletHandler(deps.Services.Wallet, deps.Logger),
		Report:    NewReportHandler(deps.Services.Report, deps.Logger),
		Setting:   NewSettingHandler(deps.Services.Setting, deps.Logger),
	}
}

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrDuplicatePending),
		errors.Is(err, models.ErrAlreadyExists),
		errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrIntegrity):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// respondError logs err and writes it with the status statusFor picks
func respondError(w http.ResponseWriter, logger *logrus.Logger, action string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Errorf("Failed to %s: %v", action, err)
	} else {
		logger.Warnf("Failed to %s: %v", action, err)
	}
	utils.RespondWithError(w, code, err.Error())
}

// actorFrom gets the authenticated caller, writing a 500 when the auth
// middleware did not run
func actorFrom(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "user not found in context")
	}
	return actor, ok
}

// pathID parses the named mux variable as a positive integer
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// decode parses the JSON request body into v
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// targetUser resolves whose records a request is about. Customers always get
// their own; staff may name another user with ?user_id=.
func targetUser(w http.ResponseWriter, r *http.Request, actor models.Actor) (int, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" || actor.Role == models.RoleCustomer {
		return actor.UserID, true
	}

	if !actor.Can(models.PermViewUserDetails) {
		utils.RespondWithError(w, http.StatusForbidden, "permission denied")
		return 0, false
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid user_id")
		return 0, false
	}
	return id, true
}

type remarkRequest struct {
	Remark string `json:"remark"`
}
