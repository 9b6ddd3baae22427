package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService service.UserService
	logger      *logrus.Logger
	config      *configs.Config
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *logrus.Logger, config *configs.Config) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
		config:      config,
	}
}

// Create handles onboarding a user together with their wallet
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var userCreate models.UserCreate
	if !decode(w, r, &userCreate) {
		return
	}

	user, err := h.userService.Create(r.Context(), &userCreate)
	if err != nil {
		respondError(w, h.logger, "create user", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "user created successfully", user)
}

// Me handles retrieving the authenticated user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), actor.UserID)
	if err != nil {
		respondError(w, h.logger, "get user", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "user retrieved successfully", user)
}

// GetByID handles retrieving any user by ID
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "get user", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "user retrieved successfully", user)
}
