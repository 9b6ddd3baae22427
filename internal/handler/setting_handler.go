package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

// SettingHandler handles settings requests
type SettingHandler struct {
	settingService service.SettingService
	logger         *logrus.Logger
}

// NewSettingHandler creates a new SettingHandler
func NewSettingHandler(settingService service.SettingService, logger *logrus.Logger) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		logger:         logger,
	}
}

// Get handles reading one setting
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settingService.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		respondError(w, h.logger, "get setting", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "setting retrieved successfully", setting)
}

// Upsert handles creating or replacing one setting
func (h *SettingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var setting models.Setting
	if !decode(w, r, &setting) {
		return
	}
	setting.Key = mux.Vars(r)["key"]

	if err := h.settingService.Upsert(r.Context(), &setting); err != nil {
		respondError(w, h.logger, "update setting", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "setting updated", setting)
}
