package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// SettingSvc is an implementation of the service.SettingService interface
type SettingSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
}

// NewSettingService creates a new SettingSvc
func NewSettingService(deps Dependencies) *SettingSvc {
	return &SettingSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
	}
}

// Get gets a setting by key
func (s *SettingSvc) Get(ctx context.Context, key string) (*models.Setting, error) {
	return s.repos.Setting.Get(ctx, key)
}

// Upsert creates or replaces a setting
func (s *SettingSvc) Upsert(ctx context.Context, setting *models.Setting) error {
	setting.Key = strings.TrimSpace(setting.Key)
	if setting.Key == "" {
		return errors.New("setting key is required")
	}

	if err := s.repos.Setting.Upsert(ctx, setting); err != nil {
		return err
	}

	s.logger.Infof("Setting %s updated", setting.Key)
	return nil
}
