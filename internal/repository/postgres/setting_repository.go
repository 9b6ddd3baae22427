package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microfinance-service/internal/models"
)

// SettingRepo is a gorm implementation of the repository.SettingRepository interface
type SettingRepo struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepo
func NewSettingRepository(db *gorm.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

// Get gets a setting by key
func (r *SettingRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("setting %q: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// Upsert creates or replaces a setting
func (r *SettingRepo) Upsert(ctx context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}
