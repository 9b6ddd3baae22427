package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"microfinance-service/internal/models"
)

// PlanRepo reads loan and deposit plan templates through gorm
type PlanRepo struct {
	db *gorm.DB
}

// NewPlanRepository creates a new PlanRepo
func NewPlanRepository(db *gorm.DB) *PlanRepo {
	return &PlanRepo{db: db}
}

// GetLoanPlan gets a loan plan template by ID
func (r *PlanRepo) GetLoanPlan(ctx context.Context, id int) (*models.LoanPlan, error) {
	var plan models.LoanPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loan plan %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get loan plan: %w", err)
	}
	return &plan, nil
}

// GetDepositPlan gets a deposit plan template by ID
func (r *PlanRepo) GetDepositPlan(ctx context.Context, id int) (*models.DepositPlan, error) {
	var plan models.DepositPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("deposit plan %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deposit plan: %w", err)
	}
	return &plan, nil
}

// AutoMigrate creates the tables of the gorm-backed stores
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.LoanPlan{},
		&models.DepositPlan{},
		&models.Setting{},
		&models.AgentAssignment{},
	); err != nil {
		return fmt.Errorf("failed to migrate stores: %w", err)
	}
	return nil
}
