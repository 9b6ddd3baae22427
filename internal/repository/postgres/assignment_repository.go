package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microfinance-service/internal/models"
)

// AssignmentRepo is a gorm implementation of the repository.AssignmentRepository interface
type AssignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new AssignmentRepo
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// Assign links an agent to a plan. Assigning twice is a no-op.
func (r *AssignmentRepo) Assign(ctx context.Context, assignment *models.AgentAssignment) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(assignment).Error
	if err != nil {
		return fmt.Errorf("failed to assign agent: %w", err)
	}
	return nil
}

// Unassign removes an agent from a plan
func (r *AssignmentRepo) Unassign(ctx context.Context, agentID, planID int, category models.Category) error {
	result := r.db.WithContext(ctx).
		Where("agent_id = ? AND plan_id = ? AND category = ?", agentID, planID, category).
		Delete(&models.AgentAssignment{})
	if result.Error != nil {
		return fmt.Errorf("failed to unassign agent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("assignment of agent %d to %s %d: %w", agentID, category, planID, models.ErrNotFound)
	}
	return nil
}

// IsAssigned reports whether an agent may collect on a plan
func (r *AssignmentRepo) IsAssigned(ctx context.Context, agentID, planID int, category models.Category) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AgentAssignment{}).
		Where("agent_id = ? AND plan_id = ? AND category = ?", agentID, planID, category).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return count > 0, nil
}
