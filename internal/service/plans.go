package service

import (
	"context"
	"errors"
	"fmt"

	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// canView lets staff read any plan and customers only their own
func canView(actor models.Actor, ownerID int) error {
	if actor.Role == models.RoleCustomer && actor.UserID != ownerID {
		return fmt.Errorf("plan belongs to another user: %w", models.ErrUnauthorized)
	}
	return nil
}

// checkReferrer verifies that a referrer exists and is not the plan owner
func checkReferrer(ctx context.Context, repos *repository.Repository, ownerID int, referrerID *int) error {
	if referrerID == nil {
		return nil
	}

	if *referrerID == ownerID {
		return errors.New("a user cannot refer their own plan")
	}

	if _, err := repos.User.GetByID(ctx, *referrerID); err != nil {
		return fmt.Errorf("referrer %d: %w", *referrerID, err)
	}

	return nil
}

func assignAgent(ctx context.Context, repos *repository.Repository, category models.Category, planID, agentID int) error {
	agent, err := repos.User.GetByID(ctx, agentID)
	if err != nil {
		return err
	}

	if agent.Role != models.RoleAgent {
		return fmt.Errorf("user %d is not an agent: %w", agentID, models.ErrInvalidState)
	}

	return repos.Assignment.Assign(ctx, &models.AgentAssignment{
		AgentID:  agentID,
		PlanID:   planID,
		Category: category,
	})
}
