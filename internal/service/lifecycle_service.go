package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// LifecycleSvc is an implementation of the service.LifecycleService interface
type LifecycleSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	now    func() time.Time
}

// NewLifecycleService creates a new LifecycleSvc
func NewLifecycleService(deps Dependencies) *LifecycleSvc {
	return &LifecycleSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		now:    deps.now,
	}
}

// MarkOverdue flips untouched installments whose due date is before today
func (s *LifecycleSvc) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.Due.MarkOverdue(ctx, models.StartOfDay(now))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Infof("Marked %d installments overdue", n)
	}
	return n, nil
}

// MatureDeposits flips active deposits whose maturity date is before today
func (s *LifecycleSvc) MatureDeposits(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.Deposit.MarkMatured(ctx, models.StartOfDay(now))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Infof("Marked %d deposits matured", n)
	}
	return n, nil
}

// RunSweeps runs every sweep once
func (s *LifecycleSvc) RunSweeps(ctx context.Context) error {
	now := s.now()

	if _, err := s.MarkOverdue(ctx, now); err != nil {
		return fmt.Errorf("overdue sweep: %w", err)
	}

	if _, err := s.MatureDeposits(ctx, now); err != nil {
		return fmt.Errorf("maturity sweep: %w", err)
	}

	return nil
}
