package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// CorrectionSvc is an implementation of the service.CorrectionService interface
type CorrectionSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	locks  *PlanLocks
	now    func() time.Time
}

// NewCorrectionService creates a new CorrectionSvc
func NewCorrectionService(deps Dependencies) *CorrectionSvc {
	if deps.Locks == nil {
		deps.Locks = NewPlanLocks()
	}

	return &CorrectionSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		locks:  deps.Locks,
		now:    deps.now,
	}
}

// Correct lowers the amount and fee of a recorded collection. For loans the
// event is rolled back from every installment it touched and the corrected
// budgets are run through the waterfall again.
func (s *CorrectionSvc) Correct(ctx context.Context, req *models.CorrectionRequest) (*models.CorrectionResult, error) {
	// The plan is not known until the record is read
	peek, err := s.repos.Emi.GetByID(ctx, req.EmiID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(planKey(peek.Category, peek.PlanID))
	defer unlock()

	var result *models.CorrectionResult

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		original, err := tx.Emi.GetByIDForUpdate(ctx, req.EmiID)
		if err != nil {
			return err
		}

		if req.Actor.Role == models.RoleAgent {
			if original.CollectedBy != req.Actor.UserID || original.Status != models.EmiStatusCollected {
				return fmt.Errorf("agents may only correct their own unreconciled collections: %w", models.ErrUnauthorized)
			}
		}

		if err := req.ValidateCorrectionRequest(original); err != nil {
			return err
		}

		plan, err := lockPlan(ctx, tx, original.Category, original.PlanID)
		if err != nil {
			return err
		}

		delta := original.Amount.Sub(req.Amount)
		feeDelta := original.LateFee.Sub(req.Fee)

		result = &models.CorrectionResult{Reversed: delta.Add(feeDelta)}

		// An unchanged amount and fee leaves the installments as they are
		if plan.isLoan() && !result.Reversed.IsZero() {
			allocation, err := s.reallocate(ctx, tx, original.ID, req)
			if err != nil {
				return err
			}
			result.Allocation = allocation
		}

		// Rewrite the event in place
		original.Amount = req.Amount
		original.LateFee = req.Fee
		original.PayDate = req.PayDate
		original.TotalPaid = original.TotalPaid.Sub(delta)
		if req.Remark != "" {
			original.Remark = req.Remark
		}
		if err := tx.Emi.Update(ctx, original); err != nil {
			return fmt.Errorf("failed to update emi record: %w", err)
		}

		plan.addPaid(delta.Neg())
		if plan.isLoan() && delta.IsPositive() && plan.loan.Status != models.PlanStatusActive && plan.loan.TotalPaid.LessThan(plan.loan.TotalPayable) {
			plan.loan.Status = models.PlanStatusActive
			result.Reopened = true
		}
		if err := plan.save(ctx, tx); err != nil {
			return fmt.Errorf("failed to update %s: %w", plan.category(), err)
		}

		// Take the difference back from whoever holds the money
		if result.Reversed.IsPositive() {
			var holder *int
			switch original.Status {
			case models.EmiStatusPaid:
				holder = &original.CollectedBy
			case models.EmiStatusHold:
				holder = original.HoldBy
			}

			if holder != nil {
				note := fmt.Sprintf("Correction of emi %d on %s", original.ID, plan.accountNumber(s.config.Ledger))
				if _, err := postToUser(ctx, tx, *holder, models.TransactionTypeDebit, result.Reversed, feeDelta, note); err != nil {
					return fmt.Errorf("failed to reverse collection: %w", err)
				}
			}
		}

		result.Emi = original
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"emi_id":   result.Emi.ID,
		"plan_id":  result.Emi.PlanID,
		"category": result.Emi.Category,
		"reversed": result.Reversed.StringFixed(2),
		"actor":    req.Actor.UserID,
	}).Info("Collection corrected")

	return result, nil
}

func (s *CorrectionSvc) reallocate(ctx context.Context, tx *repository.Repository, emiID int, req *models.CorrectionRequest) (*models.Allocation, error) {
	rows, err := tx.Emi.GetAllocations(ctx, emiID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}

	ids := make([]int, 0, len(rows))
	for _, cfg := range rows {
		ids = append(ids, cfg.DueID)
	}

	dues, err := tx.Due.GetByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock dues: %w", err)
	}

	byID := make(map[int]*models.DueRecord, len(dues))
	for _, due := range dues {
		byID[due.ID] = due
	}

	entries := make([]models.RollbackEntry, 0, len(rows))
	for _, cfg := range rows {
		due, ok := byID[cfg.DueID]
		if !ok {
			return nil, fmt.Errorf("due %d of emi %d not found: %w", cfg.DueID, emiID, models.ErrIntegrity)
		}

		entry, err := models.NewRollbackEntry(due, cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	allocation, err := models.Reallocate(req.Amount, req.Fee, entries, s.now())
	if err != nil {
		return nil, err
	}

	if err := applyLines(ctx, tx, dues, allocation.Lines, emiID, req.PayDate); err != nil {
		return nil, err
	}

	return allocation, nil
}
