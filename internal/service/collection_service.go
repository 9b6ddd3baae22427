package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// CollectionSvc is an implementation of the service.CollectionService interface
type CollectionSvc struct {
	repos    *repository.Repository
	logger   *logrus.Logger
	config   *configs.Config
	notifier NotificationService
	locks    *PlanLocks
}

// NewCollectionService creates a new CollectionSvc
func NewCollectionService(deps Dependencies) *CollectionSvc {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}
	if deps.Locks == nil {
		deps.Locks = NewPlanLocks()
	}

	return &CollectionSvc{
		repos:    deps.Repos,
		logger:   deps.Logger,
		config:   deps.Config,
		notifier: deps.Notifier,
		locks:    deps.Locks,
	}
}

// Collect records one installment payment against a loan or deposit. All ledger
// writes happen in a single transaction.
func (s *CollectionSvc) Collect(ctx context.Context, req *models.CollectionRequest) (*models.CollectionResult, error) {
	if err := req.ValidateCollectionRequest(); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	unlock := s.locks.Lock(planKey(req.Category, req.PlanID))
	defer unlock()

	var (
		result  *models.CollectionResult
		plan    *ledgerPlan
		skipped bool
	)

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		plan, err = lockPlan(ctx, tx, req.Category, req.PlanID)
		if err != nil {
			return err
		}

		if plan.status() != models.PlanStatusActive {
			return fmt.Errorf("%s %d is %s: %w", plan.category(), plan.id(), plan.status(), models.ErrInvalidState)
		}

		if req.Actor.Role == models.RoleAgent {
			assigned, err := tx.Assignment.IsAssigned(ctx, req.Actor.UserID, plan.id(), plan.category())
			if err != nil {
				return fmt.Errorf("failed to check assignment: %w", err)
			}
			if !assigned {
				return fmt.Errorf("agent %d is not assigned to %s %d: %w", req.Actor.UserID, plan.category(), plan.id(), models.ErrUnauthorized)
			}
		}

		// Run the payment through the open installments
		dues, err := tx.Due.GetOutstanding(ctx, plan.id(), plan.category())
		if err != nil {
			return fmt.Errorf("failed to load dues: %w", err)
		}

		owed := decimal.Zero
		owedFee := decimal.Zero
		for _, due := range dues {
			owed = owed.Add(due.OutstandingAmount())
			owedFee = owedFee.Add(due.OutstandingFee())
		}

		// With the principal cleared only late fees remain and the amount stays unallocated
		if plan.isLoan() && owed.IsPositive() && req.Amount.GreaterThan(owed) {
			return fmt.Errorf("payment %s exceeds outstanding %s: %w", req.Amount.StringFixed(2), owed.StringFixed(2), models.ErrInvalidAmount)
		}

		allocation, err := models.Allocate(req.Amount, req.Fee, dues)
		if err != nil {
			return err
		}

		closed := plan.isLoan() && req.Amount.GreaterThanOrEqual(owed) && req.Fee.GreaterThanOrEqual(owedFee)

		// Update the plan
		plan.addPaid(req.Amount)
		if plan.isLoan() {
			plan.loan.LastRepayment = datePtr(req.PayDate)
			if closed {
				plan.loan.Status = models.PlanStatusClosed
			}
		}
		if err := plan.save(ctx, tx); err != nil {
			return fmt.Errorf("failed to update %s: %w", plan.category(), err)
		}

		// Record the collection event
		emi := &models.EmiRecord{
			PlanID:      plan.id(),
			Category:    plan.category(),
			Amount:      req.Amount,
			LateFee:     req.Fee,
			TotalPaid:   plan.totalPaid(),
			PayDate:     req.PayDate,
			Status:      models.EmiStatusCollected,
			CollectedBy: req.Actor.UserID,
			Remark:      req.Remark,
		}
		if req.Actor.IsTrustedCollector() {
			emi.Status = models.EmiStatusPaid
		}

		emiID, err := tx.Emi.Create(ctx, emi)
		if err != nil {
			return fmt.Errorf("failed to create emi record: %w", err)
		}
		emi.ID = emiID

		if err := applyLines(ctx, tx, dues, allocation.Lines, emiID, req.PayDate); err != nil {
			return err
		}

		// Money taken by the office lands in the collector's wallet now
		if req.Actor.IsTrustedCollector() {
			note := fmt.Sprintf("Collection on %s", plan.accountNumber(s.config.Ledger))
			if _, err := postToUser(ctx, tx, req.Actor.UserID, models.TransactionTypeCredit, req.Amount.Add(req.Fee), req.Fee, note); err != nil {
				return fmt.Errorf("failed to credit collector: %w", err)
			}
		}

		note := fmt.Sprintf("Commission on %s", plan.accountNumber(s.config.Ledger))
		commission, skip, err := payCommission(ctx, tx, plan, req.Amount, s.config.Ledger.StrictCommission, note)
		if err != nil {
			return err
		}
		skipped = skip

		result = &models.CollectionResult{
			Emi:         emi,
			Allocation:  allocation,
			Closed:      closed,
			Commission:  commission,
			Unallocated: allocation.RemainingAmount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"plan_id":  plan.id(),
		"category": plan.category(),
		"emi_id":   result.Emi.ID,
		"amount":   req.Amount.StringFixed(2),
		"late_fee": req.Fee.StringFixed(2),
		"actor":    req.Actor.UserID,
	})
	if skipped {
		entry.Warnf("Referrer %d has no wallet, commission skipped", *plan.referrerID())
	}
	entry.Infof("Collection recorded, %d installments touched", len(result.Allocation.Lines))

	s.notifyCollection(plan, result)

	return result, nil
}

func (s *CollectionSvc) notifyCollection(plan *ledgerPlan, result *models.CollectionResult) {
	account := plan.accountNumber(s.config.Ledger)
	values := []TemplateValue{
		{Key: "amount", Value: result.Emi.Amount.StringFixed(2)},
		{Key: "account", Value: account},
		{Key: "date", Value: result.Emi.PayDate.Format("02-01-2006")},
	}

	template := TemplateDepositRepayment
	if plan.isLoan() {
		template = TemplateLoanRepayment
	}

	notices := []notice{{userID: plan.userID(), template: template, subject: "Payment received", values: values}}
	if result.Closed {
		notices = append(notices, notice{
			userID:   plan.userID(),
			template: TemplateLoanClosed,
			subject:  "Loan closed",
			values:   []TemplateValue{{Key: "account", Value: account}},
		})
	}

	deliver(s.repos, s.notifier, s.logger, notices...)
}

// applyLines writes each allocation line to its due and stores the audit row
func applyLines(ctx context.Context, tx *repository.Repository, dues []*models.DueRecord, lines []models.AllocationLine, emiID int, payDate time.Time) error {
	byID := make(map[int]*models.DueRecord, len(dues))
	for _, due := range dues {
		byID[due.ID] = due
	}

	for _, line := range lines {
		due, ok := byID[line.DueID]
		if !ok {
			return fmt.Errorf("due %d missing from locked set: %w", line.DueID, models.ErrIntegrity)
		}

		due.PaidAmount = line.PaidAmount
		due.PaidFee = line.PaidFee
		due.Status = line.Status
		switch {
		case line.AmountApplied.IsPositive() || line.FeeApplied.IsPositive():
			due.PayDate = datePtr(payDate)
		case line.PaidAmount.IsZero() && line.PaidFee.IsZero():
			due.PayDate = nil
		}

		if err := tx.Due.Update(ctx, due); err != nil {
			return fmt.Errorf("failed to update due %d: %w", due.ID, err)
		}

		if err := tx.Emi.UpsertAllocation(ctx, line.ToDueEmiConfig(emiID)); err != nil {
			return fmt.Errorf("failed to store allocation for due %d: %w", due.ID, err)
		}
	}

	return nil
}

// ReconcileAgent moves every record an agent still holds into the reconciler's
// custody and credits the reconciler's wallet with the total.
func (s *CollectionSvc) ReconcileAgent(ctx context.Context, agentID int, actor models.Actor) (*models.ReconcileResult, error) {
	if !actor.IsTrustedCollector() {
		return nil, fmt.Errorf("only admins and managers can reconcile agents: %w", models.ErrUnauthorized)
	}

	agent, err := s.repos.User.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != models.RoleAgent {
		return nil, fmt.Errorf("user %d is not an agent: %w", agentID, models.ErrInvalidState)
	}

	result := &models.ReconcileResult{AgentID: agentID, Amount: decimal.Zero, HoldBy: actor.UserID}

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		records, err := tx.Emi.GetCollectedForUpdate(ctx, agentID)
		if err != nil {
			return fmt.Errorf("failed to load collected records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		ids := make([]int, 0, len(records))
		fees := decimal.Zero
		for _, record := range records {
			ids = append(ids, record.ID)
			result.Amount = result.Amount.Add(record.Amount).Add(record.LateFee)
			fees = fees.Add(record.LateFee)
		}
		result.Records = len(records)

		note := fmt.Sprintf("Collections handed over by %s", agent.Name)
		if _, err := postToUser(ctx, tx, actor.UserID, models.TransactionTypeCredit, result.Amount, fees, note); err != nil {
			return fmt.Errorf("failed to credit reconciler: %w", err)
		}

		return tx.Emi.MarkHold(ctx, ids, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"agent_id": agentID,
		"hold_by":  actor.UserID,
		"records":  result.Records,
		"amount":   result.Amount.StringFixed(2),
	}).Info("Agent collections reconciled")

	return result, nil
}
