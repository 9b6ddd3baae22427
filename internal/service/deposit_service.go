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

// DepositSvc is an implementation of the service.DepositService interface
type DepositSvc struct {
	repos    *repository.Repository
	logger   *logrus.Logger
	config   *configs.Config
	notifier NotificationService
	locks    *PlanLocks
	now      func() time.Time
}

// NewDepositService creates a new DepositSvc
func NewDepositService(deps Dependencies) *DepositSvc {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}
	if deps.Locks == nil {
		deps.Locks = NewPlanLocks()
	}

	return &DepositSvc{
		repos:    deps.Repos,
		logger:   deps.Logger,
		config:   deps.Config,
		notifier: deps.Notifier,
		locks:    deps.Locks,
		now:      deps.now,
	}
}

func (s *DepositSvc) account(deposit *models.Deposit) string {
	if deposit.Kind == models.DepositKindFixed {
		return formatAccount(s.config.Ledger.FDPrefix, deposit.ID)
	}
	return formatAccount(s.config.Ledger.RDPrefix, deposit.ID)
}

// Apply creates a pending deposit
func (s *DepositSvc) Apply(ctx context.Context, app *models.DepositApplication) (*models.Deposit, error) {
	plan, err := s.repos.Plan.GetDepositPlan(ctx, app.PlanID)
	if err != nil {
		return nil, fmt.Errorf("deposit plan: %w", err)
	}

	if err := app.ValidateDepositApplication(plan); err != nil {
		return nil, fmt.Errorf("invalid deposit application: %w", err)
	}

	if err := checkReferrer(ctx, s.repos, app.UserID, app.ReferrerID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(applyKey(models.CategoryDeposit, app.UserID))
	defer unlock()

	pending, err := s.repos.Deposit.CountPending(ctx, app.UserID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, models.ErrDuplicatePending
	}

	deposit := app.ToDeposit(plan)
	id, err := s.repos.Deposit.Create(ctx, deposit)
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}
	deposit.ID = id

	s.logger.Infof("%s deposit %d applied by user %d for %s", deposit.Kind, id, app.UserID, deposit.Amount.StringFixed(2))

	return deposit, nil
}

// Approve activates a pending deposit. A recurring deposit gets its installment
// schedule; a fixed deposit is funded at once into the approver's wallet.
func (s *DepositSvc) Approve(ctx context.Context, id int, actor models.Actor) (*models.Deposit, error) {
	unlock := s.locks.Lock(planKey(models.CategoryDeposit, id))
	defer unlock()

	var deposit *models.Deposit

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		deposit, err = tx.Deposit.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if deposit.Status != models.PlanStatusPending {
			return fmt.Errorf("deposit %d is %s: %w", id, deposit.Status, models.ErrInvalidState)
		}

		start := s.now()
		if deposit.StartDate != nil {
			start = *deposit.StartDate
		}

		switch deposit.Kind {
		case models.DepositKindFixed:
			note := fmt.Sprintf("Fixed deposit %s", s.account(deposit))
			if _, err := postToUser(ctx, tx, actor.UserID, models.TransactionTypeCredit, deposit.Amount, decimal.Zero, note); err != nil {
				return fmt.Errorf("failed to fund deposit: %w", err)
			}
			deposit.TotalPaid = deposit.Amount
			deposit.MaturityDate = datePtr(start.AddDate(0, deposit.Tenure, 0))
		default:
			total := deposit.Amount.Mul(decimal.NewFromInt(int64(deposit.Tenure)))
			dues, err := models.GenerateDueSchedule(deposit.ID, models.CategoryDeposit, start, deposit.Tenure, deposit.PaymentFrequency, deposit.Amount, total)
			if err != nil {
				return err
			}
			if err := tx.Due.CreateBatch(ctx, dues); err != nil {
				return err
			}

			maturity, err := models.MaturityDate(start, deposit.Tenure, deposit.PaymentFrequency)
			if err != nil {
				return err
			}
			deposit.MaturityDate = datePtr(maturity)
		}

		deposit.StartDate = datePtr(start)
		deposit.Status = models.PlanStatusActive

		return tx.Deposit.Update(ctx, deposit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"deposit_id": deposit.ID,
		"kind":       deposit.Kind,
		"approver":   actor.UserID,
	}).Info("Deposit approved")

	template := TemplateRecurringDepositApprove
	if deposit.Kind == models.DepositKindFixed {
		template = TemplateFixedDepositApproved
	}
	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   deposit.UserID,
		template: template,
		subject:  "Deposit opened",
		values: []TemplateValue{
			{Key: "account", Value: s.account(deposit)},
			{Key: "amount", Value: deposit.Amount.StringFixed(2)},
			{Key: "maturity", Value: deposit.MaturityDate.Format("02-01-2006")},
		},
	})

	return deposit, nil
}

// Reject closes a pending deposit
func (s *DepositSvc) Reject(ctx context.Context, id int, remark string, actor models.Actor) (*models.Deposit, error) {
	unlock := s.locks.Lock(planKey(models.CategoryDeposit, id))
	defer unlock()

	var deposit *models.Deposit

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		deposit, err = tx.Deposit.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if deposit.Status != models.PlanStatusPending {
			return fmt.Errorf("deposit %d is %s: %w", id, deposit.Status, models.ErrInvalidState)
		}

		deposit.Amount = decimal.Zero
		deposit.TotalPaid = decimal.Zero
		deposit.Status = models.PlanStatusRejected
		deposit.Remark = remark

		return tx.Deposit.Update(ctx, deposit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Deposit %d rejected by user %d", id, actor.UserID)

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   deposit.UserID,
		template: TemplateRejectedReason,
		subject:  "Deposit application rejected",
		values:   []TemplateValue{{Key: "reason", Value: remark}},
	})

	return deposit, nil
}

// Settle pays a deposit out of the settler's wallet and closes it
func (s *DepositSvc) Settle(ctx context.Context, id int, req *models.SettleRequest, actor models.Actor) (*models.Deposit, error) {
	if err := req.ValidateSettleRequest(models.CategoryDeposit); err != nil {
		return nil, fmt.Errorf("invalid settlement: %w", err)
	}

	if !req.Fee.IsZero() {
		return nil, fmt.Errorf("deposit payouts carry no fee: %w", models.ErrInvalidAmount)
	}

	unlock := s.locks.Lock(planKey(models.CategoryDeposit, id))
	defer unlock()

	var deposit *models.Deposit

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		deposit, err = tx.Deposit.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if deposit.Status != models.PlanStatusActive && deposit.Status != models.PlanStatusMatured {
			return fmt.Errorf("deposit %d is %s: %w", id, deposit.Status, models.ErrInvalidState)
		}

		note := fmt.Sprintf("Payout of %s", s.account(deposit))
		if _, err := postToUser(ctx, tx, actor.UserID, models.TransactionTypeDebit, req.Amount, decimal.Zero, note); err != nil {
			return fmt.Errorf("failed to pay out deposit: %w", err)
		}

		deposit.PayoutAmount = req.Amount
		deposit.Status = req.SettleType
		deposit.Remark = req.Remark

		return tx.Deposit.Update(ctx, deposit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"deposit_id": deposit.ID,
		"settler":    actor.UserID,
		"payout":     req.Amount.StringFixed(2),
		"type":       req.SettleType,
	}).Info("Deposit settled")

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   deposit.UserID,
		template: settleTemplate(deposit.Kind, req.SettleType),
		subject:  "Deposit closed",
		values: []TemplateValue{
			{Key: "account", Value: s.account(deposit)},
			{Key: "amount", Value: req.Amount.StringFixed(2)},
		},
	})

	return deposit, nil
}

func settleTemplate(kind models.DepositKind, status models.PlanStatus) string {
	matured := status == models.PlanStatusMatured
	switch {
	case kind == models.DepositKindFixed && matured:
		return TemplateFixedDepositMature
	case kind == models.DepositKindFixed:
		return TemplateFixedDepositClosed
	case matured:
		return TemplateRecurringDepositMature
	default:
		return TemplateRecurringDepositClosed
	}
}

// GetByID gets a deposit by ID
func (s *DepositSvc) GetByID(ctx context.Context, id int, actor models.Actor) (*models.Deposit, error) {
	deposit, err := s.repos.Deposit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := canView(actor, deposit.UserID); err != nil {
		return nil, err
	}

	return deposit, nil
}

// GetByUserID gets all deposits of a user
func (s *DepositSvc) GetByUserID(ctx context.Context, userID int) ([]*models.Deposit, error) {
	return s.repos.Deposit.GetByUserID(ctx, userID)
}

// GetDues gets the installment schedule of a recurring deposit
func (s *DepositSvc) GetDues(ctx context.Context, id int, actor models.Actor) ([]*models.DueRecord, *models.DueSummary, error) {
	if _, err := s.GetByID(ctx, id, actor); err != nil {
		return nil, nil, err
	}

	dues, err := s.repos.Due.GetByPlan(ctx, id, models.CategoryDeposit)
	if err != nil {
		return nil, nil, err
	}

	return dues, models.CalculateDueSummary(dues), nil
}

// GetRepayments gets the collection events of a deposit
func (s *DepositSvc) GetRepayments(ctx context.Context, id int, actor models.Actor) ([]*models.EmiRecord, error) {
	if _, err := s.GetByID(ctx, id, actor); err != nil {
		return nil, err
	}

	return s.repos.Emi.GetByPlan(ctx, id, models.CategoryDeposit)
}

// UpdateReferrer replaces or clears the referrer of a deposit
func (s *DepositSvc) UpdateReferrer(ctx context.Context, id int, referrerID *int) (*models.Deposit, error) {
	unlock := s.locks.Lock(planKey(models.CategoryDeposit, id))
	defer unlock()

	var deposit *models.Deposit

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		deposit, err = tx.Deposit.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := checkReferrer(ctx, tx, deposit.UserID, referrerID); err != nil {
			return err
		}

		deposit.ReferrerID = referrerID
		return tx.Deposit.Update(ctx, deposit)
	})
	if err != nil {
		return nil, err
	}

	return deposit, nil
}

// AssignAgent lets an agent collect on a deposit
func (s *DepositSvc) AssignAgent(ctx context.Context, id, agentID int) error {
	if _, err := s.repos.Deposit.GetByID(ctx, id); err != nil {
		return err
	}
	return assignAgent(ctx, s.repos, models.CategoryDeposit, id, agentID)
}

// UnassignAgent removes an agent from a deposit
func (s *DepositSvc) UnassignAgent(ctx context.Context, id, agentID int) error {
	return s.repos.Assignment.Unassign(ctx, agentID, id, models.CategoryDeposit)
}
