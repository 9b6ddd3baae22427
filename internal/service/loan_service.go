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

// LoanSvc is an implementation of the service.LoanService interface
type LoanSvc struct {
	repos    *repository.Repository
	logger   *logrus.Logger
	config   *configs.Config
	notifier NotificationService
	locks    *PlanLocks
	now      func() time.Time
}

// NewLoanService creates a new LoanSvc
func NewLoanService(deps Dependencies) *LoanSvc {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}
	if deps.Locks == nil {
		deps.Locks = NewPlanLocks()
	}

	return &LoanSvc{
		repos:    deps.Repos,
		logger:   deps.Logger,
		config:   deps.Config,
		notifier: deps.Notifier,
		locks:    deps.Locks,
		now:      deps.now,
	}
}

// Apply creates a pending loan priced from its plan template
func (s *LoanSvc) Apply(ctx context.Context, app *models.LoanApplication) (*models.Loan, error) {
	plan, err := s.repos.Plan.GetLoanPlan(ctx, app.PlanID)
	if err != nil {
		return nil, fmt.Errorf("loan plan: %w", err)
	}

	if err := app.ValidateLoanApplication(plan); err != nil {
		return nil, fmt.Errorf("invalid loan application: %w", err)
	}

	if err := checkReferrer(ctx, s.repos, app.UserID, app.ReferrerID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(applyKey(models.CategoryLoan, app.UserID))
	defer unlock()

	pending, err := s.repos.Loan.CountPending(ctx, app.UserID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, models.ErrDuplicatePending
	}

	loan := app.ToLoan(plan)
	id, err := s.repos.Loan.Create(ctx, loan)
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}
	loan.ID = id

	s.logger.Infof("Loan %d applied by user %d for %s", id, app.UserID, loan.Amount.StringFixed(2))

	return loan, nil
}

// Approve activates a pending loan, builds its due schedule and disburses the
// principal out of the approver's wallet.
func (s *LoanSvc) Approve(ctx context.Context, id int, actor models.Actor) (*models.Loan, error) {
	unlock := s.locks.Lock(planKey(models.CategoryLoan, id))
	defer unlock()

	var loan *models.Loan

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		loan, err = tx.Loan.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if loan.Status != models.PlanStatusPending {
			return fmt.Errorf("loan %d is %s: %w", id, loan.Status, models.ErrInvalidState)
		}

		start := s.now()
		if loan.LoanDate != nil {
			start = *loan.LoanDate
		}

		// Generate the due schedule
		dues, err := models.GenerateDueSchedule(loan.ID, models.CategoryLoan, start, loan.Installments, loan.EmiFrequency, loan.EmiAmount, loan.TotalPayable)
		if err != nil {
			return err
		}
		if err := tx.Due.CreateBatch(ctx, dues); err != nil {
			return err
		}

		maturity, err := models.MaturityDate(start, loan.Installments, loan.EmiFrequency)
		if err != nil {
			return err
		}

		loan.LoanDate = datePtr(start)
		loan.MaturityDate = datePtr(maturity)
		loan.Status = models.PlanStatusActive
		if err := tx.Loan.Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}

		note := fmt.Sprintf("Disbursed %s", formatAccount(s.config.Ledger.LoanPrefix, loan.ID))
		if _, err := postToUser(ctx, tx, actor.UserID, models.TransactionTypeDisbursed, loan.Amount, decimal.Zero, note); err != nil {
			return fmt.Errorf("failed to disburse loan: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":  loan.ID,
		"approver": actor.UserID,
		"amount":   loan.Amount.StringFixed(2),
	}).Info("Loan approved")

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   loan.UserID,
		template: TemplateLoanApproved,
		subject:  "Loan approved",
		values: []TemplateValue{
			{Key: "account", Value: formatAccount(s.config.Ledger.LoanPrefix, loan.ID)},
			{Key: "amount", Value: loan.Amount.StringFixed(2)},
			{Key: "emi", Value: loan.EmiAmount.StringFixed(2)},
		},
	})

	return loan, nil
}

// Reject closes a pending loan without disbursing it
func (s *LoanSvc) Reject(ctx context.Context, id int, remark string, actor models.Actor) (*models.Loan, error) {
	unlock := s.locks.Lock(planKey(models.CategoryLoan, id))
	defer unlock()

	var loan *models.Loan

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		loan, err = tx.Loan.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if loan.Status != models.PlanStatusPending {
			return fmt.Errorf("loan %d is %s: %w", id, loan.Status, models.ErrInvalidState)
		}

		loan.Amount = decimal.Zero
		loan.TotalPaid = decimal.Zero
		loan.EmiAmount = decimal.Zero
		loan.TotalPayable = decimal.Zero
		loan.Status = models.PlanStatusRejected
		loan.Remark = remark

		return tx.Loan.Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Loan %d rejected by user %d", id, actor.UserID)

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   loan.UserID,
		template: TemplateRejectedReason,
		subject:  "Loan application rejected",
		values:   []TemplateValue{{Key: "reason", Value: remark}},
	})

	return loan, nil
}

// Settle closes an active loan at a negotiated amount. The payment is recorded
// as a final Paid collection credited to the settler.
func (s *LoanSvc) Settle(ctx context.Context, id int, req *models.SettleRequest, actor models.Actor) (*models.Loan, error) {
	if err := req.ValidateSettleRequest(models.CategoryLoan); err != nil {
		return nil, fmt.Errorf("invalid settlement: %w", err)
	}

	unlock := s.locks.Lock(planKey(models.CategoryLoan, id))
	defer unlock()

	var loan *models.Loan

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		loan, err = tx.Loan.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if loan.Status != models.PlanStatusActive {
			return fmt.Errorf("loan %d is %s: %w", id, loan.Status, models.ErrInvalidState)
		}

		loan.TotalPaid = loan.TotalPaid.Add(req.Amount)
		loan.Status = req.SettleType
		loan.Remark = req.Remark
		loan.LastRepayment = datePtr(req.Date)
		if err := tx.Loan.Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}

		emi := &models.EmiRecord{
			PlanID:      loan.ID,
			Category:    models.CategoryLoan,
			Amount:      req.Amount,
			LateFee:     req.Fee,
			TotalPaid:   loan.TotalPaid,
			PayDate:     req.Date,
			Status:      models.EmiStatusPaid,
			CollectedBy: actor.UserID,
			Remark:      req.Remark,
		}
		if _, err := tx.Emi.Create(ctx, emi); err != nil {
			return fmt.Errorf("failed to create settlement record: %w", err)
		}

		note := fmt.Sprintf("Settlement of %s", formatAccount(s.config.Ledger.LoanPrefix, loan.ID))
		if _, err := postToUser(ctx, tx, actor.UserID, models.TransactionTypeCredit, req.Amount.Add(req.Fee), req.Fee, note); err != nil {
			return fmt.Errorf("failed to credit settlement: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"settler": actor.UserID,
		"amount":  req.Amount.StringFixed(2),
		"type":    req.SettleType,
	}).Info("Loan settled")

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   loan.UserID,
		template: TemplateLoanClosed,
		subject:  "Loan closed",
		values:   []TemplateValue{{Key: "account", Value: formatAccount(s.config.Ledger.LoanPrefix, loan.ID)}},
	})

	return loan, nil
}

// GetByID gets a loan by ID
func (s *LoanSvc) GetByID(ctx context.Context, id int, actor models.Actor) (*models.Loan, error) {
	loan, err := s.repos.Loan.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := canView(actor, loan.UserID); err != nil {
		return nil, err
	}

	return loan, nil
}

// GetByUserID gets all loans of a user
func (s *LoanSvc) GetByUserID(ctx context.Context, userID int) ([]*models.Loan, error) {
	return s.repos.Loan.GetByUserID(ctx, userID)
}

// GetDues gets the due schedule of a loan with its summary
func (s *LoanSvc) GetDues(ctx context.Context, id int, actor models.Actor) ([]*models.DueRecord, *models.DueSummary, error) {
	if _, err := s.GetByID(ctx, id, actor); err != nil {
		return nil, nil, err
	}

	dues, err := s.repos.Due.GetByPlan(ctx, id, models.CategoryLoan)
	if err != nil {
		return nil, nil, err
	}

	return dues, models.CalculateDueSummary(dues), nil
}

// GetRepayments gets the collection events of a loan
func (s *LoanSvc) GetRepayments(ctx context.Context, id int, actor models.Actor) ([]*models.EmiRecord, error) {
	if _, err := s.GetByID(ctx, id, actor); err != nil {
		return nil, err
	}

	return s.repos.Emi.GetByPlan(ctx, id, models.CategoryLoan)
}

// UpdateReferrer replaces or clears the referrer that earns commission on a loan
func (s *LoanSvc) UpdateReferrer(ctx context.Context, id int, referrerID *int) (*models.Loan, error) {
	unlock := s.locks.Lock(planKey(models.CategoryLoan, id))
	defer unlock()

	var loan *models.Loan

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		loan, err = tx.Loan.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := checkReferrer(ctx, tx, loan.UserID, referrerID); err != nil {
			return err
		}

		loan.ReferrerID = referrerID
		return tx.Loan.Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// AssignAgent lets an agent collect on a loan
func (s *LoanSvc) AssignAgent(ctx context.Context, id, agentID int) error {
	if _, err := s.repos.Loan.GetByID(ctx, id); err != nil {
		return err
	}
	return assignAgent(ctx, s.repos, models.CategoryLoan, id, agentID)
}

// UnassignAgent removes an agent from a loan
func (s *LoanSvc) UnassignAgent(ctx context.Context, id, agentID int) error {
	return s.repos.Assignment.Unassign(ctx, agentID, id, models.CategoryLoan)
}
