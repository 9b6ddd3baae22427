package service

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// UserService defines methods for user service
type UserService interface {
	Create(ctx context.Context, user *models.UserCreate) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// CollectionService records installment payments
type CollectionService interface {
	Collect(ctx context.Context, req *models.CollectionRequest) (*models.CollectionResult, error)
	ReconcileAgent(ctx context.Context, agentID int, actor models.Actor) (*models.ReconcileResult, error)
}

// CorrectionService reduces previously recorded payments
type CorrectionService interface {
	Correct(ctx context.Context, req *models.CorrectionRequest) (*models.CorrectionResult, error)
}

// LoanService defines the loan lifecycle
type LoanService interface {
	Apply(ctx context.Context, app *models.LoanApplication) (*models.Loan, error)
	Approve(ctx context.Context, id int, actor models.Actor) (*models.Loan, error)
	Reject(ctx context.Context, id int, remark string, actor models.Actor) (*models.Loan, error)
	Settle(ctx context.Context, id int, req *models.SettleRequest, actor models.Actor) (*models.Loan, error)
	GetByID(ctx context.Context, id int, actor models.Actor) (*models.Loan, error)
	GetByUserID(ctx context.Context, userID int) ([]*models.Loan, error)
	GetDues(ctx context.Context, id int, actor models.Actor) ([]*models.DueRecord, *models.DueSummary, error)
	GetRepayments(ctx context.Context, id int, actor models.Actor) ([]*models.EmiRecord, error)
	UpdateReferrer(ctx context.Context, id int, referrerID *int) (*models.Loan, error)
	AssignAgent(ctx context.Context, id, agentID int) error
	UnassignAgent(ctx context.Context, id, agentID int) error
}

// DepositService defines the deposit lifecycle
type DepositService interface {
	Apply(ctx context.Context, app *models.DepositApplication) (*models.Deposit, error)
	Approve(ctx context.Context, id int, actor models.Actor) (*models.Deposit, error)
	Reject(ctx context.Context, id int, remark string, actor models.Actor) (*models.Deposit, error)
	Settle(ctx context.Context, id int, req *models.SettleRequest, actor models.Actor) (*models.Deposit, error)
	GetByID(ctx context.Context, id int, actor models.Actor) (*models.Deposit, error)
	GetByUserID(ctx context.Context, userID int) ([]*models.Deposit, error)
	GetDues(ctx context.Context, id int, actor models.Actor) ([]*models.DueRecord, *models.DueSummary, error)
	GetRepayments(ctx context.Context, id int, actor models.Actor) ([]*models.EmiRecord, error)
	UpdateReferrer(ctx context.Context, id int, referrerID *int) (*models.Deposit, error)
	AssignAgent(ctx context.Context, id, agentID int) error
	UnassignAgent(ctx context.Context, id, agentID int) error
}

// LifecycleService runs the periodic status sweeps
type LifecycleService interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	MatureDeposits(ctx context.Context, now time.Time) (int64, error)
	RunSweeps(ctx context.Context) error
}

// WalletService defines wallet and withdrawal operations
type WalletService interface {
	GetWallet(ctx context.Context, userID int) (*models.Wallet, error)
	GetTransactions(ctx context.Context, userID int) ([]*models.Transaction, error)
	GetWithdrawals(ctx context.Context, userID int) ([]*models.Withdrawal, error)
	Withdraw(ctx context.Context, req *models.WithdrawalRequest) (*models.Withdrawal, error)
	ManualTransaction(ctx context.Context, req *models.ManualTransactionRequest) (*models.Transaction, error)
}

// SettingService defines methods for the settings store
type SettingService interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

// ReportService defines reporting and export operations
type ReportService interface {
	Pendings(ctx context.Context, limit, offset int) (*models.PendingReport, error)
	Summary(ctx context.Context, from, to time.Time) (*models.CollectionSummary, error)
	ExportCollectionsXLSX(ctx context.Context, from, to time.Time, w io.Writer) error
	StatementXML(ctx context.Context, planID int, category models.Category, w io.Writer) error
}

// NotificationService delivers customer messages. Failures never affect the
// ledger; callers only log them.
type NotificationService interface {
	SendSMS(ctx context.Context, phone, templateID string, values []TemplateValue) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Dependencies contains dependencies for services
type Dependencies struct {
	Repos    *repository.Repository
	Logger   *logrus.Logger
	Config   *configs.Config
	Notifier NotificationService
	Locks    *PlanLocks
	Clock    func() time.Time
}

func (d Dependencies) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Service is a composition of all services
type Service struct {
	User         UserService
	Collection   CollectionService
	Correction   CorrectionService
	Loan         LoanService
	Deposit      DepositService
	Lifecycle    LifecycleService
	Wallet       WalletService
	Setting      SettingService
	Report       ReportService
	Notification NotificationService
}

// NewService creates a new service with all sub-services. Collections and
// corrections share one set of plan locks.
func NewService(deps Dependencies) *Service {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}
	if deps.Locks == nil {
		deps.Locks = NewPlanLocks()
	}

	return &Service{
		User:         NewUserService(deps),
		Collection:   NewCollectionService(deps),
		Correction:   NewCorrectionService(deps),
		Loan:         NewLoanService(deps),
		Deposit:      NewDepositService(deps),
		Lifecycle:    NewLifecycleService(deps),
		Wallet:       NewWalletService(deps),
		Setting:      NewSettingService(deps),
		Report:       NewReportService(deps),
		Notification: deps.Notifier,
	}
}
