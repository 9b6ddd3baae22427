package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"microfinance-service/internal/models"
	"microfinance-service/internal/repository/postgres"
)

// TxRunner runs fn inside one database transaction. Every repository on the
// Repository handed to fn is bound to that transaction; fn returning an error
// rolls everything back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

// UserRepository defines methods for user repository
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (int, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
}

// WalletRepository defines methods for wallet repository
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) (int, error)
	GetByUserID(ctx context.Context, userID int) (*models.Wallet, error)

	// Adjust locks the wallet row, applies delta and returns the wallet after the
	// change. A result below zero fails with models.ErrInsufficientFunds.
	Adjust(ctx context.Context, walletID int, delta decimal.Decimal) (*models.Wallet, error)
}

// TransactionRepository defines methods for wallet ledger entries
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) (int, error)
	GetByWalletID(ctx context.Context, walletID int) ([]*models.Transaction, error)
}

// WithdrawalRepository defines methods for withdrawal repository
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *models.Withdrawal) (int, error)
	GetByWalletID(ctx context.Context, walletID int) ([]*models.Withdrawal, error)
}

// LoanRepository defines methods for loan repository
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) (int, error)
	GetByID(ctx context.Context, id int) (*models.Loan, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Loan, error)
	GetByUserID(ctx context.Context, userID int) ([]*models.Loan, error)
	CountPending(ctx context.Context, userID int) (int, error)
	Update(ctx context.Context, loan *models.Loan) error
}

// DepositRepository defines methods for deposit repository
type DepositRepository interface {
	Create(ctx context.Context, deposit *models.Deposit) (int, error)
	GetByID(ctx context.Context, id int) (*models.Deposit, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Deposit, error)
	GetByUserID(ctx context.Context, userID int) ([]*models.Deposit, error)
	CountPending(ctx context.Context, userID int) (int, error)
	Update(ctx context.Context, deposit *models.Deposit) error
	MarkMatured(ctx context.Context, before time.Time) (int64, error)
}

// DueRepository defines methods for installment records
type DueRepository interface {
	CreateBatch(ctx context.Context, dues []*models.DueRecord) error
	GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error)

	// GetOutstanding locks and returns the non-Paid dues of a plan, oldest first
	GetOutstanding(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error)
	GetByIDsForUpdate(ctx context.Context, ids []int) ([]*models.DueRecord, error)
	Update(ctx context.Context, due *models.DueRecord) error
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
}

// EmiRepository defines methods for collection events and their allocations
type EmiRepository interface {
	Create(ctx context.Context, emi *models.EmiRecord) (int, error)
	GetByID(ctx context.Context, id int) (*models.EmiRecord, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.EmiRecord, error)
	GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.EmiRecord, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.EmiRecord, error)
	Update(ctx context.Context, emi *models.EmiRecord) error

	GetAllocations(ctx context.Context, emiID int) ([]*models.DueEmiConfig, error)
	UpsertAllocation(ctx context.Context, cfg *models.DueEmiConfig) error

	// GetCollectedForUpdate locks an agent's records still in Collected
	GetCollectedForUpdate(ctx context.Context, agentID int) ([]*models.EmiRecord, error)
	MarkHold(ctx context.Context, ids []int, holdBy int) error
	PendingByCollector(ctx context.Context, limit, offset int) ([]*models.PendingCollection, error)
	PendingTotal(ctx context.Context) (decimal.Decimal, error)
	SummaryByCategory(ctx context.Context, from, to time.Time) ([]*models.CategorySummary, error)
}

// PlanRepository reads loan and deposit plan templates
type PlanRepository interface {
	GetLoanPlan(ctx context.Context, id int) (*models.LoanPlan, error)
	GetDepositPlan(ctx context.Context, id int) (*models.DepositPlan, error)
}

// SettingRepository defines methods for the key/value settings store
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

// AssignmentRepository defines methods for agent-to-plan assignments
type AssignmentRepository interface {
	Assign(ctx context.Context, assignment *models.AgentAssignment) error
	Unassign(ctx context.Context, agentID, planID int, category models.Category) error
	IsAssigned(ctx context.Context, agentID, planID int, category models.Category) (bool, error)
}

// Repository is a composition of all repositories
type Repository struct {
	Tx          TxRunner
	User        UserRepository
	Wallet      WalletRepository
	Transaction TransactionRepository
	Withdrawal  WithdrawalRepository
	Loan        LoanRepository
	Deposit     DepositRepository
	Due         DueRepository
	Emi         EmiRepository
	Plan        PlanRepository
	Setting     SettingRepository
	Assignment  AssignmentRepository
}

// NewRepository creates a new repository with all sub-repositories. The ledger
// tables go through database/sql; the plain CRUD stores share the same pool
// through gorm.
func NewRepository(db *sql.DB) (*Repository, error) {
	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	repo := bindSQL(db)
	repo.Plan = postgres.NewPlanRepository(gdb)
	repo.Setting = postgres.NewSettingRepository(gdb)
	repo.Assignment = postgres.NewAssignmentRepository(gdb)
	repo.Tx = &sqlTxRunner{db: db, shared: repo}

	return repo, nil
}

// Migrate creates the schema: raw SQL for the ledger tables, gorm for the rest
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open gorm session: %w", err)
	}

	return postgres.AutoMigrate(gdb)
}

func bindSQL(q postgres.Querier) *Repository {
	return &Repository{
		User:        postgres.NewUserRepository(q),
		Wallet:      postgres.NewWalletRepository(q),
		Transaction: postgres.NewTransactionRepository(q),
		Withdrawal:  postgres.NewWithdrawalRepository(q),
		Loan:        postgres.NewLoanRepository(q),
		Deposit:     postgres.NewDepositRepository(q),
		Due:         postgres.NewDueRepository(q),
		Emi:         postgres.NewEmiRepository(q),
	}
}

type sqlTxRunner struct {
	db     *sql.DB
	shared *Repository
}

// WithinTx begins a transaction, runs fn against transaction-bound repositories
// and commits, or rolls back when fn fails.
func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(tx *Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	bound := bindSQL(tx)
	bound.Plan = r.shared.Plan
	bound.Setting = r.shared.Setting
	bound.Assignment = r.shared.Assignment
	bound.Tx = nestedTx{repo: bound}

	if err = fn(bound); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// nestedTx joins the transaction already in progress
type nestedTx struct {
	repo *Repository
}

func (n nestedTx) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	return fn(n.repo)
}
