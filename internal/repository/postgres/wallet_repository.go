package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"microfinance-service/internal/models"
)

// WalletRepo is a PostgreSQL implementation of the repository.WalletRepository interface
type WalletRepo struct {
	db Querier
}

// NewWalletRepository creates a new WalletRepo
func NewWalletRepository(db Querier) *WalletRepo {
	return &WalletRepo{db: db}
}

// Create creates a new wallet in the database
func (r *WalletRepo) Create(ctx context.Context, wallet *models.Wallet) (int, error) {
	query := `INSERT INTO wallets (user_id, balance) VALUES ($1, $2) RETURNING id`

	var id int
	if err := r.db.QueryRowContext(ctx, query, wallet.UserID, wallet.Balance).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create wallet: %w", err)
	}

	return id, nil
}

// GetByUserID gets the wallet of a user
func (r *WalletRepo) GetByUserID(ctx context.Context, userID int) (*models.Wallet, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`

	wallet := &models.Wallet{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wallet of user %d: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return wallet, nil
}

// Adjust applies delta to the wallet balance under a row lock. It must run
// inside a transaction for the lock to hold until the paired ledger entry is written.
func (r *WalletRepo) Adjust(ctx context.Context, walletID int, delta decimal.Decimal) (*models.Wallet, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE id = $1 FOR UPDATE`

	wallet := &models.Wallet{}
	err := r.db.QueryRowContext(ctx, query, walletID).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wallet %d: %w", walletID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("wallet %d balance %s, change %s: %w",
			walletID, wallet.Balance.StringFixed(2), delta.StringFixed(2), models.ErrInsufficientFunds)
	}

	updateQuery := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`
	if err := r.db.QueryRowContext(ctx, updateQuery, newBalance, walletID).Scan(&wallet.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	wallet.Balance = newBalance
	return wallet, nil
}
