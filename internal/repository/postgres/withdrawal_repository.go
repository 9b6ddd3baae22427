package postgres

import (
	"context"
	"fmt"

	"microfinance-service/internal/models"
)

// WithdrawalRepo is a PostgreSQL implementation of the repository.WithdrawalRepository interface
type WithdrawalRepo struct {
	db Querier
}

// NewWithdrawalRepository creates a new WithdrawalRepo
func NewWithdrawalRepository(db Querier) *WithdrawalRepo {
	return &WithdrawalRepo{db: db}
}

// Create records a withdrawal
func (r *WithdrawalRepo) Create(ctx context.Context, withdrawal *models.Withdrawal) (int, error) {
	query := `INSERT INTO withdrawals (wallet_id, transaction_id, amount, status)
			  VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		withdrawal.WalletID,
		withdrawal.TransactionID,
		withdrawal.Amount,
		withdrawal.Status,
	).Scan(&withdrawal.ID, &withdrawal.CreatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return withdrawal.ID, nil
}

// GetByWalletID gets the withdrawals of a wallet, newest first
func (r *WithdrawalRepo) GetByWalletID(ctx context.Context, walletID int) ([]*models.Withdrawal, error) {
	query := `SELECT id, wallet_id, transaction_id, amount, status, created_at
			  FROM withdrawals WHERE wallet_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		w := &models.Withdrawal{}
		if err := rows.Scan(&w.ID, &w.WalletID, &w.TransactionID, &w.Amount, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return withdrawals, nil
}
