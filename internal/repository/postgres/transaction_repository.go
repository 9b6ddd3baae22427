package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"microfinance-service/internal/models"
)

// TransactionRepo is a PostgreSQL implementation of the repository.TransactionRepository interface
type TransactionRepo struct {
	db Querier
}

// NewTransactionRepository creates a new TransactionRepo
func NewTransactionRepository(db Querier) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Create appends a ledger entry
func (r *TransactionRepo) Create(ctx context.Context, transaction *models.Transaction) (int, error) {
	query := `INSERT INTO transactions (wallet_id, amount, fee, balance, txn_type, status, note, reference)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		transaction.WalletID,
		transaction.Amount,
		transaction.Fee,
		transaction.Balance,
		transaction.Type,
		transaction.Status,
		transaction.Note,
		transaction.Reference,
	).Scan(&transaction.ID, &transaction.CreatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	return transaction.ID, nil
}

// GetByWalletID gets all ledger entries of a wallet, oldest first
func (r *TransactionRepo) GetByWalletID(ctx context.Context, walletID int) ([]*models.Transaction, error) {
	query := `SELECT id, wallet_id, amount, fee, balance, txn_type, status, note, reference, created_at
			  FROM transactions WHERE wallet_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(rows)
}

// Helper function to scan multiple transactions
func (r *TransactionRepo) scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction

	for rows.Next() {
		transaction := &models.Transaction{}
		err := rows.Scan(
			&transaction.ID,
			&transaction.WalletID,
			&transaction.Amount,
			&transaction.Fee,
			&transaction.Balance,
			&transaction.Type,
			&transaction.Status,
			&transaction.Note,
			&transaction.Reference,
			&transaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		transactions = append(transactions, transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return transactions, nil
}
