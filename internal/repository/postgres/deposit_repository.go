package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"microfinance-service/internal/models"
)

const depositColumns = `id, user_id, plan_id, ref_id, kind, amount, total_paid, payout_amount,
	interest_rate, payment_frequency, tenure, commission_rate, status, remark,
	start_date, maturity_date, created_at, updated_at`

// DepositRepo is a PostgreSQL implementation of the repository.DepositRepository interface
type DepositRepo struct {
	db Querier
}

// NewDepositRepository creates a new DepositRepo
func NewDepositRepository(db Querier) *DepositRepo {
	return &DepositRepo{db: db}
}

// Create creates a new deposit in the database
func (r *DepositRepo) Create(ctx context.Context, deposit *models.Deposit) (int, error) {
	query := `INSERT INTO deposits (user_id, plan_id, ref_id, kind, amount, total_paid, payout_amount,
			  interest_rate, payment_frequency, tenure, commission_rate, status, remark, start_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		deposit.UserID,
		deposit.PlanID,
		deposit.ReferrerID,
		deposit.Kind,
		deposit.Amount,
		deposit.TotalPaid,
		deposit.PayoutAmount,
		deposit.InterestRate,
		deposit.PaymentFrequency,
		deposit.Tenure,
		deposit.CommissionRate,
		deposit.Status,
		deposit.Remark,
		deposit.StartDate,
	).Scan(&deposit.ID, &deposit.CreatedAt, &deposit.UpdatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to create deposit: %w", err)
	}

	return deposit.ID, nil
}

// GetByID gets a deposit by ID
func (r *DepositRepo) GetByID(ctx context.Context, id int) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate gets a deposit by ID and locks its row until the transaction ends
func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, id int) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetByUserID gets all deposits of a user
func (r *DepositRepo) GetByUserID(ctx context.Context, userID int) ([]*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposits: %w", err)
	}
	defer rows.Close()

	var deposits []*models.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, deposit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return deposits, nil
}

// CountPending counts the user's deposits waiting for approval
func (r *DepositRepo) CountPending(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM deposits WHERE user_id = $1 AND status = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, models.PlanStatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending deposits: %w", err)
	}

	return count, nil
}

// Update updates a deposit
func (r *DepositRepo) Update(ctx context.Context, deposit *models.Deposit) error {
	query := `UPDATE deposits
			  SET ref_id = $1, amount = $2, total_paid = $3, payout_amount = $4, status = $5,
			  remark = $6, start_date = $7, maturity_date = $8, updated_at = NOW()
			  WHERE id = $9`

	result, err := r.db.ExecContext(
		ctx,
		query,
		deposit.ReferrerID,
		deposit.Amount,
		deposit.TotalPaid,
		deposit.PayoutAmount,
		deposit.Status,
		deposit.Remark,
		deposit.StartDate,
		deposit.MaturityDate,
		deposit.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("deposit %d: %w", deposit.ID, models.ErrNotFound)
	}

	return nil
}

// MarkMatured flips active deposits whose maturity date is before the given day
func (r *DepositRepo) MarkMatured(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE deposits SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND maturity_date < $3`

	result, err := r.db.ExecContext(ctx, query, models.PlanStatusMatured, models.PlanStatusActive, before)
	if err != nil {
		return 0, fmt.Errorf("failed to mark matured deposits: %w", err)
	}

	return result.RowsAffected()
}

func (r *DepositRepo) getOne(ctx context.Context, query string, id int) (*models.Deposit, error) {
	deposit, err := scanDeposit(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return deposit, nil
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	deposit := &models.Deposit{}
	err := row.Scan(
		&deposit.ID,
		&deposit.UserID,
		&deposit.PlanID,
		&deposit.ReferrerID,
		&deposit.Kind,
		&deposit.Amount,
		&deposit.TotalPaid,
		&deposit.PayoutAmount,
		&deposit.InterestRate,
		&deposit.PaymentFrequency,
		&deposit.Tenure,
		&deposit.CommissionRate,
		&deposit.Status,
		&deposit.Remark,
		&deposit.StartDate,
		&deposit.MaturityDate,
		&deposit.CreatedAt,
		&deposit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return deposit, nil
}
