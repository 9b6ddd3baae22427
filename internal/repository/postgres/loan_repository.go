package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microfinance-service/internal/models"
)

const loanColumns = `id, user_id, plan_id, ref_id, amount, total_paid, total_payable, emi_amount,
	interest_rate, interest_frequency, emi_frequency, installments, commission_rate, status, remark,
	loan_date, maturity_date, last_repayment, created_at, updated_at`

// LoanRepo is a PostgreSQL implementation of the repository.LoanRepository interface
type LoanRepo struct {
	db Querier
}

// NewLoanRepository creates a new LoanRepo
func NewLoanRepository(db Querier) *LoanRepo {
	return &LoanRepo{db: db}
}

// Create creates a new loan in the database
func (r *LoanRepo) Create(ctx context.Context, loan *models.Loan) (int, error) {
	query := `INSERT INTO loans (user_id, plan_id, ref_id, amount, total_paid, total_payable, emi_amount,
			  interest_rate, interest_frequency, emi_frequency, installments, commission_rate, status, remark, loan_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			  RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		loan.UserID,
		loan.PlanID,
		loan.ReferrerID,
		loan.Amount,
		loan.TotalPaid,
		loan.TotalPayable,
		loan.EmiAmount,
		loan.InterestRate,
		loan.InterestFrequency,
		loan.EmiFrequency,
		loan.Installments,
		loan.CommissionRate,
		loan.Status,
		loan.Remark,
		loan.LoanDate,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to create loan: %w", err)
	}

	return loan.ID, nil
}

// GetByID gets a loan by ID
func (r *LoanRepo) GetByID(ctx context.Context, id int) (*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate gets a loan by ID and locks its row until the transaction ends
func (r *LoanRepo) GetByIDForUpdate(ctx context.Context, id int) (*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetByUserID gets all loans of a user
func (r *LoanRepo) GetByUserID(ctx context.Context, userID int) ([]*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return loans, nil
}

// CountPending counts the user's loans waiting for approval
func (r *LoanRepo) CountPending(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE user_id = $1 AND status = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, models.PlanStatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending loans: %w", err)
	}

	return count, nil
}

// Update updates a loan
func (r *LoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	query := `UPDATE loans
			  SET ref_id = $1, amount = $2, total_paid = $3, total_payable = $4, emi_amount = $5,
			  status = $6, remark = $7, loan_date = $8, maturity_date = $9, last_repayment = $10,
			  updated_at = NOW()
			  WHERE id = $11`

	result, err := r.db.ExecContext(
		ctx,
		query,
		loan.ReferrerID,
		loan.Amount,
		loan.TotalPaid,
		loan.TotalPayable,
		loan.EmiAmount,
		loan.Status,
		loan.Remark,
		loan.LoanDate,
		loan.MaturityDate,
		loan.LastRepayment,
		loan.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("loan %d: %w", loan.ID, models.ErrNotFound)
	}

	return nil
}

func (r *LoanRepo) getOne(ctx context.Context, query string, id int) (*models.Loan, error) {
	loan, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loan %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	loan := &models.Loan{}
	err := row.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.PlanID,
		&loan.ReferrerID,
		&loan.Amount,
		&loan.TotalPaid,
		&loan.TotalPayable,
		&loan.EmiAmount,
		&loan.InterestRate,
		&loan.InterestFrequency,
		&loan.EmiFrequency,
		&loan.Installments,
		&loan.CommissionRate,
		&loan.Status,
		&loan.Remark,
		&loan.LoanDate,
		&loan.MaturityDate,
		&loan.LastRepayment,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return loan, nil
}
