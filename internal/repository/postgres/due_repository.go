package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"microfinance-service/internal/models"
)

const dueColumns = `id, plan_id, category, due_date, emi_amount, paid_amount, late_fee, paid_fee,
	status, pay_date, created_at, updated_at`

// DueRepo is a PostgreSQL implementation of the repository.DueRepository interface
type DueRepo struct {
	db Querier
}

// NewDueRepository creates a new DueRepo
func NewDueRepository(db Querier) *DueRepo {
	return &DueRepo{db: db}
}

// CreateBatch inserts a whole schedule with one statement and fills in the ids
func (r *DueRepo) CreateBatch(ctx context.Context, dues []*models.DueRecord) error {
	if len(dues) == 0 {
		return nil
	}

	const cols = 8
	valueStrings := make([]string, 0, len(dues))
	valueArgs := make([]any, 0, len(dues)*cols)

	for i, due := range dues {
		n := i * cols
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8))

		valueArgs = append(valueArgs,
			due.PlanID,
			due.Category,
			due.DueDate,
			due.EmiAmount,
			due.PaidAmount,
			due.LateFee,
			due.PaidFee,
			due.Status,
		)
	}

	query := fmt.Sprintf(`INSERT INTO due_records (plan_id, category, due_date, emi_amount, paid_amount,
			  late_fee, paid_fee, status) VALUES %s RETURNING id`, strings.Join(valueStrings, ", "))

	rows, err := r.db.QueryContext(ctx, query, valueArgs...)
	if err != nil {
		return fmt.Errorf("failed to create due schedule: %w", err)
	}
	defer rows.Close()

	// RETURNING preserves VALUES order for a single multi-row insert
	i := 0
	for rows.Next() {
		if i >= len(dues) {
			break
		}
		if err := rows.Scan(&dues[i].ID); err != nil {
			return fmt.Errorf("failed to scan due id: %w", err)
		}
		i++
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

// GetByPlan gets the full schedule of a plan in due order
func (r *DueRepo) GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error) {
	query := `SELECT ` + dueColumns + ` FROM due_records
			  WHERE plan_id = $1 AND category = $2 ORDER BY due_date, id`

	rows, err := r.db.QueryContext(ctx, query, planID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get dues: %w", err)
	}
	defer rows.Close()

	return r.scanDues(rows)
}

// GetOutstanding locks and returns the non-Paid dues of a plan in due order
func (r *DueRepo) GetOutstanding(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error) {
	query := `SELECT ` + dueColumns + ` FROM due_records
			  WHERE plan_id = $1 AND category = $2 AND status <> $3
			  ORDER BY due_date, id FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, planID, category, models.DueStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to get outstanding dues: %w", err)
	}
	defer rows.Close()

	return r.scanDues(rows)
}

// GetByIDsForUpdate locks and returns the given dues in due order
func (r *DueRepo) GetByIDsForUpdate(ctx context.Context, ids []int) ([]*models.DueRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}

	query := `SELECT ` + dueColumns + ` FROM due_records
			  WHERE id = ANY($1) ORDER BY due_date, id FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids64))
	if err != nil {
		return nil, fmt.Errorf("failed to get dues: %w", err)
	}
	defer rows.Close()

	return r.scanDues(rows)
}

// Update writes the payment state of a due
func (r *DueRepo) Update(ctx context.Context, due *models.DueRecord) error {
	query := `UPDATE due_records
			  SET paid_amount = $1, paid_fee = $2, late_fee = $3, status = $4, pay_date = $5, updated_at = NOW()
			  WHERE id = $6`

	result, err := r.db.ExecContext(
		ctx,
		query,
		due.PaidAmount,
		due.PaidFee,
		due.LateFee,
		due.Status,
		due.PayDate,
		due.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update due: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("due %d: %w", due.ID, models.ErrNotFound)
	}

	return nil
}

// MarkOverdue flips Due records whose due date is before the given day
func (r *DueRepo) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE due_records SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND due_date < $3`

	result, err := r.db.ExecContext(ctx, query, models.DueStatusOverdue, models.DueStatusDue, before)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue dues: %w", err)
	}

	return result.RowsAffected()
}

// Helper function to scan multiple dues
func (r *DueRepo) scanDues(rows *sql.Rows) ([]*models.DueRecord, error) {
	var dues []*models.DueRecord

	for rows.Next() {
		due := &models.DueRecord{}
		err := rows.Scan(
			&due.ID,
			&due.PlanID,
			&due.Category,
			&due.DueDate,
			&due.EmiAmount,
			&due.PaidAmount,
			&due.LateFee,
			&due.PaidFee,
			&due.Status,
			&due.PayDate,
			&due.CreatedAt,
			&due.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due: %w", err)
		}

		dues = append(dues, due)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return dues, nil
}
