package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"microfinance-service/internal/models"
)

const emiColumns = `id, plan_id, category, amount, late_fee, total_paid, pay_date, status,
	collected_by, hold_by, remark, created_at, updated_at`

// EmiRepo is a PostgreSQL implementation of the repository.EmiRepository interface
type EmiRepo struct {
	db Querier
}

// NewEmiRepository creates a new EmiRepo
func NewEmiRepository(db Querier) *EmiRepo {
	return &EmiRepo{db: db}
}

// Create records a collection event
func (r *EmiRepo) Create(ctx context.Context, emi *models.EmiRecord) (int, error) {
	query := `INSERT INTO emi_records (plan_id, category, amount, late_fee, total_paid, pay_date, status,
			  collected_by, hold_by, remark)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		emi.PlanID,
		emi.Category,
		emi.Amount,
		emi.LateFee,
		emi.TotalPaid,
		emi.PayDate,
		emi.Status,
		emi.CollectedBy,
		emi.HoldBy,
		emi.Remark,
	).Scan(&emi.ID, &emi.CreatedAt, &emi.UpdatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to create emi record: %w", err)
	}

	return emi.ID, nil
}

// GetByID gets a collection event by ID
func (r *EmiRepo) GetByID(ctx context.Context, id int) (*models.EmiRecord, error) {
	return r.getOne(ctx, `SELECT `+emiColumns+` FROM emi_records WHERE id = $1`, id)
}

// GetByIDForUpdate gets a collection event by ID and locks its row
func (r *EmiRepo) GetByIDForUpdate(ctx context.Context, id int) (*models.EmiRecord, error) {
	return r.getOne(ctx, `SELECT `+emiColumns+` FROM emi_records WHERE id = $1 FOR UPDATE`, id)
}

// GetByPlan gets the collection history of a plan
func (r *EmiRepo) GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.EmiRecord, error) {
	query := `SELECT ` + emiColumns + ` FROM emi_records
			  WHERE plan_id = $1 AND category = $2 ORDER BY pay_date, id`

	rows, err := r.db.QueryContext(ctx, query, planID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get emi records: %w", err)
	}
	defer rows.Close()

	return r.scanEmis(rows)
}

// GetByDateRange gets all collection events paid within [from, to)
func (r *EmiRepo) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.EmiRecord, error) {
	query := `SELECT ` + emiColumns + ` FROM emi_records
			  WHERE pay_date >= $1 AND pay_date < $2 ORDER BY pay_date, id`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get emi records: %w", err)
	}
	defer rows.Close()

	return r.scanEmis(rows)
}

// Update writes a corrected collection event in place
func (r *EmiRepo) Update(ctx context.Context, emi *models.EmiRecord) error {
	query := `UPDATE emi_records
			  SET amount = $1, late_fee = $2, total_paid = $3, pay_date = $4, status = $5,
			  hold_by = $6, remark = $7, updated_at = NOW()
			  WHERE id = $8`

	result, err := r.db.ExecContext(
		ctx,
		query,
		emi.Amount,
		emi.LateFee,
		emi.TotalPaid,
		emi.PayDate,
		emi.Status,
		emi.HoldBy,
		emi.Remark,
		emi.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update emi record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("emi record %d: %w", emi.ID, models.ErrNotFound)
	}

	return nil
}

// GetAllocations gets what a collection event contributed to each due
func (r *EmiRepo) GetAllocations(ctx context.Context, emiID int) ([]*models.DueEmiConfig, error) {
	query := `SELECT id, due_id, emi_id, amount, paid_amount, late_fee, paid_fee, created_at, updated_at
			  FROM due_emi_configs WHERE emi_id = $1 ORDER BY due_id`

	rows, err := r.db.QueryContext(ctx, query, emiID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	var configs []*models.DueEmiConfig
	for rows.Next() {
		cfg := &models.DueEmiConfig{}
		err := rows.Scan(
			&cfg.ID,
			&cfg.DueID,
			&cfg.EmiID,
			&cfg.Amount,
			&cfg.PaidAmount,
			&cfg.LateFee,
			&cfg.PaidFee,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return configs, nil
}

// UpsertAllocation inserts or replaces the allocation row keyed by (due_id, emi_id)
func (r *EmiRepo) UpsertAllocation(ctx context.Context, cfg *models.DueEmiConfig) error {
	query := `INSERT INTO due_emi_configs (due_id, emi_id, amount, paid_amount, late_fee, paid_fee)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (due_id, emi_id) DO UPDATE
			  SET amount = EXCLUDED.amount, paid_amount = EXCLUDED.paid_amount,
			  late_fee = EXCLUDED.late_fee, paid_fee = EXCLUDED.paid_fee, updated_at = NOW()
			  RETURNING id`

	err := r.db.QueryRowContext(
		ctx,
		query,
		cfg.DueID,
		cfg.EmiID,
		cfg.Amount,
		cfg.PaidAmount,
		cfg.LateFee,
		cfg.PaidFee,
	).Scan(&cfg.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert allocation: %w", err)
	}

	return nil
}

// GetCollectedForUpdate locks the agent's records still awaiting hand-over
func (r *EmiRepo) GetCollectedForUpdate(ctx context.Context, agentID int) ([]*models.EmiRecord, error) {
	query := `SELECT ` + emiColumns + ` FROM emi_records
			  WHERE collected_by = $1 AND status = $2 ORDER BY id FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, agentID, models.EmiStatusCollected)
	if err != nil {
		return nil, fmt.Errorf("failed to get collected records: %w", err)
	}
	defer rows.Close()

	return r.scanEmis(rows)
}

// MarkHold moves the given records to Hold under holdBy
func (r *EmiRepo) MarkHold(ctx context.Context, ids []int, holdBy int) error {
	if len(ids) == 0 {
		return nil
	}

	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}

	query := `UPDATE emi_records SET status = $1, hold_by = $2, updated_at = NOW() WHERE id = ANY($3)`
	if _, err := r.db.ExecContext(ctx, query, models.EmiStatusHold, holdBy, pq.Array(ids64)); err != nil {
		return fmt.Errorf("failed to mark records on hold: %w", err)
	}

	return nil
}

// PendingByCollector sums records not yet received by the office, per collector
func (r *EmiRepo) PendingByCollector(ctx context.Context, limit, offset int) ([]*models.PendingCollection, error) {
	query := `SELECT e.collected_by, u.name, COUNT(*), COALESCE(SUM(e.amount), 0), COALESCE(SUM(e.late_fee), 0)
			  FROM emi_records e JOIN users u ON u.id = e.collected_by
			  WHERE e.status = $1
			  GROUP BY e.collected_by, u.name
			  ORDER BY e.collected_by
			  LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, models.EmiStatusCollected, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending collections: %w", err)
	}
	defer rows.Close()

	var pending []*models.PendingCollection
	for rows.Next() {
		p := &models.PendingCollection{}
		if err := rows.Scan(&p.CollectorID, &p.CollectorName, &p.Records, &p.Amount, &p.LateFee); err != nil {
			return nil, fmt.Errorf("failed to scan pending collection: %w", err)
		}
		pending = append(pending, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return pending, nil
}

// PendingTotal sums every record not yet received by the office
func (r *EmiRepo) PendingTotal(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount + late_fee), 0) FROM emi_records WHERE status = $1`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, models.EmiStatusCollected).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum pending collections: %w", err)
	}

	return total, nil
}

// SummaryByCategory totals collections paid within [from, to) per category
func (r *EmiRepo) SummaryByCategory(ctx context.Context, from, to time.Time) ([]*models.CategorySummary, error) {
	query := `SELECT category, COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(late_fee), 0)
			  FROM emi_records WHERE pay_date >= $1 AND pay_date < $2
			  GROUP BY category ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize collections: %w", err)
	}
	defer rows.Close()

	var summary []*models.CategorySummary
	for rows.Next() {
		s := &models.CategorySummary{}
		if err := rows.Scan(&s.Category, &s.Records, &s.Amount, &s.LateFee); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary = append(summary, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return summary, nil
}

func (r *EmiRepo) getOne(ctx context.Context, query string, id int) (*models.EmiRecord, error) {
	emi, err := scanEmi(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("emi record %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get emi record: %w", err)
	}
	return emi, nil
}

// Helper function to scan multiple emi records
func (r *EmiRepo) scanEmis(rows *sql.Rows) ([]*models.EmiRecord, error) {
	var emis []*models.EmiRecord

	for rows.Next() {
		emi, err := scanEmi(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emi record: %w", err)
		}
		emis = append(emis, emi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return emis, nil
}

func scanEmi(row rowScanner) (*models.EmiRecord, error) {
	emi := &models.EmiRecord{}
	err := row.Scan(
		&emi.ID,
		&emi.PlanID,
		&emi.Category,
		&emi.Amount,
		&emi.LateFee,
		&emi.TotalPaid,
		&emi.PayDate,
		&emi.Status,
		&emi.CollectedBy,
		&emi.HoldBy,
		&emi.Remark,
		&emi.CreatedAt,
		&emi.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return emi, nil
}
