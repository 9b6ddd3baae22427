package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EmiStatus defines the reconciliation state of a collection event
type EmiStatus string

const (
	EmiStatusCollected EmiStatus = "Collected" // taken by an agent, not yet handed over
	EmiStatusPaid      EmiStatus = "Paid"
	EmiStatusHold      EmiStatus = "Hold"
)

// EmiRecord represents one collection event against a plan
type EmiRecord struct {
	ID          int             `json:"id" db:"id"`
	PlanID      int             `json:"plan_id" db:"plan_id"`
	Category    Category        `json:"category" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	LateFee     decimal.Decimal `json:"late_fee" db:"late_fee"`
	TotalPaid   decimal.Decimal `json:"total_paid" db:"total_paid"`
	PayDate     time.Time       `json:"pay_date" db:"pay_date"`
	Status      EmiStatus       `json:"status" db:"status"`
	CollectedBy int             `json:"collected_by" db:"collected_by"`
	HoldBy      *int            `json:"hold_by,omitempty" db:"hold_by"`
	Remark      string          `json:"remark,omitempty" db:"remark"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DueEmiConfig records what one collection event contributed to one installment
type DueEmiConfig struct {
	ID         int             `json:"id" db:"id"`
	DueID      int             `json:"due_id" db:"due_id"`
	EmiID      int             `json:"emi_id" db:"emi_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	LateFee    decimal.Decimal `json:"late_fee" db:"late_fee"`
	PaidFee    decimal.Decimal `json:"paid_fee" db:"paid_fee"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// ToDueEmiConfig converts an allocation line into the audit row for emiID
func (l AllocationLine) ToDueEmiConfig(emiID int) *DueEmiConfig {
	return &DueEmiConfig{
		DueID:      l.DueID,
		EmiID:      emiID,
		Amount:     l.AmountApplied,
		PaidAmount: l.PaidAmount,
		LateFee:    l.FeeApplied,
		PaidFee:    l.PaidFee,
	}
}

// CollectionRequest represents an incoming installment payment
type CollectionRequest struct {
	PlanID   int             `json:"plan_id"`
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Fee      decimal.Decimal `json:"late_fee"`
	PayDate  time.Time       `json:"pay_date"`
	Remark   string          `json:"remark,omitempty"`
	Actor    Actor           `json:"-"`
}

// ValidateCollectionRequest validates a collection and defaults the pay date
func (r *CollectionRequest) ValidateCollectionRequest() error {
	if !r.Category.Valid() {
		return errors.New("invalid category")
	}

	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", ErrInvalidAmount)
	}

	if r.Fee.IsNegative() {
		return fmt.Errorf("late fee cannot be negative: %w", ErrInvalidAmount)
	}

	if r.PayDate.IsZero() {
		r.PayDate = time.Now()
	}

	return nil
}

// CollectionResult is returned after a collection commits
type CollectionResult struct {
	Emi         *EmiRecord      `json:"emi"`
	Allocation  *Allocation     `json:"allocation"`
	Closed      bool            `json:"closed"`
	Commission  decimal.Decimal `json:"commission"`
	Unallocated decimal.Decimal `json:"unallocated"`
}

// CorrectionRequest reduces a previously recorded collection
type CorrectionRequest struct {
	EmiID   int             `json:"-"`
	Amount  decimal.Decimal `json:"amount"`
	Fee     decimal.Decimal `json:"late_fee"`
	PayDate time.Time       `json:"pay_date"`
	Remark  string          `json:"remark,omitempty"`
	Actor   Actor           `json:"-"`
}

// ValidateCorrectionRequest checks the corrected budgets against the original event
func (r *CorrectionRequest) ValidateCorrectionRequest(original *EmiRecord) error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("corrected amount must be positive: %w", ErrInvalidAmount)
	}

	if r.Fee.IsNegative() {
		return fmt.Errorf("corrected fee cannot be negative: %w", ErrInvalidAmount)
	}

	if r.Amount.GreaterThan(original.Amount) {
		return fmt.Errorf("corrected amount %s exceeds original %s: %w",
			r.Amount.StringFixed(2), original.Amount.StringFixed(2), ErrInvalidCorrection)
	}

	if r.Fee.GreaterThan(original.LateFee) {
		return fmt.Errorf("corrected fee %s exceeds original %s: %w",
			r.Fee.StringFixed(2), original.LateFee.StringFixed(2), ErrInvalidCorrection)
	}

	if r.PayDate.IsZero() {
		r.PayDate = original.PayDate
	}

	return nil
}

// CorrectionResult is returned after a correction commits
type CorrectionResult struct {
	Emi        *EmiRecord      `json:"emi"`
	Allocation *Allocation     `json:"allocation,omitempty"`
	Reversed   decimal.Decimal `json:"reversed"`
	Reopened   bool            `json:"reopened"`
}

// ReconcileResult is returned after an agent's collections are handed over
type ReconcileResult struct {
	AgentID int             `json:"agent_id"`
	Records int             `json:"records"`
	Amount  decimal.Decimal `json:"amount"`
	HoldBy  int             `json:"hold_by"`
}
