package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AllocationLine is the effect of one payment event on one installment
type AllocationLine struct {
	DueID         int             `json:"due_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	FeeApplied    decimal.Decimal `json:"fee_applied"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaidFee       decimal.Decimal `json:"paid_fee"`
	Status        DueStatus       `json:"status"`
}

// Allocation is the result of running a payment through the waterfall
type Allocation struct {
	Lines           []AllocationLine `json:"lines"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	RemainingFee    decimal.Decimal  `json:"remaining_fee"`
}

// AppliedAmount returns the principal placed on installments
func (a *Allocation) AppliedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range a.Lines {
		total = total.Add(line.AmountApplied)
	}
	return total
}

// AppliedFee returns the late fee placed on installments
func (a *Allocation) AppliedFee() decimal.Decimal {
	total := decimal.Zero
	for _, line := range a.Lines {
		total = total.Add(line.FeeApplied)
	}
	return total
}

// RollbackEntry is an installment as it stood before a given payment event
type RollbackEntry struct {
	DueID      int
	DueDate    time.Time
	EmiAmount  decimal.Decimal
	LateFee    decimal.Decimal
	PaidAmount decimal.Decimal
	PaidFee    decimal.Decimal
	Status     DueStatus
}

// NewRollbackEntry subtracts what cfg contributed from the due's running totals
func NewRollbackEntry(due *DueRecord, cfg *DueEmiConfig) (RollbackEntry, error) {
	paid := due.PaidAmount.Sub(cfg.Amount)
	paidFee := due.PaidFee.Sub(cfg.LateFee)
	if paid.IsNegative() || paidFee.IsNegative() {
		return RollbackEntry{}, fmt.Errorf("due %d would go negative after rollback of emi %d: %w", due.ID, cfg.EmiID, ErrIntegrity)
	}

	return RollbackEntry{
		DueID:      due.ID,
		DueDate:    due.DueDate,
		EmiAmount:  due.EmiAmount,
		LateFee:    due.LateFee,
		PaidAmount: paid,
		PaidFee:    paidFee,
		Status:     due.Status,
	}, nil
}

// Allocate runs a payment through the installments oldest first. dues must be
// sorted by due date and exclude Paid records. The input is not modified; only
// installments that receive money produce a line.
func Allocate(amount, fee decimal.Decimal, dues []*DueRecord) (*Allocation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount %s: %w", amount.String(), ErrInvalidAmount)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("fee amount %s: %w", fee.String(), ErrInvalidAmount)
	}

	result := &Allocation{RemainingAmount: amount, RemainingFee: fee}

	for _, due := range dues {
		if !result.RemainingAmount.IsPositive() && !result.RemainingFee.IsPositive() {
			break
		}

		amountToApply := decimal.Min(result.RemainingAmount, nonNegative(due.OutstandingAmount()))
		feeToApply := decimal.Min(result.RemainingFee, nonNegative(due.OutstandingFee()))
		if amountToApply.IsZero() && feeToApply.IsZero() {
			continue
		}

		paid := due.PaidAmount.Add(amountToApply)
		paidFee := due.PaidFee.Add(feeToApply)

		result.Lines = append(result.Lines, AllocationLine{
			DueID:         due.ID,
			AmountApplied: amountToApply,
			FeeApplied:    feeToApply,
			PaidAmount:    paid,
			PaidFee:       paidFee,
			Status:        nextStatus(due.Status, due.EmiAmount, due.LateFee, paid, paidFee),
		})

		result.RemainingAmount = result.RemainingAmount.Sub(amountToApply)
		result.RemainingFee = result.RemainingFee.Sub(feeToApply)
	}

	return result, nil
}

// Reallocate re-applies corrected budgets to installments rolled back to their
// state before the event. Entries are processed newest installment first (by
// descending due id) and every entry yields a line, so installments the
// corrected payment no longer reaches are written back to their baseline.
func Reallocate(amount, fee decimal.Decimal, entries []RollbackEntry, now time.Time) (*Allocation, error) {
	if amount.IsNegative() || fee.IsNegative() {
		return nil, fmt.Errorf("corrected amount %s fee %s: %w", amount.String(), fee.String(), ErrInvalidAmount)
	}

	ordered := make([]RollbackEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DueID > ordered[j].DueID
	})

	result := &Allocation{RemainingAmount: amount, RemainingFee: fee}

	for _, entry := range ordered {
		amountToApply := decimal.Min(result.RemainingAmount, nonNegative(entry.EmiAmount.Sub(entry.PaidAmount)))
		feeToApply := decimal.Min(result.RemainingFee, nonNegative(entry.LateFee.Sub(entry.PaidFee)))

		paid := entry.PaidAmount.Add(amountToApply)
		paidFee := entry.PaidFee.Add(feeToApply)

		baseline := entry.Status
		if entry.PaidAmount.IsZero() {
			baseline = BaselineStatus(entry.DueDate, now)
		}

		result.Lines = append(result.Lines, AllocationLine{
			DueID:         entry.DueID,
			AmountApplied: amountToApply,
			FeeApplied:    feeToApply,
			PaidAmount:    paid,
			PaidFee:       paidFee,
			Status:        nextStatus(baseline, entry.EmiAmount, entry.LateFee, paid, paidFee),
		})

		result.RemainingAmount = result.RemainingAmount.Sub(amountToApply)
		result.RemainingFee = result.RemainingFee.Sub(feeToApply)
	}

	return result, nil
}

func nextStatus(current DueStatus, emi, lateFee, paid, paidFee decimal.Decimal) DueStatus {
	switch {
	case paid.GreaterThanOrEqual(emi) && emi.IsPositive():
		if paidFee.LessThan(lateFee) {
			return DueStatusPartiallyFeed
		}
		return DueStatusPaid
	case paid.IsPositive():
		return DueStatusPartiallyPaid
	default:
		return current
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
