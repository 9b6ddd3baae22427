package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DueStatus defines the payment state of a single installment
type DueStatus string

const (
	DueStatusDue           DueStatus = "Due"
	DueStatusOverdue       DueStatus = "Overdue"
	DueStatusPartiallyPaid DueStatus = "PartiallyPaid"
	DueStatusPartiallyFeed DueStatus = "PartiallyFeed" // principal settled, late fee outstanding
	DueStatusPaid          DueStatus = "Paid"
)

// DueRecord represents one scheduled installment obligation of a loan or deposit
type DueRecord struct {
	ID         int             `json:"id" db:"id"`
	PlanID     int             `json:"plan_id" db:"plan_id"`
	Category   Category        `json:"category" db:"category"`
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	EmiAmount  decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	LateFee    decimal.Decimal `json:"late_fee" db:"late_fee"`
	PaidFee    decimal.Decimal `json:"paid_fee" db:"paid_fee"`
	Status     DueStatus       `json:"status" db:"status"`
	PayDate    *time.Time      `json:"pay_date,omitempty" db:"pay_date"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// OutstandingAmount returns the principal still owed on the installment
func (d *DueRecord) OutstandingAmount() decimal.Decimal {
	return d.EmiAmount.Sub(d.PaidAmount)
}

// OutstandingFee returns the late fee still owed on the installment
func (d *DueRecord) OutstandingFee() decimal.Decimal {
	return d.LateFee.Sub(d.PaidFee)
}

// DueSummary represents summary statistics for a plan's due schedule
type DueSummary struct {
	TotalDues         int             `json:"total_dues"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalLateFee      decimal.Decimal `json:"total_late_fee"`
	PaidDues          int             `json:"paid_dues"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PaidFee           decimal.Decimal `json:"paid_fee"`
	OverdueDues       int             `json:"overdue_dues"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	OutstandingFee    decimal.Decimal `json:"outstanding_fee"`
}

// CalculateDueSummary calculates summary statistics for a due schedule
func CalculateDueSummary(dues []*DueRecord) *DueSummary {
	summary := &DueSummary{TotalDues: len(dues)}

	for _, due := range dues {
		summary.TotalAmount = summary.TotalAmount.Add(due.EmiAmount)
		summary.TotalLateFee = summary.TotalLateFee.Add(due.LateFee)
		summary.PaidAmount = summary.PaidAmount.Add(due.PaidAmount)
		summary.PaidFee = summary.PaidFee.Add(due.PaidFee)
		summary.OutstandingAmount = summary.OutstandingAmount.Add(due.OutstandingAmount())
		summary.OutstandingFee = summary.OutstandingFee.Add(due.OutstandingFee())

		switch due.Status {
		case DueStatusPaid:
			summary.PaidDues++
		case DueStatusOverdue:
			summary.OverdueDues++
			summary.OverdueAmount = summary.OverdueAmount.Add(due.OutstandingAmount())
		}
	}

	return summary
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BaselineStatus is the label an installment carries when nothing has been paid
// on it: Overdue once its due date is before today, Due otherwise.
func BaselineStatus(dueDate, now time.Time) DueStatus {
	if dueDate.Before(StartOfDay(now)) {
		return DueStatusOverdue
	}
	return DueStatusDue
}
