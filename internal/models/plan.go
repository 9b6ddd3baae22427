package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category distinguishes the two plan families that share due and EMI records
type Category string

const (
	CategoryLoan    Category = "Loan"
	CategoryDeposit Category = "Deposit"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c == CategoryLoan || c == CategoryDeposit
}

// PlanStatus defines the lifecycle state of a loan or deposit
type PlanStatus string

const (
	PlanStatusPending         PlanStatus = "Pending"
	PlanStatusActive          PlanStatus = "Active"
	PlanStatusClosed          PlanStatus = "Closed"
	PlanStatusSettlement      PlanStatus = "Settlement"
	PlanStatusRejected        PlanStatus = "Rejected"
	PlanStatusPrematureClosed PlanStatus = "PrematureClosed"
	PlanStatusMatured         PlanStatus = "Matured"
)

// DepositKind distinguishes recurring from fixed deposits
type DepositKind string

const (
	DepositKindRecurring DepositKind = "RD"
	DepositKindFixed     DepositKind = "FD"
)

// Loan represents a loan issued to a user
type Loan struct {
	ID                int             `json:"id" db:"id"`
	UserID            int             `json:"user_id" db:"user_id"`
	PlanID            int             `json:"plan_id" db:"plan_id"`
	ReferrerID        *int            `json:"ref_id,omitempty" db:"ref_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	TotalPaid         decimal.Decimal `json:"total_paid" db:"total_paid"`
	TotalPayable      decimal.Decimal `json:"total_payable" db:"total_payable"`
	EmiAmount         decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	InterestFrequency Frequency       `json:"interest_frequency" db:"interest_frequency"`
	EmiFrequency      Frequency       `json:"emi_frequency" db:"emi_frequency"`
	Installments      int             `json:"installments" db:"installments"`
	CommissionRate    decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	Status            PlanStatus      `json:"status" db:"status"`
	Remark            string          `json:"remark,omitempty" db:"remark"`
	LoanDate          *time.Time      `json:"loan_date,omitempty" db:"loan_date"`
	MaturityDate      *time.Time      `json:"maturity_date,omitempty" db:"maturity_date"`
	LastRepayment     *time.Time      `json:"last_repayment,omitempty" db:"last_repayment"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Deposit represents a recurring or fixed deposit held for a user
type Deposit struct {
	ID               int             `json:"id" db:"id"`
	UserID           int             `json:"user_id" db:"user_id"`
	PlanID           int             `json:"plan_id" db:"plan_id"`
	ReferrerID       *int            `json:"ref_id,omitempty" db:"ref_id"`
	Kind             DepositKind     `json:"kind" db:"kind"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	TotalPaid        decimal.Decimal `json:"total_paid" db:"total_paid"`
	PayoutAmount     decimal.Decimal `json:"payout_amount" db:"payout_amount"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	PaymentFrequency Frequency       `json:"payment_frequency" db:"payment_frequency"`
	Tenure           int             `json:"tenure" db:"tenure"`
	CommissionRate   decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	Status           PlanStatus      `json:"status" db:"status"`
	Remark           string          `json:"remark,omitempty" db:"remark"`
	StartDate        *time.Time      `json:"start_date,omitempty" db:"start_date"`
	MaturityDate     *time.Time      `json:"maturity_date,omitempty" db:"maturity_date"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// LoanPlan is the read-only template a loan application is priced from
type LoanPlan struct {
	ID                int             `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name"`
	InterestRate      decimal.Decimal `json:"interest_rate" gorm:"type:numeric(10,4)"`
	InterestFrequency Frequency       `json:"interest_frequency"`
	EmiFrequency      Frequency       `json:"emi_frequency"`
	CommissionRate    decimal.Decimal `json:"commission_rate" gorm:"type:numeric(10,4)"`
	MinAmount         decimal.Decimal `json:"min_amount" gorm:"type:numeric(14,2)"`
	MaxAmount         decimal.Decimal `json:"max_amount" gorm:"type:numeric(14,2)"`
}

// DepositPlan is the read-only template a deposit application is priced from
type DepositPlan struct {
	ID               int             `json:"id" gorm:"primaryKey"`
	Name             string          `json:"name"`
	Kind             DepositKind     `json:"kind"`
	InterestRate     decimal.Decimal `json:"interest_rate" gorm:"type:numeric(10,4)"`
	PaymentFrequency Frequency       `json:"payment_frequency"`
	CommissionRate   decimal.Decimal `json:"commission_rate" gorm:"type:numeric(10,4)"`
}

// LoanApplication represents a loan application request
type LoanApplication struct {
	UserID       int             `json:"-"`
	PlanID       int             `json:"plan_id"`
	Amount       decimal.Decimal `json:"principal_amount"`
	Installments int             `json:"prefered_installments"`
	ReferrerID   *int            `json:"ref_id,omitempty"`
	LoanDate     *time.Time      `json:"loan_date,omitempty"`
}

// DepositApplication represents a deposit application request
type DepositApplication struct {
	UserID     int             `json:"-"`
	PlanID     int             `json:"plan_id"`
	Amount     decimal.Decimal `json:"amount"`
	Tenure     int             `json:"prefered_tenure"`
	ReferrerID *int            `json:"ref_id,omitempty"`
	StartDate  *time.Time      `json:"start_date,omitempty"`
}

// SettleRequest represents a manual closure at a negotiated amount
type SettleRequest struct {
	Amount     decimal.Decimal `json:"settle_amount"`
	Fee        decimal.Decimal `json:"settle_fee"`
	Date       time.Time       `json:"settle_date"`
	Remark     string          `json:"settle_remark"`
	SettleType PlanStatus      `json:"settle_type,omitempty"`
}

// ValidateLoanApplication validates a loan application against its plan
func (a *LoanApplication) ValidateLoanApplication(plan *LoanPlan) error {
	if !a.Amount.IsPositive() {
		return fmt.Errorf("principal must be positive: %w", ErrInvalidAmount)
	}

	if a.Installments < 1 || a.Installments > 3650 {
		return errors.New("installments must be between 1 and 3650")
	}

	if plan.MinAmount.IsPositive() && a.Amount.LessThan(plan.MinAmount) {
		return fmt.Errorf("principal below plan minimum %s: %w", plan.MinAmount.StringFixed(2), ErrInvalidAmount)
	}

	if plan.MaxAmount.IsPositive() && a.Amount.GreaterThan(plan.MaxAmount) {
		return fmt.Errorf("principal above plan maximum %s: %w", plan.MaxAmount.StringFixed(2), ErrInvalidAmount)
	}

	if _, err := plan.EmiFrequency.Days(); err != nil {
		return err
	}

	return nil
}

// ToLoan converts LoanApplication to a Pending Loan priced from plan
func (a *LoanApplication) ToLoan(plan *LoanPlan) *Loan {
	total := TotalPayable(a.Amount, plan.InterestRate, a.Installments, plan.InterestFrequency, plan.EmiFrequency)

	return &Loan{
		UserID:            a.UserID,
		PlanID:            plan.ID,
		ReferrerID:        a.ReferrerID,
		Amount:            a.Amount,
		TotalPaid:         decimal.Zero,
		TotalPayable:      total,
		EmiAmount:         EmiAmount(total, a.Installments),
		InterestRate:      plan.InterestRate,
		InterestFrequency: plan.InterestFrequency,
		EmiFrequency:      plan.EmiFrequency,
		Installments:      a.Installments,
		CommissionRate:    plan.CommissionRate,
		Status:            PlanStatusPending,
		LoanDate:          a.LoanDate,
	}
}

// ValidateDepositApplication validates a deposit application
func (a *DepositApplication) ValidateDepositApplication(plan *DepositPlan) error {
	if !a.Amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive: %w", ErrInvalidAmount)
	}

	if a.Tenure < 1 || a.Tenure > 3650 {
		return errors.New("tenure must be between 1 and 3650")
	}

	if _, err := plan.PaymentFrequency.Days(); err != nil {
		return err
	}

	return nil
}

// ToDeposit converts DepositApplication to a Pending Deposit
func (a *DepositApplication) ToDeposit(plan *DepositPlan) *Deposit {
	return &Deposit{
		UserID:           a.UserID,
		PlanID:           plan.ID,
		ReferrerID:       a.ReferrerID,
		Kind:             plan.Kind,
		Amount:           a.Amount,
		TotalPaid:        decimal.Zero,
		PayoutAmount:     decimal.Zero,
		InterestRate:     plan.InterestRate,
		PaymentFrequency: plan.PaymentFrequency,
		Tenure:           a.Tenure,
		CommissionRate:   plan.CommissionRate,
		Status:           PlanStatusPending,
		StartDate:        a.StartDate,
	}
}

// ValidateSettleRequest validates a settlement for the given category and fills
// in the default settle type.
func (r *SettleRequest) ValidateSettleRequest(category Category) error {
	if r.Amount.IsNegative() || r.Fee.IsNegative() {
		return fmt.Errorf("settlement cannot be negative: %w", ErrInvalidAmount)
	}

	if r.Amount.Add(r.Fee).IsZero() {
		return fmt.Errorf("settlement amount must be positive: %w", ErrInvalidAmount)
	}

	if r.Date.IsZero() {
		r.Date = time.Now()
	}

	switch category {
	case CategoryLoan:
		switch r.SettleType {
		case "":
			r.SettleType = PlanStatusSettlement
		case PlanStatusSettlement, PlanStatusPrematureClosed, PlanStatusClosed:
		default:
			return fmt.Errorf("settle type %q not allowed for loans", r.SettleType)
		}
	case CategoryDeposit:
		switch r.SettleType {
		case "":
			r.SettleType = PlanStatusMatured
		case PlanStatusMatured, PlanStatusPrematureClosed, PlanStatusClosed:
		default:
			return fmt.Errorf("settle type %q not allowed for deposits", r.SettleType)
		}
	}

	return nil
}

// TableName sets the gorm table of loan plan templates
func (LoanPlan) TableName() string {
	return "loan_plans"
}

// TableName sets the gorm table of deposit plan templates
func (DepositPlan) TableName() string {
	return "deposit_plans"
}
