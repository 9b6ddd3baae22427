package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType defines the direction of a wallet ledger entry
type TransactionType string

const (
	TransactionTypeCredit    TransactionType = "Credit"
	TransactionTypeDebit     TransactionType = "Debit"
	TransactionTypeDisbursed TransactionType = "Disbursed"
)

// TransactionStatus defines the status of transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusFailed    TransactionStatus = "Failed"
)

// Transaction is an append-only wallet ledger entry. Amount includes Fee.
type Transaction struct {
	ID        int               `json:"id" db:"id"`
	WalletID  int               `json:"wallet_id" db:"wallet_id"`
	Amount    decimal.Decimal   `json:"amount" db:"amount"`
	Fee       decimal.Decimal   `json:"fee" db:"fee"`
	Balance   decimal.Decimal   `json:"balance" db:"balance"`
	Type      TransactionType   `json:"txn_type" db:"txn_type"`
	Status    TransactionStatus `json:"status" db:"status"`
	Note      string            `json:"note,omitempty" db:"note"`
	Reference string            `json:"reference" db:"reference"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Signed returns the amount with the sign it has on the wallet balance
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// NewTransaction builds a completed entry with a fresh reference. balance is
// the wallet balance after the entry is applied.
func NewTransaction(walletID int, txnType TransactionType, amount, fee, balance decimal.Decimal, note string) *Transaction {
	return &Transaction{
		WalletID:  walletID,
		Amount:    amount,
		Fee:       fee,
		Balance:   balance,
		Type:      txnType,
		Status:    TransactionStatusCompleted,
		Note:      note,
		Reference: uuid.NewString(),
	}
}

// WithdrawalStatus defines the status of a withdrawal
type WithdrawalStatus string

const (
	WithdrawalStatusCompleted WithdrawalStatus = "Completed"
)

// Withdrawal represents cash paid out of a wallet
type Withdrawal struct {
	ID            int              `json:"id" db:"id"`
	WalletID      int              `json:"wallet_id" db:"wallet_id"`
	TransactionID int              `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	Status        WithdrawalStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// WithdrawalRequest represents a withdrawal request
type WithdrawalRequest struct {
	UserID int             `json:"-"`
	Amount decimal.Decimal `json:"amount"`
}

// ManualTransactionRequest represents an admin adjustment of a user's wallet
type ManualTransactionRequest struct {
	UserID int             `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Type   TransactionType `json:"txn_type"`
	Note   string          `json:"note,omitempty"`
}

// ValidateWithdrawalRequest validates a withdrawal against the configured bounds.
// A zero bound is not enforced.
func (w *WithdrawalRequest) ValidateWithdrawalRequest(lower, upper decimal.Decimal) error {
	if !w.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", ErrInvalidAmount)
	}

	if lower.IsPositive() && w.Amount.LessThan(lower) {
		return fmt.Errorf("minimum withdrawal is %s: %w", lower.StringFixed(2), ErrInvalidAmount)
	}

	if upper.IsPositive() && w.Amount.GreaterThan(upper) {
		return fmt.Errorf("maximum withdrawal is %s: %w", upper.StringFixed(2), ErrInvalidAmount)
	}

	return nil
}

// ValidateManualTransaction validates an admin adjustment
func (m *ManualTransactionRequest) ValidateManualTransaction() error {
	if m.UserID <= 0 {
		return errors.New("user_id is required")
	}

	if !m.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", ErrInvalidAmount)
	}

	switch m.Type {
	case TransactionTypeCredit, TransactionTypeDebit:
	default:
		return errors.New("txn_type must be Credit or Debit")
	}

	return nil
}
