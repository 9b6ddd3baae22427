package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// postToWallet changes a wallet balance and appends the paired ledger entry.
// Credits raise the balance; Debit and Disbursed lower it. amount includes fee.
func postToWallet(ctx context.Context, repos *repository.Repository, walletID int, txnType models.TransactionType, amount, fee decimal.Decimal, note string) (*models.Transaction, error) {
	delta := amount
	if txnType != models.TransactionTypeCredit {
		delta = amount.Neg()
	}

	wallet, err := repos.Wallet.Adjust(ctx, walletID, delta)
	if err != nil {
		return nil, err
	}

	txn := models.NewTransaction(walletID, txnType, amount, fee, wallet.Balance, note)
	id, err := repos.Transaction.Create(ctx, txn)
	if err != nil {
		return nil, err
	}
	txn.ID = id

	return txn, nil
}

// postToUser is postToWallet addressed by the wallet owner
func postToUser(ctx context.Context, repos *repository.Repository, userID int, txnType models.TransactionType, amount, fee decimal.Decimal, note string) (*models.Transaction, error) {
	wallet, err := repos.Wallet.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return postToWallet(ctx, repos, wallet.ID, txnType, amount, fee, note)
}

// ledgerPlan gives the collection and correction paths one view over loans and
// deposits. Exactly one of loan and deposit is set.
type ledgerPlan struct {
	loan    *models.Loan
	deposit *models.Deposit
}

func lockPlan(ctx context.Context, repos *repository.Repository, category models.Category, id int) (*ledgerPlan, error) {
	switch category {
	case models.CategoryLoan:
		loan, err := repos.Loan.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ledgerPlan{loan: loan}, nil
	case models.CategoryDeposit:
		deposit, err := repos.Deposit.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ledgerPlan{deposit: deposit}, nil
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
}

func (p *ledgerPlan) isLoan() bool {
	return p.loan != nil
}

func (p *ledgerPlan) id() int {
	if p.isLoan() {
		return p.loan.ID
	}
	return p.deposit.ID
}

func (p *ledgerPlan) category() models.Category {
	if p.isLoan() {
		return models.CategoryLoan
	}
	return models.CategoryDeposit
}

func (p *ledgerPlan) status() models.PlanStatus {
	if p.isLoan() {
		return p.loan.Status
	}
	return p.deposit.Status
}

func (p *ledgerPlan) userID() int {
	if p.isLoan() {
		return p.loan.UserID
	}
	return p.deposit.UserID
}

func (p *ledgerPlan) referrerID() *int {
	if p.isLoan() {
		return p.loan.ReferrerID
	}
	return p.deposit.ReferrerID
}

func (p *ledgerPlan) commissionRate() decimal.Decimal {
	if p.isLoan() {
		return p.loan.CommissionRate
	}
	return p.deposit.CommissionRate
}

func (p *ledgerPlan) totalPaid() decimal.Decimal {
	if p.isLoan() {
		return p.loan.TotalPaid
	}
	return p.deposit.TotalPaid
}

func (p *ledgerPlan) addPaid(delta decimal.Decimal) {
	if p.isLoan() {
		p.loan.TotalPaid = p.loan.TotalPaid.Add(delta)
		return
	}
	p.deposit.TotalPaid = p.deposit.TotalPaid.Add(delta)
}

func (p *ledgerPlan) save(ctx context.Context, repos *repository.Repository) error {
	if p.isLoan() {
		return repos.Loan.Update(ctx, p.loan)
	}
	return repos.Deposit.Update(ctx, p.deposit)
}

// accountNumber renders the customer-facing plan number used in messages
func (p *ledgerPlan) accountNumber(cfg configs.LedgerConfig) string {
	if p.isLoan() {
		return formatAccount(cfg.LoanPrefix, p.loan.ID)
	}
	if p.deposit.Kind == models.DepositKindFixed {
		return formatAccount(cfg.FDPrefix, p.deposit.ID)
	}
	return formatAccount(cfg.RDPrefix, p.deposit.ID)
}

func formatAccount(prefix string, id int) string {
	return fmt.Sprintf("%s%06d", prefix, id)
}

// payCommission credits the referrer's share of a collected amount. A referrer
// without a wallet is skipped unless strict is set.
func payCommission(ctx context.Context, repos *repository.Repository, plan *ledgerPlan, amount decimal.Decimal, strict bool, note string) (decimal.Decimal, bool, error) {
	ref := plan.referrerID()
	if ref == nil || !plan.commissionRate().IsPositive() {
		return decimal.Zero, false, nil
	}

	commission := amount.Mul(plan.commissionRate()).Div(decimal.NewFromInt(100)).Round(2)
	if !commission.IsPositive() {
		return decimal.Zero, false, nil
	}

	wallet, err := repos.Wallet.GetByUserID(ctx, *ref)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if strict {
				return decimal.Zero, false, fmt.Errorf("referrer %d has no wallet: %w", *ref, models.ErrIntegrity)
			}
			return decimal.Zero, true, nil
		}
		return decimal.Zero, false, err
	}

	if _, err := postToWallet(ctx, repos, wallet.ID, models.TransactionTypeCredit, commission, decimal.Zero, note); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to credit commission: %w", err)
	}

	return commission, false, nil
}

func datePtr(t time.Time) *time.Time {
	return &t
}
