package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// WalletSvc is an implementation of the service.WalletService interface
type WalletSvc struct {
	repos    *repository.Repository
	logger   *logrus.Logger
	config   *configs.Config
	notifier NotificationService
}

// NewWalletService creates a new WalletSvc
func NewWalletService(deps Dependencies) *WalletSvc {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}

	return &WalletSvc{
		repos:    deps.Repos,
		logger:   deps.Logger,
		config:   deps.Config,
		notifier: deps.Notifier,
	}
}

// GetWallet gets the wallet of a user
func (s *WalletSvc) GetWallet(ctx context.Context, userID int) (*models.Wallet, error) {
	return s.repos.Wallet.GetByUserID(ctx, userID)
}

// GetTransactions gets the ledger entries of a user's wallet, newest first
func (s *WalletSvc) GetTransactions(ctx context.Context, userID int) ([]*models.Transaction, error) {
	wallet, err := s.repos.Wallet.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Transaction.GetByWalletID(ctx, wallet.ID)
}

// GetWithdrawals gets the withdrawals of a user's wallet
func (s *WalletSvc) GetWithdrawals(ctx context.Context, userID int) ([]*models.Withdrawal, error) {
	wallet, err := s.repos.Wallet.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Withdrawal.GetByWalletID(ctx, wallet.ID)
}

// Withdraw pays cash out of a wallet within the configured bounds
func (s *WalletSvc) Withdraw(ctx context.Context, req *models.WithdrawalRequest) (*models.Withdrawal, error) {
	lower, err := s.bound(ctx, models.SettingMinWithdrawAmount)
	if err != nil {
		return nil, err
	}

	upper, err := s.bound(ctx, models.SettingMaxWithdrawAmount)
	if err != nil {
		return nil, err
	}

	if err := req.ValidateWithdrawalRequest(lower, upper); err != nil {
		return nil, fmt.Errorf("invalid withdrawal: %w", err)
	}

	var withdrawal *models.Withdrawal

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		wallet, err := tx.Wallet.GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}

		txn, err := postToWallet(ctx, tx, wallet.ID, models.TransactionTypeDebit, req.Amount, decimal.Zero, "Withdrawal")
		if err != nil {
			return err
		}

		withdrawal = &models.Withdrawal{
			WalletID:      wallet.ID,
			TransactionID: txn.ID,
			Amount:        req.Amount,
			Status:        models.WithdrawalStatusCompleted,
		}

		id, err := tx.Withdrawal.Create(ctx, withdrawal)
		if err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}
		withdrawal.ID = id

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Withdrawal of %s from wallet %d", req.Amount.StringFixed(2), withdrawal.WalletID)

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   req.UserID,
		template: TemplateWithdrawalConfirmed,
		subject:  "Withdrawal confirmed",
		values:   []TemplateValue{{Key: "amount", Value: req.Amount.StringFixed(2)}},
	})

	return withdrawal, nil
}

// ManualTransaction credits or debits a user's wallet by hand
func (s *WalletSvc) ManualTransaction(ctx context.Context, req *models.ManualTransactionRequest) (*models.Transaction, error) {
	if err := req.ValidateManualTransaction(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	note := req.Note
	if note == "" {
		note = "Manual " + string(req.Type)
	}

	var txn *models.Transaction

	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		txn, err = postToUser(ctx, tx, req.UserID, req.Type, req.Amount, decimal.Zero, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"type":    req.Type,
		"amount":  req.Amount.StringFixed(2),
	}).Info("Manual transaction posted")

	template := TemplateWalletCredit
	if req.Type == models.TransactionTypeDebit {
		template = TemplateWalletDebit
	}
	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   req.UserID,
		template: template,
		values: []TemplateValue{
			{Key: "amount", Value: req.Amount.StringFixed(2)},
			{Key: "balance", Value: txn.Balance.StringFixed(2)},
		},
	})

	return txn, nil
}

// bound reads a withdrawal limit. A missing setting means no limit.
func (s *WalletSvc) bound(ctx context.Context, key string) (decimal.Decimal, error) {
	setting, err := s.repos.Setting.Get(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	value, err := decimal.NewFromString(setting.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s is not a number: %w", key, err)
	}

	return value, nil
}
