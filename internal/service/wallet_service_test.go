package service

import (
	"context"
	"errors"
	"testing"

	"microfinance-service/internal/models"
)

func newWalletService(t *testing.T, balance string) (*WalletSvc, *memStore, *mockNotifier, int) {
	t.Helper()

	store := newMemStore()
	user := store.addUser("Manager", "9000000004", models.RoleManager)
	store.addWallet(user, balance)

	notifier := newMockNotifier()
	return NewWalletService(testDeps(store, notifier)), store, notifier, user
}

func TestWithdraw(t *testing.T) {
	testCases := []struct {
		name        string
		min         string
		max         string
		amount      string
		expected    error
		wantBalance string
	}{
		{name: "No bounds configured", amount: "300", wantBalance: "700"},
		{name: "Within bounds", min: "100", max: "500", amount: "500", wantBalance: "500"},
		{name: "Below minimum", min: "100", amount: "50", expected: models.ErrInvalidAmount, wantBalance: "1000"},
		{name: "Above maximum", max: "500", amount: "600", expected: models.ErrInvalidAmount, wantBalance: "1000"},
		{name: "More than balance", amount: "1500", expected: models.ErrInsufficientFunds, wantBalance: "1000"},
		{name: "Zero amount", amount: "0", expected: models.ErrInvalidAmount, wantBalance: "1000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _, user := newWalletService(t, "1000")

			if tc.min != "" {
				store.repos().Setting.Upsert(context.Background(), &models.Setting{Key: models.SettingMinWithdrawAmount, Value: tc.min})
			}
			if tc.max != "" {
				store.repos().Setting.Upsert(context.Background(), &models.Setting{Key: models.SettingMaxWithdrawAmount, Value: tc.max})
			}

			withdrawal, err := svc.Withdraw(context.Background(), &models.WithdrawalRequest{UserID: user, Amount: d(tc.amount)})

			if tc.expected != nil {
				if !errors.Is(err, tc.expected) {
					t.Errorf("Expected %v, got %v", tc.expected, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Withdraw failed: %v", err)
				}
				if withdrawal.TransactionID == 0 {
					t.Error("Expected withdrawal to reference its ledger entry")
				}
			}

			if got := store.walletOf(user).Balance; !got.Equal(d(tc.wantBalance)) {
				t.Errorf("Expected balance %s, got %s", tc.wantBalance, got)
			}
		})
	}
}

func TestWithdraw_BadSetting(t *testing.T) {
	svc, store, _, user := newWalletService(t, "1000")
	store.repos().Setting.Upsert(context.Background(), &models.Setting{Key: models.SettingMinWithdrawAmount, Value: "lots"})

	if _, err := svc.Withdraw(context.Background(), &models.WithdrawalRequest{UserID: user, Amount: d("100")}); err == nil {
		t.Error("Expected error for a non-numeric bound")
	}
}

func TestManualTransaction(t *testing.T) {
	svc, store, notifier, user := newWalletService(t, "100")

	credit, err := svc.ManualTransaction(context.Background(), &models.ManualTransactionRequest{
		UserID: user,
		Amount: d("50"),
		Type:   models.TransactionTypeCredit,
	})
	if err != nil {
		t.Fatalf("ManualTransaction failed: %v", err)
	}
	if credit.Note != "Manual Credit" {
		t.Errorf("Expected default note, got %q", credit.Note)
	}
	if !credit.Balance.Equal(d("150")) {
		t.Errorf("Expected running balance 150, got %s", credit.Balance)
	}

	sms, ok := notifier.waitSMS()
	if !ok || sms.template != TemplateWalletCredit {
		t.Errorf("Expected %s sms, got %+v", TemplateWalletCredit, sms)
	}

	if _, err := svc.ManualTransaction(context.Background(), &models.ManualTransactionRequest{
		UserID: user,
		Amount: d("200"),
		Type:   models.TransactionTypeDebit,
	}); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	if _, err := svc.ManualTransaction(context.Background(), &models.ManualTransactionRequest{
		UserID: user,
		Amount: d("10"),
		Type:   models.TransactionTypeDisbursed,
	}); err == nil {
		t.Error("Expected Disbursed to be rejected for manual entries")
	}

	if got := store.walletOf(user).Balance; !got.Equal(d("150")) {
		t.Errorf("Expected balance 150, got %s", got)
	}
}

func TestWalletBalanceMatchesLedger(t *testing.T) {
	svc, store, _, user := newWalletService(t, "0")
	ctx := context.Background()

	steps := []struct {
		txnType models.TransactionType
		amount  string
	}{
		{models.TransactionTypeCredit, "500"},
		{models.TransactionTypeDebit, "120"},
		{models.TransactionTypeCredit, "35.50"},
		{models.TransactionTypeDebit, "15.50"},
	}
	for _, s := range steps {
		if _, err := svc.ManualTransaction(ctx, &models.ManualTransactionRequest{UserID: user, Amount: d(s.amount), Type: s.txnType}); err != nil {
			t.Fatalf("ManualTransaction failed: %v", err)
		}
	}
	if _, err := svc.Withdraw(ctx, &models.WithdrawalRequest{UserID: user, Amount: d("100")}); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	txns, err := svc.GetTransactions(ctx, user)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(txns) != 5 {
		t.Fatalf("Expected 5 ledger entries, got %d", len(txns))
	}

	sum := d("0")
	for _, txn := range txns {
		sum = sum.Add(txn.Signed())
	}

	wallet := store.walletOf(user)
	if !wallet.Balance.Equal(sum) || !sum.Equal(d("300")) {
		t.Errorf("Expected balance and ledger sum 300, got %s and %s", wallet.Balance, sum)
	}

	withdrawals, err := svc.GetWithdrawals(ctx, user)
	if err != nil {
		t.Fatalf("GetWithdrawals failed: %v", err)
	}
	if len(withdrawals) != 1 || withdrawals[0].Status != models.WithdrawalStatusCompleted {
		t.Errorf("Expected one completed withdrawal, got %+v", withdrawals)
	}
}
