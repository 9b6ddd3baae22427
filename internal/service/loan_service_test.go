package service

import (
	"context"
	"errors"
	"testing"

	"microfinance-service/internal/models"
)

func newLoanService(t *testing.T) (*LoanSvc, *memStore, int, int) {
	t.Helper()

	store := newMemStore()
	customer := store.addUser("Customer", "9000000001", models.RoleCustomer)
	admin := store.addUser("Admin", "9000000002", models.RoleAdmin)
	store.addWallet(customer, "0")
	store.addWallet(admin, "50000")

	store.mu.Lock()
	store.data.loanPlans[1] = models.LoanPlan{
		ID:                1,
		Name:              "Monthly 2%",
		InterestRate:      d("2"),
		InterestFrequency: models.FrequencyMonthly,
		EmiFrequency:      models.FrequencyMonthly,
		MinAmount:         d("1000"),
		MaxAmount:         d("100000"),
	}
	store.mu.Unlock()

	return NewLoanService(testDeps(store, newMockNotifier())), store, customer, admin
}

func TestLoanApply(t *testing.T) {
	svc, _, customer, _ := newLoanService(t)

	loan, err := svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("10000"),
		Installments: 12,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if loan.Status != models.PlanStatusPending {
		t.Errorf("Expected status %s, got %s", models.PlanStatusPending, loan.Status)
	}
	if !loan.TotalPayable.Equal(d("12400")) {
		t.Errorf("Expected total payable 12400, got %s", loan.TotalPayable)
	}
	if !loan.EmiAmount.Equal(d("1033.33")) {
		t.Errorf("Expected emi 1033.33, got %s", loan.EmiAmount)
	}

	_, err = svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("5000"),
		Installments: 6,
	})
	if !errors.Is(err, models.ErrDuplicatePending) {
		t.Errorf("Expected ErrDuplicatePending, got %v", err)
	}
}

func TestLoanApply_Validation(t *testing.T) {
	svc, _, customer, _ := newLoanService(t)

	testCases := []struct {
		name string
		app  *models.LoanApplication
	}{
		{"Below plan minimum", &models.LoanApplication{UserID: customer, PlanID: 1, Amount: d("500"), Installments: 12}},
		{"Unknown plan", &models.LoanApplication{UserID: customer, PlanID: 7, Amount: d("5000"), Installments: 12}},
		{"Self referral", &models.LoanApplication{UserID: customer, PlanID: 1, Amount: d("5000"), Installments: 12, ReferrerID: &customer}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Apply(context.Background(), tc.app); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoanApproveDisbursesAndSchedules(t *testing.T) {
	svc, store, customer, admin := newLoanService(t)

	loan, err := svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("10000"),
		Installments: 12,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	approved, err := svc.Approve(context.Background(), loan.ID, models.Actor{UserID: admin, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if approved.Status != models.PlanStatusActive {
		t.Errorf("Expected status %s, got %s", models.PlanStatusActive, approved.Status)
	}
	if approved.MaturityDate == nil || !approved.MaturityDate.Equal(testNow.AddDate(0, 0, 360)) {
		t.Errorf("Expected maturity 360 days out, got %v", approved.MaturityDate)
	}

	dues, summary, err := svc.GetDues(context.Background(), loan.ID, models.Actor{UserID: customer, Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("GetDues failed: %v", err)
	}
	if len(dues) != 12 {
		t.Fatalf("Expected 12 dues, got %d", len(dues))
	}
	if !summary.TotalAmount.Equal(d("12400")) {
		t.Errorf("Expected schedule to sum to 12400, got %s", summary.TotalAmount)
	}

	wallet := store.walletOf(admin)
	if !wallet.Balance.Equal(d("40000")) {
		t.Errorf("Expected approver balance 40000, got %s", wallet.Balance)
	}

	txns := store.transactionsOf(wallet.ID)
	if len(txns) != 1 || txns[0].Type != models.TransactionTypeDisbursed {
		t.Errorf("Expected one Disbursed transaction, got %+v", txns)
	}

	if _, err := svc.Approve(context.Background(), loan.ID, models.Actor{UserID: admin, Role: models.RoleAdmin}); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second approval, got %v", err)
	}
}

func TestLoanApprove_InsufficientFunds(t *testing.T) {
	svc, store, customer, _ := newLoanService(t)
	poor := store.addUser("Manager", "9000000005", models.RoleManager)
	store.addWallet(poor, "100")

	loan, err := svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("10000"),
		Installments: 12,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	_, err = svc.Approve(context.Background(), loan.ID, models.Actor{UserID: poor, Role: models.RoleManager})
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	if got := store.loan(loan.ID).Status; got != models.PlanStatusPending {
		t.Errorf("Expected loan to stay Pending, got %s", got)
	}
	dues, _ := store.repos().Due.GetByPlan(context.Background(), loan.ID, models.CategoryLoan)
	if len(dues) != 0 {
		t.Errorf("Expected no dues after failed approval, got %d", len(dues))
	}
}

func TestLoanReject(t *testing.T) {
	svc, _, customer, admin := newLoanService(t)

	loan, err := svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("10000"),
		Installments: 12,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	rejected, err := svc.Reject(context.Background(), loan.ID, "incomplete documents", models.Actor{UserID: admin, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	if rejected.Status != models.PlanStatusRejected || rejected.Remark != "incomplete documents" {
		t.Errorf("Expected Rejected with remark, got %s %q", rejected.Status, rejected.Remark)
	}
	if !rejected.Amount.IsZero() || !rejected.TotalPayable.IsZero() || !rejected.EmiAmount.IsZero() {
		t.Error("Expected amounts to be zeroed")
	}

	// a rejected application no longer blocks a new one
	if _, err := svc.Apply(context.Background(), &models.LoanApplication{
		UserID:       customer,
		PlanID:       1,
		Amount:       d("5000"),
		Installments: 6,
	}); err != nil {
		t.Errorf("Expected new application to succeed, got %v", err)
	}
}

func TestLoanSettle(t *testing.T) {
	svc, store, customer, admin := newLoanService(t)

	loanID := store.putLoan(models.Loan{
		UserID:       customer,
		Amount:       d("1000"),
		TotalPaid:    d("600"),
		TotalPayable: d("1200"),
		Status:       models.PlanStatusActive,
	})

	settled, err := svc.Settle(context.Background(), loanID, &models.SettleRequest{
		Amount: d("500"),
		Fee:    d("20"),
		Remark: "one time settlement",
	}, models.Actor{UserID: admin, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if settled.Status != models.PlanStatusSettlement {
		t.Errorf("Expected status %s, got %s", models.PlanStatusSettlement, settled.Status)
	}
	if !settled.TotalPaid.Equal(d("1100")) {
		t.Errorf("Expected total paid 1100, got %s", settled.TotalPaid)
	}

	if got := store.walletOf(admin).Balance; !got.Equal(d("50520")) {
		t.Errorf("Expected settler balance 50520, got %s", got)
	}

	records, err := svc.GetRepayments(context.Background(), loanID, models.Actor{UserID: admin, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GetRepayments failed: %v", err)
	}
	if len(records) != 1 || records[0].Status != models.EmiStatusPaid {
		t.Errorf("Expected one Paid settlement record, got %+v", records)
	}
}

func TestLoanGetByID_CustomerSeesOnlyOwn(t *testing.T) {
	svc, store, customer, _ := newLoanService(t)
	other := store.addUser("Other", "9000000007", models.RoleCustomer)

	loanID := store.putLoan(models.Loan{UserID: customer, Status: models.PlanStatusActive})

	if _, err := svc.GetByID(context.Background(), loanID, models.Actor{UserID: customer, Role: models.RoleCustomer}); err != nil {
		t.Errorf("Expected owner to read loan, got %v", err)
	}

	if _, err := svc.GetByID(context.Background(), loanID, models.Actor{UserID: other, Role: models.RoleCustomer}); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestLoanReferrerAndAgents(t *testing.T) {
	svc, store, customer, admin := newLoanService(t)
	referrer := store.addUser("Referrer", "9000000008", models.RoleCustomer)
	agent := store.addUser("Agent", "9000000003", models.RoleAgent)

	loanID := store.putLoan(models.Loan{UserID: customer, Status: models.PlanStatusActive})

	loan, err := svc.UpdateReferrer(context.Background(), loanID, &referrer)
	if err != nil {
		t.Fatalf("UpdateReferrer failed: %v", err)
	}
	if loan.ReferrerID == nil || *loan.ReferrerID != referrer {
		t.Errorf("Expected referrer %d, got %v", referrer, loan.ReferrerID)
	}

	if _, err := svc.UpdateReferrer(context.Background(), loanID, &customer); err == nil {
		t.Error("Expected self referral to fail")
	}

	if err := svc.AssignAgent(context.Background(), loanID, admin); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for non-agent, got %v", err)
	}

	if err := svc.AssignAgent(context.Background(), loanID, agent); err != nil {
		t.Fatalf("AssignAgent failed: %v", err)
	}

	assigned, _ := store.repos().Assignment.IsAssigned(context.Background(), agent, loanID, models.CategoryLoan)
	if !assigned {
		t.Error("Expected agent to be assigned")
	}

	if err := svc.UnassignAgent(context.Background(), loanID, agent); err != nil {
		t.Fatalf("UnassignAgent failed: %v", err)
	}

	assigned, _ = store.repos().Assignment.IsAssigned(context.Background(), agent, loanID, models.CategoryLoan)
	if assigned {
		t.Error("Expected agent to be unassigned")
	}
}
