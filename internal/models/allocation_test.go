package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newDue(id int, dueDate time.Time, emi, paid, fee, paidFee string, status DueStatus) *DueRecord {
	return &DueRecord{
		ID:         id,
		PlanID:     1,
		Category:   CategoryLoan,
		DueDate:    dueDate,
		EmiAmount:  d(emi),
		PaidAmount: d(paid),
		LateFee:    d(fee),
		PaidFee:    d(paidFee),
		Status:     status,
	}
}

func TestAllocateSplitsAcrossDues(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dues := []*DueRecord{
		newDue(1, start, "100", "0", "0", "0", DueStatusDue),
		newDue(2, start.AddDate(0, 0, 30), "100", "0", "0", "0", DueStatusDue),
	}

	alloc, err := Allocate(d("150"), decimal.Zero, dues)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	if len(alloc.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(alloc.Lines))
	}

	first, second := alloc.Lines[0], alloc.Lines[1]
	if first.Status != DueStatusPaid || !first.PaidAmount.Equal(d("100")) {
		t.Errorf("Expected first due Paid with 100, got %s with %s", first.Status, first.PaidAmount)
	}
	if second.Status != DueStatusPartiallyPaid || !second.PaidAmount.Equal(d("50")) {
		t.Errorf("Expected second due PartiallyPaid with 50, got %s with %s", second.Status, second.PaidAmount)
	}
	if !alloc.RemainingAmount.IsZero() {
		t.Errorf("Expected remaining 0, got %s", alloc.RemainingAmount)
	}

	// input untouched
	if !dues[0].PaidAmount.IsZero() || dues[0].Status != DueStatusDue {
		t.Error("Allocate must not modify its input")
	}
}

func TestAllocateConservesAndNeverOverAllocates(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		amount string
		fee    string
		dues   []*DueRecord
	}{
		{
			name:   "exact payoff",
			amount: "300",
			fee:    "20",
			dues: []*DueRecord{
				newDue(1, start, "100", "0", "10", "0", DueStatusOverdue),
				newDue(2, start.AddDate(0, 0, 7), "200", "0", "10", "0", DueStatusDue),
			},
		},
		{
			name:   "overpayment left unallocated",
			amount: "1000",
			fee:    "0",
			dues: []*DueRecord{
				newDue(1, start, "100", "40", "0", "0", DueStatusPartiallyPaid),
				newDue(2, start.AddDate(0, 0, 7), "100", "0", "0", "0", DueStatusDue),
			},
		},
		{
			name:   "fee larger than fees owed",
			amount: "33.33",
			fee:    "50",
			dues: []*DueRecord{
				newDue(1, start, "33.33", "0", "5", "0", DueStatusOverdue),
				newDue(2, start.AddDate(0, 0, 1), "33.33", "0", "5", "2", DueStatusOverdue),
				newDue(3, start.AddDate(0, 0, 2), "33.34", "0", "0", "0", DueStatusDue),
			},
		},
		{
			name:   "no dues",
			amount: "10",
			fee:    "1",
			dues:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alloc, err := Allocate(d(tc.amount), d(tc.fee), tc.dues)
			if err != nil {
				t.Fatalf("Failed to allocate: %v", err)
			}

			if got := alloc.AppliedAmount().Add(alloc.RemainingAmount); !got.Equal(d(tc.amount)) {
				t.Errorf("Expected applied+remaining %s, got %s", tc.amount, got)
			}
			if got := alloc.AppliedFee().Add(alloc.RemainingFee); !got.Equal(d(tc.fee)) {
				t.Errorf("Expected applied+remaining fee %s, got %s", tc.fee, got)
			}

			byID := make(map[int]*DueRecord, len(tc.dues))
			for _, due := range tc.dues {
				byID[due.ID] = due
			}
			for _, line := range alloc.Lines {
				due := byID[line.DueID]
				if line.PaidAmount.GreaterThan(due.EmiAmount) {
					t.Errorf("Due %d over-allocated: %s > %s", due.ID, line.PaidAmount, due.EmiAmount)
				}
				if line.PaidFee.GreaterThan(due.LateFee) {
					t.Errorf("Due %d fee over-allocated: %s > %s", due.ID, line.PaidFee, due.LateFee)
				}
			}
		})
	}
}

func TestAllocateStatusTransitions(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// principal settled but fee still open
	alloc, err := Allocate(d("100"), d("5"), []*DueRecord{
		newDue(1, start, "100", "0", "10", "0", DueStatusOverdue),
	})
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	if alloc.Lines[0].Status != DueStatusPartiallyFeed {
		t.Errorf("Expected PartiallyFeed, got %s", alloc.Lines[0].Status)
	}

	// fee completes a PartiallyFeed due
	alloc, err = Allocate(d("1"), d("5"), []*DueRecord{
		newDue(1, start, "100", "100", "10", "5", DueStatusPartiallyFeed),
		newDue(2, start.AddDate(0, 0, 30), "100", "0", "0", "0", DueStatusOverdue),
	})
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	if alloc.Lines[0].Status != DueStatusPaid {
		t.Errorf("Expected Paid, got %s", alloc.Lines[0].Status)
	}
	if alloc.Lines[1].Status != DueStatusPartiallyPaid {
		t.Errorf("Expected PartiallyPaid, got %s", alloc.Lines[1].Status)
	}
}

func TestAllocateNeverDowngradesStatus(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dues := []*DueRecord{
		newDue(1, start, "100", "60", "0", "0", DueStatusPartiallyPaid),
		newDue(2, start.AddDate(0, 0, 30), "100", "0", "0", "0", DueStatusOverdue),
	}

	alloc, err := Allocate(d("40"), decimal.Zero, dues)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	if len(alloc.Lines) != 1 {
		t.Fatalf("Expected only the first due to be touched, got %d lines", len(alloc.Lines))
	}
	if alloc.Lines[0].Status != DueStatusPaid {
		t.Errorf("Expected Paid, got %s", alloc.Lines[0].Status)
	}
	if dues[1].Status != DueStatusOverdue {
		t.Errorf("Expected untouched due to stay Overdue, got %s", dues[1].Status)
	}
}

func TestAllocateRejectsInvalidAmounts(t *testing.T) {
	dues := []*DueRecord{newDue(1, time.Now(), "100", "0", "0", "0", DueStatusDue)}

	for _, amount := range []string{"0", "-10"} {
		if _, err := Allocate(d(amount), decimal.Zero, dues); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount for %s, got %v", amount, err)
		}
	}

	if _, err := Allocate(d("10"), d("-1"), dues); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for negative fee, got %v", err)
	}
}

func TestReallocateNewestInstallmentFirst(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dues := []*DueRecord{
		newDue(1, start, "100", "0", "10", "0", DueStatusOverdue),
		newDue(2, start.AddDate(0, 0, 30), "100", "0", "0", "0", DueStatusOverdue),
	}

	alloc, err := Allocate(d("150"), d("10"), dues)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	// apply the event, then roll it back
	entries := make([]RollbackEntry, 0, len(alloc.Lines))
	for i, line := range alloc.Lines {
		due := dues[i]
		due.PaidAmount, due.PaidFee, due.Status = line.PaidAmount, line.PaidFee, line.Status

		entry, err := NewRollbackEntry(due, line.ToDueEmiConfig(7))
		if err != nil {
			t.Fatalf("Failed to roll back: %v", err)
		}
		entries = append(entries, entry)
	}

	again, err := Reallocate(d("120"), d("10"), entries, now)
	if err != nil {
		t.Fatalf("Failed to reallocate: %v", err)
	}

	expected := []struct {
		dueID   int
		paid    string
		paidFee string
		status  DueStatus
	}{
		{2, "100", "0", DueStatusPaid},
		{1, "20", "10", DueStatusPartiallyPaid},
	}

	if len(again.Lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d", len(expected), len(again.Lines))
	}
	for i, want := range expected {
		line := again.Lines[i]
		if line.DueID != want.dueID {
			t.Fatalf("Expected due %d at position %d, got %d", want.dueID, i, line.DueID)
		}
		if !line.PaidAmount.Equal(d(want.paid)) || !line.PaidFee.Equal(d(want.paidFee)) || line.Status != want.status {
			t.Errorf("Due %d: expected %s/%s %s, got %s/%s %s", want.dueID, want.paid, want.paidFee, want.status, line.PaidAmount, line.PaidFee, line.Status)
		}
	}

	if !again.AppliedAmount().Add(again.RemainingAmount).Equal(d("120")) {
		t.Errorf("Expected applied plus remaining to equal 120, got %s + %s", again.AppliedAmount(), again.RemainingAmount)
	}
}

func TestReallocateRestoresBaselineStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := newDue(1, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "100", "100", "0", "0", DueStatusPaid)
	future := newDue(2, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), "100", "50", "0", "0", DueStatusPartiallyPaid)

	entries := []RollbackEntry{}
	for _, due := range []*DueRecord{past, future} {
		entry, err := NewRollbackEntry(due, &DueEmiConfig{DueID: due.ID, EmiID: 1, Amount: due.PaidAmount, LateFee: decimal.Zero})
		if err != nil {
			t.Fatalf("Failed to roll back: %v", err)
		}
		entries = append(entries, entry)
	}

	alloc, err := Reallocate(d("50"), decimal.Zero, entries, now)
	if err != nil {
		t.Fatalf("Failed to reallocate: %v", err)
	}

	// due 2 is processed first and takes the whole budget
	if alloc.Lines[0].DueID != 2 || alloc.Lines[0].Status != DueStatusPartiallyPaid || !alloc.Lines[0].PaidAmount.Equal(d("50")) {
		t.Errorf("Expected due 2 PartiallyPaid 50, got due %d %s %s", alloc.Lines[0].DueID, alloc.Lines[0].Status, alloc.Lines[0].PaidAmount)
	}
	if alloc.Lines[1].DueID != 1 || alloc.Lines[1].Status != DueStatusOverdue || !alloc.Lines[1].PaidAmount.IsZero() {
		t.Errorf("Expected past due 1 back to Overdue with 0, got due %d %s %s", alloc.Lines[1].DueID, alloc.Lines[1].Status, alloc.Lines[1].PaidAmount)
	}
	if !alloc.Lines[1].AmountApplied.IsZero() {
		t.Errorf("Expected nothing applied to due 1, got %s", alloc.Lines[1].AmountApplied)
	}
}

func TestNewRollbackEntryDetectsNegative(t *testing.T) {
	due := newDue(1, time.Now(), "100", "20", "0", "0", DueStatusPartiallyPaid)
	_, err := NewRollbackEntry(due, &DueEmiConfig{DueID: 1, EmiID: 2, Amount: d("30"), LateFee: decimal.Zero})
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity, got %v", err)
	}
}
