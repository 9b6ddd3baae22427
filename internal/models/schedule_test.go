package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFrequencyDays(t *testing.T) {
	expected := map[Frequency]int{
		FrequencyDaily:     1,
		FrequencyWeekly:    7,
		FrequencyMonthly:   30,
		FrequencyQuarterly: 90,
		FrequencyYearly:    365,
		FrequencyOnetime:   1,
		FrequencyAnytime:   1,
	}

	for freq, want := range expected {
		got, err := freq.Days()
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", freq, err)
		}
		if got != want {
			t.Errorf("Expected %d days for %s, got %d", want, freq, got)
		}
	}

	if _, err := Frequency("Fortnightly").Days(); err == nil {
		t.Error("Expected error for unknown frequency")
	}
}

func TestTotalPayable(t *testing.T) {
	cases := []struct {
		name         string
		principal    string
		rate         string
		installments int
		interestFreq Frequency
		emiFreq      Frequency
		want         string
	}{
		// 2% a month for 12 months
		{"monthly rate monthly emi", "10000", "2", 12, FrequencyMonthly, FrequencyMonthly, "12400"},
		// 24% a year is 2% a month; 100 days is 10/3 months
		{"yearly rate daily emi", "3000", "24", 100, FrequencyYearly, FrequencyDaily, "3200"},
		// 4 quarters is 12 months
		{"quarterly emi", "1000", "12", 4, FrequencyYearly, FrequencyQuarterly, "1120"},
		{"zero rate", "500", "0", 10, FrequencyMonthly, FrequencyWeekly, "500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalPayable(d(tc.principal), d(tc.rate), tc.installments, tc.interestFreq, tc.emiFreq)
			if !got.Equal(d(tc.want)) {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestGenerateDueSchedule(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	total := d("1000")
	emi := EmiAmount(total, 3)

	if !emi.Equal(d("333.33")) {
		t.Fatalf("Expected emi 333.33, got %s", emi)
	}

	dues, err := GenerateDueSchedule(9, CategoryLoan, start, 3, FrequencyMonthly, emi, total)
	if err != nil {
		t.Fatalf("Failed to generate schedule: %v", err)
	}

	if len(dues) != 3 {
		t.Fatalf("Expected 3 dues, got %d", len(dues))
	}

	sum := decimal.Zero
	for i, due := range dues {
		wantDate := start.AddDate(0, 0, (i+1)*30)
		if !due.DueDate.Equal(wantDate) {
			t.Errorf("Due %d: expected date %s, got %s", i, wantDate, due.DueDate)
		}
		if due.Status != DueStatusDue || due.PlanID != 9 || due.Category != CategoryLoan {
			t.Errorf("Due %d: unexpected header %+v", i, due)
		}
		sum = sum.Add(due.EmiAmount)
	}

	if !sum.Equal(total) {
		t.Errorf("Expected schedule to sum to %s, got %s", total, sum)
	}
	if !dues[2].EmiAmount.Equal(d("333.34")) {
		t.Errorf("Expected last installment 333.34, got %s", dues[2].EmiAmount)
	}
}

func TestBaselineStatus(t *testing.T) {
	now := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

	if got := BaselineStatus(time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC), now); got != DueStatusOverdue {
		t.Errorf("Expected Overdue, got %s", got)
	}
	if got := BaselineStatus(time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), now); got != DueStatusDue {
		t.Errorf("Expected Due for today, got %s", got)
	}
}
