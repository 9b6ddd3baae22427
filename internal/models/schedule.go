package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency defines how often installments fall due or interest is quoted
type Frequency string

const (
	FrequencyDaily     Frequency = "Daily"
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyYearly    Frequency = "Yearly"
	FrequencyOnetime   Frequency = "Onetime"
	FrequencyAnytime   Frequency = "Anytime"
)

// Installment spacing in days. Monthly is a fixed 30-day offset, not a calendar
// month: schedules already issued were generated this way.
var frequencyDays = map[Frequency]int{
	FrequencyDaily:     1,
	FrequencyWeekly:    7,
	FrequencyMonthly:   30,
	FrequencyQuarterly: 90,
	FrequencyYearly:    365,
	FrequencyOnetime:   1,
	FrequencyAnytime:   1,
}

// Installments per month, used to convert a tenure into months for interest.
var installmentsPerMonth = map[Frequency]decimal.Decimal{
	FrequencyDaily:     decimal.NewFromInt(30),
	FrequencyWeekly:    decimal.NewFromInt(4),
	FrequencyMonthly:   decimal.NewFromInt(1),
	FrequencyQuarterly: decimal.NewFromInt(1).Div(decimal.NewFromInt(3)),
	FrequencyYearly:    decimal.NewFromInt(1).Div(decimal.NewFromInt(12)),
}

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Days returns the fixed day offset between two installments
func (f Frequency) Days() (int, error) {
	days, ok := frequencyDays[f]
	if !ok {
		return 0, fmt.Errorf("unknown frequency %q", f)
	}
	return days, nil
}

// TenureInMonths converts a number of installments at frequency f into months.
// Frequencies without a monthly equivalent count one installment as one month.
func TenureInMonths(installments int, f Frequency) decimal.Decimal {
	perMonth, ok := installmentsPerMonth[f]
	if !ok {
		perMonth = decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(installments)).Div(perMonth)
}

// MonthlyRate returns the percentage rate per month for a rate quoted at interestFreq
func MonthlyRate(rate decimal.Decimal, interestFreq Frequency) decimal.Decimal {
	if interestFreq != FrequencyMonthly {
		return rate.Div(twelve)
	}
	return rate
}

// TotalPayable returns principal plus flat interest over the tenure, rounded to
// two decimal places.
func TotalPayable(principal, rate decimal.Decimal, installments int, interestFreq, emiFreq Frequency) decimal.Decimal {
	interest := principal.
		Mul(MonthlyRate(rate, interestFreq)).
		Mul(TenureInMonths(installments, emiFreq)).
		Div(hundred)

	return principal.Add(interest).Round(2)
}

// EmiAmount splits total evenly across installments, rounded to two decimal places
func EmiAmount(total decimal.Decimal, installments int) decimal.Decimal {
	if installments <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(installments))).Round(2)
}

// GenerateDueSchedule builds one Due record per installment. Installment i falls
// due i*days(freq) after start. The last installment absorbs rounding so the
// schedule sums to total.
func GenerateDueSchedule(planID int, category Category, start time.Time, installments int, freq Frequency, emi, total decimal.Decimal) ([]*DueRecord, error) {
	days, err := freq.Days()
	if err != nil {
		return nil, err
	}

	if installments <= 0 {
		return nil, fmt.Errorf("installments must be positive: %w", ErrInvalidAmount)
	}

	schedule := make([]*DueRecord, 0, installments)
	scheduled := decimal.Zero

	for i := 1; i <= installments; i++ {
		amount := emi
		if i == installments && total.IsPositive() {
			amount = total.Sub(scheduled)
			if amount.IsNegative() {
				amount = decimal.Zero
			}
		}
		scheduled = scheduled.Add(amount)

		schedule = append(schedule, &DueRecord{
			PlanID:     planID,
			Category:   category,
			DueDate:    start.AddDate(0, 0, i*days),
			EmiAmount:  amount,
			PaidAmount: decimal.Zero,
			LateFee:    decimal.Zero,
			PaidFee:    decimal.Zero,
			Status:     DueStatusDue,
		})
	}

	return schedule, nil
}

// MaturityDate returns the date the last installment of a schedule falls due
func MaturityDate(start time.Time, installments int, freq Frequency) (time.Time, error) {
	days, err := freq.Days()
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, installments*days), nil
}
