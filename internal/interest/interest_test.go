package interest

import (
	"errors"
	"testing"
	"time"

	"recoup/backend/internal/money"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestCalculateStatutoryInterest(t *testing.T) {
	calc := NewCalculator(nil)

	// £1,000 due 17 Nov 2024, evaluated 1 Jan 2025. Base rate in force on the
	// due date was 5.25%, so 13.25% per annum over 45 days.
	result, err := calc.Calculate(Params{
		PrincipalAmount: 1000,
		DueDate:         d(2024, 11, 17),
		CurrentDate:     d(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}

	if result.DaysOverdue != 45 {
		t.Fatalf("expected 45 days overdue, got %d", result.DaysOverdue)
	}
	if result.BankBaseRate != 5.25 || result.InterestRate != 13.25 {
		t.Fatalf("expected 5.25%% base / 13.25%% total, got %v / %v", result.BankBaseRate, result.InterestRate)
	}
	if result.InterestAccrued != 16.34 {
		t.Fatalf("expected £16.34 accrued, got %v", result.InterestAccrued)
	}
	if result.DailyInterest != 0.36 {
		t.Fatalf("expected £0.36 daily, got %v", result.DailyInterest)
	}
	if result.FixedRecoveryCost != 70 {
		t.Fatalf("expected £70 recovery cost, got %v", result.FixedRecoveryCost)
	}

	wantTotal := money.Round2(1000 + result.InterestAccrued + result.FixedRecoveryCost)
	if result.TotalOwed != wantTotal {
		t.Fatalf("expected total %v, got %v", wantTotal, result.TotalOwed)
	}

	sum := money.Round2(result.Breakdown.Principal + result.Breakdown.Interest + result.Breakdown.FixedFee)
	if sum != result.TotalOwed {
		t.Fatalf("breakdown sums to %v, total is %v", sum, result.TotalOwed)
	}
}

func TestCalculateValidation(t *testing.T) {
	calc := NewCalculator(nil)

	_, err := calc.Calculate(Params{PrincipalAmount: 0, DueDate: d(2024, 1, 1), CurrentDate: d(2024, 6, 1)})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = calc.Calculate(Params{PrincipalAmount: -50, DueDate: d(2024, 1, 1), CurrentDate: d(2024, 6, 1)})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative principal, got %v", err)
	}

	_, err = calc.Calculate(Params{PrincipalAmount: 100, DueDate: d(2024, 6, 2), CurrentDate: d(2024, 6, 1)})
	if !errors.Is(err, ErrFutureDueDate) {
		t.Fatalf("expected ErrFutureDueDate, got %v", err)
	}
}

func TestCalculateSameDayDue(t *testing.T) {
	calc := NewCalculator(nil)

	result, err := calc.Calculate(Params{
		PrincipalAmount: 500,
		DueDate:         d(2024, 6, 1),
		CurrentDate:     d(2024, 6, 1),
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if result.DaysOverdue != 0 || result.InterestAccrued != 0 {
		t.Fatalf("expected zero accrual on the due day, got %d days / %v", result.DaysOverdue, result.InterestAccrued)
	}
	if result.DailyInterest <= 0 {
		t.Fatalf("daily interest should still be reported, got %v", result.DailyInterest)
	}
}

func TestCalculateCustomAndCurrentRate(t *testing.T) {
	calc := NewCalculator(nil)
	custom := 2.0

	result, err := calc.Calculate(Params{
		PrincipalAmount: 1000,
		DueDate:         d(2024, 11, 17),
		CurrentDate:     d(2025, 1, 1),
		CustomBaseRate:  &custom,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if result.InterestRate != 10.0 {
		t.Fatalf("expected 10%% with custom base rate, got %v", result.InterestRate)
	}

	result, err = calc.Calculate(Params{
		PrincipalAmount: 1000,
		DueDate:         d(2023, 2, 1),
		CurrentDate:     d(2025, 1, 1),
		UseCurrentRate:  true,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	// Historical rate for Feb 2023 would be 3.50; current is 5.25.
	if result.BankBaseRate != 5.25 {
		t.Fatalf("expected current rate 5.25, got %v", result.BankBaseRate)
	}
}

func TestFixedRecoveryCostTiers(t *testing.T) {
	cases := []struct {
		principal float64
		want      float64
	}{
		{100, 40}, {500, 40}, {999.98, 40}, {999.99, 40},
		{1000, 70}, {1000.01, 70}, {5000, 70}, {9999.98, 70}, {9999.99, 70},
		{10000, 100}, {10000.01, 100}, {50000, 100},
	}
	for _, tc := range cases {
		if got := FixedRecoveryCost(tc.principal); got != tc.want {
			t.Fatalf("FixedRecoveryCost(%v) = %v, want %v", tc.principal, got, tc.want)
		}
	}
}

func TestInterestForDaysLinearity(t *testing.T) {
	calc := NewCalculator(nil)

	for _, days := range []int{10, 20, 40} {
		single := calc.InterestForDays(1000, days, nil)
		double := calc.InterestForDays(1000, 2*days, nil)
		if double != 2*single {
			t.Fatalf("not linear in days: %v for %dd vs %v for %dd", single, days, double, 2*days)
		}
	}

	base := calc.InterestForDays(1000, 10, nil)
	doubled := calc.InterestForDays(2000, 10, nil)
	if doubled != 2*base {
		t.Fatalf("not linear in principal: %v vs %v", base, doubled)
	}

	custom := 4.0
	got := calc.InterestForDays(1000, 365, &custom)
	if got != 120 {
		t.Fatalf("expected £120 for a year at 12%%, got %v", got)
	}
}

func TestProjectAccrual(t *testing.T) {
	calc := NewCalculator(nil)
	due := d(2024, 11, 17)

	var snapshots []DailyAccrual
	for snap := range calc.ProjectAccrual(1000, due, 90) {
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) != 91 {
		t.Fatalf("expected 91 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].InterestAccrued != 0 {
		t.Fatalf("day 0 should have no interest, got %v", snapshots[0].InterestAccrued)
	}
	if snapshots[0].TotalOwed != 1070 {
		t.Fatalf("day 0 total should include the recovery fee, got %v", snapshots[0].TotalOwed)
	}
	if !snapshots[0].Date.Equal(due) || !snapshots[90].Date.Equal(due.AddDate(0, 0, 90)) {
		t.Fatalf("snapshot dates misaligned: %v .. %v", snapshots[0].Date, snapshots[90].Date)
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].InterestAccrued <= snapshots[i-1].InterestAccrued {
			t.Fatalf("accrual not strictly increasing at day %d", i)
		}
	}

	// Restartable: a second pass yields the same sequence.
	count := 0
	for snap := range calc.ProjectAccrual(1000, due, 90) {
		if snap != snapshots[count] {
			t.Fatalf("second pass diverged at day %d", count)
		}
		count++
	}
	if count != 91 {
		t.Fatalf("second pass yielded %d snapshots", count)
	}
}
