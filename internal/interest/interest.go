// Package interest implements statutory late payment interest under the UK
// Late Payment of Commercial Debts (Interest) Act 1998: simple daily interest
// at 8% plus the Bank of England base rate, and the tiered fixed recovery
// cost added to the debt.
package interest

import (
	"fmt"
	"iter"
	"time"

	"recoup/backend/internal/money"
	"recoup/backend/internal/rates"
)

// StatutoryRate is the fixed statutory addition applied on top of the Bank of
// England base rate.
const StatutoryRate = 8.0

// Recovery cost tiers. Upper bounds are inclusive, so a £1,000.00 invoice
// falls in the second tier.
const (
	tier1Max = 999.99
	tier2Max = 9999.99

	tier1Fee = 40
	tier2Fee = 70
	tier3Fee = 100
)

// Params are the inputs to Calculate. CurrentDate defaults to now.
// CustomBaseRate overrides the rate lookup entirely. UseCurrentRate selects
// the latest known base rate instead of the historically correct rate for the
// due date; leave it false for legally accurate calculations.
type Params struct {
	PrincipalAmount float64
	DueDate         time.Time
	CurrentDate     time.Time
	CustomBaseRate  *float64
	UseCurrentRate  bool
}

// Calculation is the full interest breakdown for one overdue invoice.
// Derived on demand, never persisted.
type Calculation struct {
	PrincipalAmount   float64   `json:"principal_amount"`
	InterestRate      float64   `json:"interest_rate"`
	BankBaseRate      float64   `json:"bank_base_rate"`
	StatutoryRate     float64   `json:"statutory_rate"`
	DaysOverdue       int       `json:"days_overdue"`
	InterestAccrued   float64   `json:"interest_accrued"`
	FixedRecoveryCost float64   `json:"fixed_recovery_cost"`
	TotalOwed         float64   `json:"total_owed"`
	DailyInterest     float64   `json:"daily_interest"`
	Breakdown         Breakdown `json:"breakdown"`
}

// Breakdown fields are each rounded to 2dp and sum exactly to TotalOwed.
type Breakdown struct {
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	FixedFee  float64 `json:"fixed_fee"`
}

// Calculator computes statutory interest against an injected base rate
// history.
type Calculator struct {
	rates rates.Provider
	now   func() time.Time
}

func NewCalculator(provider rates.Provider) *Calculator {
	if provider == nil {
		provider = rates.NewBankOfEnglandHistory()
	}
	return &Calculator{rates: provider, now: time.Now}
}

// Calculate computes the interest owed on an overdue invoice.
//
// Daily Interest = (Principal x Interest Rate) / 365
// Total Interest = Daily Interest x Days Overdue
// Total Owed     = Principal + Interest + Fixed Recovery Cost
func (c *Calculator) Calculate(params Params) (Calculation, error) {
	principal := params.PrincipalAmount
	currentDate := params.CurrentDate
	if currentDate.IsZero() {
		currentDate = c.now().UTC()
	}

	if principal <= 0 {
		return Calculation{}, ErrInvalidAmount
	}
	if params.DueDate.After(currentDate) {
		return Calculation{}, ErrFutureDueDate
	}

	daysOverdue := money.DaysBetween(params.DueDate, currentDate)
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	var baseRate float64
	switch {
	case params.CustomBaseRate != nil:
		baseRate = *params.CustomBaseRate
	case params.UseCurrentRate:
		baseRate = c.rates.CurrentRate()
	default:
		// Legally correct: the rate in force when the debt became overdue.
		baseRate = c.rates.RateEffectiveOn(params.DueDate)
	}

	interestRate := StatutoryRate + baseRate
	dailyInterest := principal * (interestRate / 100) / 365
	interestAccrued := money.Round2(dailyInterest * float64(daysOverdue))
	fixedFee := FixedRecoveryCost(principal)

	roundedPrincipal := money.Round2(principal)
	totalOwed := money.Round2(roundedPrincipal + interestAccrued + fixedFee)

	return Calculation{
		PrincipalAmount:   roundedPrincipal,
		InterestRate:      money.Round2(interestRate),
		BankBaseRate:      baseRate,
		StatutoryRate:     StatutoryRate,
		DaysOverdue:       daysOverdue,
		InterestAccrued:   interestAccrued,
		FixedRecoveryCost: fixedFee,
		TotalOwed:         totalOwed,
		DailyInterest:     money.Round2(dailyInterest),
		Breakdown: Breakdown{
			Principal: roundedPrincipal,
			Interest:  interestAccrued,
			FixedFee:  fixedFee,
		},
	}, nil
}

// FixedRecoveryCost returns the statutory flat recovery fee for a debt.
func FixedRecoveryCost(principal float64) float64 {
	switch {
	case principal <= tier1Max:
		return tier1Fee
	case principal <= tier2Max:
		return tier2Fee
	default:
		return tier3Fee
	}
}

// InterestForDays projects interest for an exact day count, linear in both
// the day count and the principal. Useful for quoting future accrual.
func (c *Calculator) InterestForDays(principal float64, days int, customBaseRate *float64) float64 {
	baseRate := c.rates.CurrentRate()
	if customBaseRate != nil {
		baseRate = *customBaseRate
	}
	interestRate := StatutoryRate + baseRate
	dailyInterest := principal * (interestRate / 100) / 365
	return money.Round2(dailyInterest * float64(days))
}

// DailyAccrual is one snapshot in an interest projection.
type DailyAccrual struct {
	Day             int       `json:"day"`
	Date            time.Time `json:"date"`
	InterestAccrued float64   `json:"interest_accrued"`
	TotalOwed       float64   `json:"total_owed"`
}

// ProjectAccrual yields horizonDays+1 daily snapshots starting at the due
// date (day 0, no interest yet, recovery fee already owed). A horizon of 0 or
// below projects the default 90 days. The sequence can be ranged over any
// number of times.
func (c *Calculator) ProjectAccrual(principal float64, dueDate time.Time, horizonDays int) iter.Seq[DailyAccrual] {
	if horizonDays <= 0 {
		horizonDays = 90
	}

	fixedFee := FixedRecoveryCost(principal)
	interestRate := StatutoryRate + c.rates.CurrentRate()
	dailyInterest := principal * (interestRate / 100) / 365

	return func(yield func(DailyAccrual) bool) {
		for day := 0; day <= horizonDays; day++ {
			accrued := money.Round2(dailyInterest * float64(day))
			snapshot := DailyAccrual{
				Day:             day,
				Date:            dueDate.AddDate(0, 0, day),
				InterestAccrued: accrued,
				TotalOwed:       money.Round2(money.Round2(principal) + accrued + fixedFee),
			}
			if !yield(snapshot) {
				return
			}
		}
	}
}

// Format renders a calculation as the plain-text breakdown embedded in
// reminder emails.
func Format(calc Calculation) string {
	return fmt.Sprintf(`Late Payment Interest Breakdown:

Principal Amount:    %s
Days Overdue:        %d days
Interest Rate:       %.2f%% per annum (%.1f%% statutory + %.2f%% BoE base rate)

Daily Interest:      %s
Interest Accrued:    %s
Fixed Recovery Cost: %s

TOTAL OWED:          %s`,
		money.FormatGBP(calc.PrincipalAmount),
		calc.DaysOverdue,
		calc.InterestRate,
		calc.StatutoryRate,
		calc.BankBaseRate,
		money.FormatGBP(calc.DailyInterest),
		money.FormatGBP(calc.InterestAccrued),
		money.FormatGBP(calc.FixedRecoveryCost),
		money.FormatGBP(calc.TotalOwed),
	)
}
