// Package rates maintains the Bank of England base rate history used for
// statutory late-payment interest. The Late Payment of Commercial Debts
// (Interest) Act 1998 fixes the rate for a debt at the base rate in force on
// the reference date (30 June or 31 December) immediately before the payment
// became overdue, so lookups are effective-dated rather than current-rate.
package rates

import (
	"time"
)

// Provider is an effective-dated base rate lookup. Injected into the interest
// calculator so alternative histories (tests, future rate feeds) can be wired
// at construction time.
type Provider interface {
	// RateEffectiveOn returns the base rate percentage in force for a debt
	// that became overdue on the given date.
	RateEffectiveOn(date time.Time) float64

	// CurrentRate returns the most recent known base rate percentage.
	CurrentRate() float64
}

// Entry is one half-yearly base rate record. EffectiveFrom is always
// 1 January or 1 July; ReferenceDate the 31 December or 30 June before it.
type Entry struct {
	EffectiveFrom time.Time
	Rate          float64
	ReferenceDate time.Time
}

// History is a static, newest-first rate table.
type History struct {
	entries []Entry
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// boeHistory holds published Bank of England base rates, newest first.
// Source: https://www.bankofengland.co.uk/boeapps/database/Bank-Rate.asp
// Add a new entry each 1 January / 1 July when the rate changes.
var boeHistory = []Entry{
	{EffectiveFrom: date(2025, 7, 1), Rate: 5.25, ReferenceDate: date(2025, 6, 30)},
	{EffectiveFrom: date(2025, 1, 1), Rate: 5.00, ReferenceDate: date(2024, 12, 31)},
	{EffectiveFrom: date(2024, 7, 1), Rate: 5.25, ReferenceDate: date(2024, 6, 30)},
	{EffectiveFrom: date(2024, 1, 1), Rate: 5.25, ReferenceDate: date(2023, 12, 31)},
	{EffectiveFrom: date(2023, 7, 1), Rate: 5.00, ReferenceDate: date(2023, 6, 30)},
	{EffectiveFrom: date(2023, 1, 1), Rate: 3.50, ReferenceDate: date(2022, 12, 31)},
	{EffectiveFrom: date(2022, 7, 1), Rate: 1.25, ReferenceDate: date(2022, 6, 30)},
	{EffectiveFrom: date(2022, 1, 1), Rate: 0.25, ReferenceDate: date(2021, 12, 31)},
	{EffectiveFrom: date(2021, 7, 1), Rate: 0.10, ReferenceDate: date(2021, 6, 30)},
	{EffectiveFrom: date(2021, 1, 1), Rate: 0.10, ReferenceDate: date(2020, 12, 31)},
	{EffectiveFrom: date(2020, 7, 1), Rate: 0.10, ReferenceDate: date(2020, 6, 30)},
	{EffectiveFrom: date(2020, 1, 1), Rate: 0.75, ReferenceDate: date(2019, 12, 31)},
}

// NewBankOfEnglandHistory returns the built-in published rate table.
func NewBankOfEnglandHistory() *History {
	return &History{entries: boeHistory}
}

// NewHistory builds a provider from custom entries (newest-first expected).
func NewHistory(entries []Entry) *History {
	return &History{entries: entries}
}

// RateEffectiveOn finds the most recent entry whose effective date is on or
// before the given date. Dates before the table falls back to the oldest
// known rate.
func (h *History) RateEffectiveOn(dateOn time.Time) float64 {
	for _, entry := range h.entries {
		if !entry.EffectiveFrom.After(dateOn) {
			return entry.Rate
		}
	}
	return h.entries[len(h.entries)-1].Rate
}

// CurrentRate returns the newest entry's rate.
func (h *History) CurrentRate() float64 {
	return h.entries[0].Rate
}

// UpdateCheck describes an upcoming half-yearly rate boundary with no entry.
type UpdateCheck struct {
	NextUpdateDate time.Time
	DaysUntil      int
}

// UpdateDueSoon reports whether a 1 January / 1 July boundary is within the
// next 7 days without a matching table entry. The worker surfaces this at
// startup so operators add the new rate before it is needed.
func (h *History) UpdateDueSoon(now time.Time) (UpdateCheck, bool) {
	year, month, day := now.Year(), now.Month(), now.Day()

	var next time.Time
	switch {
	case month < time.July:
		next = date(year, 7, 1)
	case month == time.July && day == 1:
		next = date(year, 7, 1)
	default:
		next = date(year+1, 1, 1)
	}

	today := date(year, month, day)
	daysUntil := int(next.Sub(today).Hours() / 24)
	check := UpdateCheck{NextUpdateDate: next, DaysUntil: daysUntil}

	if daysUntil < 0 || daysUntil > 7 {
		return check, false
	}
	for _, entry := range h.entries {
		if entry.EffectiveFrom.Equal(next) {
			return check, false
		}
	}
	return check, true
}
