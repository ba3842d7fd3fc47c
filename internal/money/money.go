package money

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Round2 rounds to 2 decimal places, half away from zero. Applied once at
// every externally observable monetary boundary.
func Round2(val float64) float64 {
	return math.Round(val*100) / 100
}

// PoundsToPence converts a pound amount to integer pence with half-up rounding.
func PoundsToPence(pounds float64) int64 {
	return int64(math.Round(pounds * 100))
}

// PenceToPounds converts integer pence to a pound amount.
func PenceToPounds(pence int64) float64 {
	return float64(pence) / 100
}

// DaysBetween returns whole days from a to b, flooring the sub-day remainder.
// Negative when b precedes a.
func DaysBetween(a time.Time, b time.Time) int {
	diff := b.Sub(a)
	days := math.Floor(diff.Hours() / 24)
	return int(days)
}

// VATQuarter is a UK calendar VAT quarter with its filing deadline
// (one calendar month plus 7 days after quarter end).
type VATQuarter struct {
	Quarter   int
	Year      int
	StartDate time.Time
	EndDate   time.Time
	Deadline  time.Time
}

// QuarterFor resolves the calendar VAT quarter containing date.
// Q1 Jan-Mar, Q2 Apr-Jun, Q3 Jul-Sep, Q4 Oct-Dec.
func QuarterFor(date time.Time) VATQuarter {
	year := date.Year()
	q := (int(date.Month())-1)/3 + 1
	startMonth := time.Month((q-1)*3 + 1)

	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0).Add(-24 * time.Hour)
	deadline := start.AddDate(0, 4, 6)

	return VATQuarter{
		Quarter:   q,
		Year:      year,
		StartDate: start,
		EndDate:   end,
		Deadline:  deadline,
	}
}

// FormatGBP formats pounds as a grouped sterling string, e.g. "£1,234.56".
func FormatGBP(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	whole := int64(Round2(amount))
	frac := int64(math.Round(Round2(amount)*100)) % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := fmt.Sprintf("£%s.%02d", strings.Join(groups, ","), frac)
	if neg {
		return "-" + out
	}
	return out
}

// FormatGBPPence formats integer pence as sterling.
func FormatGBPPence(pence int64) string {
	return FormatGBP(PenceToPounds(pence))
}
