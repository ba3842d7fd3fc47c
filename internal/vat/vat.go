// Package vat computes per-transaction UK VAT and aggregates the nine boxes
// of a VAT return. All arithmetic is on integer pence; rounding is half-up
// and happens once per VAT amount.
package vat

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"recoup/backend/internal/money"
)

// ErrInvalidPeriod means a period key did not parse as a year and quarter.
var ErrInvalidPeriod = errors.New("invalid VAT period key")

// RateCategory is a UK VAT rate band.
type RateCategory string

const (
	RateStandard RateCategory = "standard" // 20%
	RateReduced  RateCategory = "reduced"  // 5%
	RateZero     RateCategory = "zero"     // 0%
	RateExempt   RateCategory = "exempt"   // outside the VAT calculation
)

// Percent returns the nominal percentage for a rate category.
func (r RateCategory) Percent() float64 {
	switch r {
	case RateStandard:
		return 20
	case RateReduced:
		return 5
	default:
		return 0
	}
}

type TransactionType string

const (
	Sale     TransactionType = "sale"
	Purchase TransactionType = "purchase"
)

// Transaction is one VAT-relevant sale or purchase.
type Transaction struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	NetAmountPence int64           `json:"net_amount_pence"`
	VATAmountPence int64           `json:"vat_amount_pence"`
	GrossPence     int64           `json:"gross_pence"`
	Rate           RateCategory    `json:"rate"`
	Type           TransactionType `json:"type"`
	ReverseCharge  bool            `json:"reverse_charge"`
	EUCountry      string          `json:"eu_country,omitempty"`
	Description    string          `json:"description,omitempty"`
}

// TransactionOpts carries the optional cross-border flags.
type TransactionOpts struct {
	ReverseCharge bool
	EUCountry     string
	Description   string
}

// CalculateVAT returns the VAT in pence on a net amount, half-up.
func CalculateVAT(netPence int64, rate RateCategory) int64 {
	return int64(math.Round(float64(netPence) * rate.Percent() / 100))
}

// CalculateNetFromGross extracts the net amount from a gross amount.
// Approximate inverse of CalculateVAT: the round trip is lossless for the
// gross values produced by CalculateVAT but not guaranteed for arbitrary
// gross inputs, since pence rounding discards sub-penny information.
func CalculateNetFromGross(grossPence int64, rate RateCategory) int64 {
	divisor := 1 + rate.Percent()/100
	return int64(math.Round(float64(grossPence) / divisor))
}

// NewTransaction computes the VAT and gross for a transaction. Reverse-charge
// purchases carry no VAT on the transaction itself; the acquisition VAT is
// reported through boxes 2 and 9 of the return instead.
func NewTransaction(id string, date time.Time, netPence int64, rate RateCategory, txType TransactionType, opts TransactionOpts) Transaction {
	vatPence := CalculateVAT(netPence, rate)
	if opts.ReverseCharge && txType == Purchase {
		vatPence = 0
	}

	return Transaction{
		ID:             id,
		Date:           date,
		NetAmountPence: netPence,
		VATAmountPence: vatPence,
		GrossPence:     netPence + vatPence,
		Rate:           rate,
		Type:           txType,
		ReverseCharge:  opts.ReverseCharge,
		EUCountry:      opts.EUCountry,
		Description:    opts.Description,
	}
}

// Period is an inclusive date range, normally a money.VATQuarter.
type Period struct {
	Key       string    `json:"key"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Contains reports whether date falls within the period, bounds inclusive.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// ParsePeriod resolves a quarter key such as "2024-Q1" into its inclusive
// date range. Fails with ErrInvalidPeriod on anything malformed.
func ParsePeriod(key string) (Period, error) {
	var year, q int
	if _, err := fmt.Sscanf(key, "%d-Q%d", &year, &q); err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, key)
	}
	if year < 1973 || q < 1 || q > 4 || fmt.Sprintf("%d-Q%d", year, q) != key {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, key)
	}

	quarter := money.QuarterFor(time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC))
	return Period{Key: key, StartDate: quarter.StartDate, EndDate: quarter.EndDate}, nil
}

// Return holds the nine standard boxes of a UK VAT return, in pence.
//
//	Box 1  VAT due on sales
//	Box 2  VAT due on EC acquisitions
//	Box 3  total VAT due (1 + 2)
//	Box 4  VAT reclaimed on purchases
//	Box 5  net VAT due (3 - 4, negative = reclaim)
//	Box 6  total net sales
//	Box 7  total net purchases
//	Box 8  net EC sales
//	Box 9  net EC purchases
type Return struct {
	PeriodKey string    `json:"period_key"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Box1      int64     `json:"box1"`
	Box2      int64     `json:"box2"`
	Box3      int64     `json:"box3"`
	Box4      int64     `json:"box4"`
	Box5      int64     `json:"box5"`
	Box6      int64     `json:"box6"`
	Box7      int64     `json:"box7"`
	Box8      int64     `json:"box8"`
	Box9      int64     `json:"box9"`
	Finalised bool      `json:"finalised"`
}

// GenerateReturn aggregates the in-period transactions into a VAT return.
// Transactions dated outside the period are excluded from every box.
func GenerateReturn(transactions []Transaction, period Period) Return {
	ret := Return{
		PeriodKey: period.Key,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
	}

	for _, tx := range transactions {
		if !period.Contains(tx.Date) {
			continue
		}

		switch tx.Type {
		case Sale:
			ret.Box6 += tx.NetAmountPence
			ret.Box1 += tx.VATAmountPence
			if tx.EUCountry != "" {
				ret.Box8 += tx.NetAmountPence
			}
		case Purchase:
			ret.Box7 += tx.NetAmountPence
			if tx.ReverseCharge {
				// Self-accounted acquisition VAT at the nominal rate.
				ret.Box2 += CalculateVAT(tx.NetAmountPence, tx.Rate)
				ret.Box9 += tx.NetAmountPence
			} else {
				ret.Box4 += tx.VATAmountPence
			}
		}
	}

	ret.Box3 = ret.Box1 + ret.Box2
	ret.Box5 = ret.Box3 - ret.Box4
	return ret
}

// ValidationResult is the outcome of checking a return's internal
// consistency. Inconsistency is an expected outcome, not an error.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateReturn checks box arithmetic and sign rules. Box 5 may be negative
// (a reclaim); every other box must be non-negative.
func ValidateReturn(ret Return) ValidationResult {
	var errs []string

	if ret.Box3 != ret.Box1+ret.Box2 {
		errs = append(errs, fmt.Sprintf("box 3 (%d) must equal box 1 + box 2 (%d)", ret.Box3, ret.Box1+ret.Box2))
	}

	boxes := map[string]int64{
		"box 1": ret.Box1, "box 2": ret.Box2, "box 3": ret.Box3,
		"box 4": ret.Box4, "box 6": ret.Box6, "box 7": ret.Box7,
		"box 8": ret.Box8, "box 9": ret.Box9,
	}
	names := make([]string, 0, len(boxes))
	for name := range boxes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if boxes[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative (%d)", name, boxes[name]))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
