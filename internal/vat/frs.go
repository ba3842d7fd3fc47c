package vat

import (
	"fmt"
	"math"
)

// limitedCostTraderRate is the fixed percentage HMRC imposes on limited cost
// traders regardless of their sector rate.
const limitedCostTraderRate = 16.5

// FRSConfig describes a Flat Rate Scheme registration.
type FRSConfig struct {
	Percentage        float64 `json:"percentage"`
	LimitedCostTrader bool    `json:"limited_cost_trader"`
	Sector            string  `json:"sector,omitempty"`
}

// FRSResult compares flat-rate VAT against a standard-accounting estimate.
type FRSResult struct {
	GrossTurnoverPence int64   `json:"gross_turnover_pence"`
	RateUsed           float64 `json:"rate_used"`
	VATPayablePence    int64   `json:"vat_payable_pence"`
	StandardVATPence   int64   `json:"standard_vat_pence"`
	SavingsPence       int64   `json:"savings_pence"`
}

// CalculateFRS computes Flat Rate Scheme VAT on gross turnover. The savings
// figure compares against the standard-accounting estimate of gross/1.2*0.2.
func CalculateFRS(grossTurnoverPence int64, cfg FRSConfig) FRSResult {
	rate := cfg.Percentage
	if cfg.LimitedCostTrader {
		rate = limitedCostTraderRate
	}

	payable := int64(math.Round(float64(grossTurnoverPence) * rate / 100))
	standard := int64(math.Round(float64(grossTurnoverPence) / 1.2 * 0.2))

	return FRSResult{
		GrossTurnoverPence: grossTurnoverPence,
		RateUsed:           rate,
		VATPayablePence:    payable,
		StandardVATPence:   standard,
		SavingsPence:       standard - payable,
	}
}

// HMRCReturn is the string form HMRC's MTD interface expects: every monetary
// box as a fixed 2dp string, finalised as the literal "true"/"false".
type HMRCReturn struct {
	PeriodKey string `json:"periodKey"`
	Box1      string `json:"vatDueSales"`
	Box2      string `json:"vatDueAcquisitions"`
	Box3      string `json:"totalVatDue"`
	Box4      string `json:"vatReclaimedCurrPeriod"`
	Box5      string `json:"netVatDue"`
	Box6      string `json:"totalValueSalesExVAT"`
	Box7      string `json:"totalValuePurchasesExVAT"`
	Box8      string `json:"totalValueGoodsSuppliedExVAT"`
	Box9      string `json:"totalAcquisitionsExVAT"`
	Finalised string `json:"finalised"`
}

// FormatForHMRC converts a return to its HMRC submission representation.
func FormatForHMRC(ret Return) HMRCReturn {
	return HMRCReturn{
		PeriodKey: ret.PeriodKey,
		Box1:      formatPence(ret.Box1),
		Box2:      formatPence(ret.Box2),
		Box3:      formatPence(ret.Box3),
		Box4:      formatPence(ret.Box4),
		Box5:      formatPence(ret.Box5),
		Box6:      formatPence(ret.Box6),
		Box7:      formatPence(ret.Box7),
		Box8:      formatPence(ret.Box8),
		Box9:      formatPence(ret.Box9),
		Finalised: fmt.Sprintf("%t", ret.Finalised),
	}
}

func formatPence(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s%d.%02d", sign, pence/100, pence%100)
}
