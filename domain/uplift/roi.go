package uplift

import (
	"math"

	apperrors "gouplift/internal/errors"
)

// EconomicParameters are the unit economics of a mailing
type EconomicParameters struct {
	MarginPerConversion float64 `json:"margin_per_conversion" yaml:"margin_per_conversion"`
	CostPerEmail        float64 `json:"cost_per_email" yaml:"cost_per_email"`
}

// Validate requires a positive margin and a non-negative cost
func (e EconomicParameters) Validate() error {
	if math.IsNaN(e.MarginPerConversion) || math.IsInf(e.MarginPerConversion, 0) || e.MarginPerConversion <= 0 {
		return apperrors.ConfigError("margin_per_conversion must be > 0, got %v", e.MarginPerConversion)
	}
	if math.IsNaN(e.CostPerEmail) || math.IsInf(e.CostPerEmail, 0) || e.CostPerEmail < 0 {
		return apperrors.ConfigError("cost_per_email must be >= 0, got %v", e.CostPerEmail)
	}
	return nil
}

// ROIRow is the simulated outcome of mailing the top k fraction.
// IncrementalConversions, RevenueGain, EmailCost and NetProfit are derived
// from UpliftAtK, NMailed and the economics only.
type ROIRow struct {
	K                      float64 `json:"k"`
	UpliftAtK              float64 `json:"uplift_at_k"`
	NMailed                int     `json:"n_mailed"`
	IncrementalConversions float64 `json:"incremental_conversions"`
	RevenueGain            float64 `json:"revenue_gain"`
	EmailCost              float64 `json:"email_cost"`
	NetProfit              float64 `json:"net_profit"`
	// RealizedUpliftAtK is the observed treated-minus-control outcome rate
	// inside the mailed subset. Informational; never used for profit.
	RealizedUpliftAtK float64 `json:"realized_uplift_at_k"`
}

// NewROIRow derives the monetary fields from uplift, volume and economics
func NewROIRow(k, upliftAtK float64, nMailed int, econ EconomicParameters) ROIRow {
	incremental := upliftAtK * float64(nMailed)
	revenue := incremental * econ.MarginPerConversion
	cost := float64(nMailed) * econ.CostPerEmail
	return ROIRow{
		K:                      k,
		UpliftAtK:              upliftAtK,
		NMailed:                nMailed,
		IncrementalConversions: incremental,
		RevenueGain:            revenue,
		EmailCost:              cost,
		NetProfit:              revenue - cost,
	}
}

// BestByProfit returns the row with the highest net profit; ties go to the
// smaller k. ok is false for an empty table.
func BestByProfit(rows []ROIRow) (best ROIRow, ok bool) {
	for i, r := range rows {
		if i == 0 || r.NetProfit > best.NetProfit || (r.NetProfit == best.NetProfit && r.K < best.K) {
			best = r
			ok = true
		}
	}
	return best, ok
}
