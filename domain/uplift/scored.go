package uplift

import (
	"sort"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
)

// ScoredRecord is one holdout record with its counterfactual predictions
type ScoredRecord struct {
	ID              core.RecordID  `json:"id"`
	Arm             experiment.Arm `json:"actual_arm"`
	Outcome         bool           `json:"outcome"`
	PredictedUplift float64        `json:"predicted_uplift"`
	PTreatment      float64        `json:"p_treatment"`
	PControl        float64        `json:"p_control"`
}

// Rank orders a copy of scored by predicted uplift descending, breaking ties
// by ascending record ID so the order never depends on input order.
func Rank(scored []ScoredRecord) []ScoredRecord {
	ranked := make([]ScoredRecord, len(scored))
	copy(ranked, scored)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].PredictedUplift != ranked[j].PredictedUplift {
			return ranked[i].PredictedUplift > ranked[j].PredictedUplift
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// IsRanked reports whether scored already satisfies the Rank order
func IsRanked(scored []ScoredRecord) bool {
	return sort.SliceIsSorted(scored, func(i, j int) bool {
		if scored[i].PredictedUplift != scored[j].PredictedUplift {
			return scored[i].PredictedUplift > scored[j].PredictedUplift
		}
		return scored[i].ID < scored[j].ID
	})
}
