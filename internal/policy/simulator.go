package policy

import (
	"errors"
	"math"

	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"
)

// DefaultKs are the targeting fractions reported by default
var DefaultKs = []float64{0.05, 0.1, 0.2, 0.3, 1.0}

// floorSlack absorbs representation error in N*k, so 0.29*100 mails 29
const floorSlack = 1e-9

// Simulator turns a ranked holdout into ROI rows for top-k targeting
type Simulator struct {
	econ domain.EconomicParameters
}

// NewSimulator validates the economics up front
func NewSimulator(econ domain.EconomicParameters) (*Simulator, error) {
	if err := econ.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{econ: econ}, nil
}

// Simulate returns one ROI row per valid k, in the order given. The mailed
// set for k is the top floor(N*k) records of the uplift ranking. An invalid
// k does not stop the others: its failure is joined into the returned error.
func (s *Simulator) Simulate(scored []domain.ScoredRecord, pair experiment.ArmPair, ks []float64) ([]domain.ROIRow, error) {
	ranked := domain.Rank(scored)
	n := len(ranked)

	// prefix sums over the ranking, shared by every k
	upliftSum := make([]float64, n+1)
	treated := make([]int, n+1)
	treatedConv := make([]int, n+1)
	control := make([]int, n+1)
	controlConv := make([]int, n+1)
	for i, r := range ranked {
		upliftSum[i+1] = upliftSum[i] + r.PredictedUplift
		treated[i+1], treatedConv[i+1] = treated[i], treatedConv[i]
		control[i+1], controlConv[i+1] = control[i], controlConv[i]
		switch r.Arm {
		case pair.Treatment:
			treated[i+1]++
			if r.Outcome {
				treatedConv[i+1]++
			}
		case pair.Control:
			control[i+1]++
			if r.Outcome {
				controlConv[i+1]++
			}
		}
	}

	rows := make([]domain.ROIRow, 0, len(ks))
	var errs []error
	for _, k := range ks {
		if err := ValidateK(k); err != nil {
			errs = append(errs, err)
			continue
		}
		m := int(math.Floor(float64(n)*k + floorSlack))
		if m > n {
			m = n
		}
		if m == 0 {
			rows = append(rows, domain.ROIRow{K: k})
			continue
		}
		row := domain.NewROIRow(k, upliftSum[m]/float64(m), m, s.econ)
		if treated[m] > 0 && control[m] > 0 {
			row.RealizedUpliftAtK = float64(treatedConv[m])/float64(treated[m]) -
				float64(controlConv[m])/float64(control[m])
		}
		rows = append(rows, row)
	}
	return rows, errors.Join(errs...)
}

// ValidateK requires k in (0,1]
func ValidateK(k float64) error {
	if math.IsNaN(k) || k <= 0 || k > 1 {
		return apperrors.ConfigError("k must be in (0,1], got %v", k)
	}
	return nil
}
