package uplift

import (
	"math"

	"gouplift/domain/experiment"
)

// QiniPoint is one point of the cumulative incremental-gain curve
type QiniPoint struct {
	Fraction float64 `json:"fraction_targeted"`
	Gain     float64 `json:"incremental_gain"`
}

// QiniCurve is the incremental-gain curve over a ranked population. Points are
// strictly increasing in Fraction from 0 to 1. Built once by the evaluator.
type QiniCurve struct {
	Pair   experiment.ArmPair `json:"pair"`
	Points []QiniPoint        `json:"points"`
}

// Len returns the number of points, including the origin
func (c QiniCurve) Len() int { return len(c.Points) }

// Final returns the gain at fraction 1, the population-level incremental gain
func (c QiniCurve) Final() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	return c.Points[len(c.Points)-1].Gain
}

// At returns the gain at fraction tau, interpolating linearly between points.
// tau is clamped to [0,1].
func (c QiniCurve) At(tau float64) float64 {
	n := len(c.Points)
	if n == 0 || math.IsNaN(tau) {
		return 0
	}
	if tau <= c.Points[0].Fraction {
		return c.Points[0].Gain
	}
	if tau >= c.Points[n-1].Fraction {
		return c.Points[n-1].Gain
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if c.Points[mid].Fraction <= tau {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := c.Points[lo], c.Points[hi]
	w := (tau - a.Fraction) / (b.Fraction - a.Fraction)
	return a.Gain + w*(b.Gain-a.Gain)
}

// Downsample keeps at most maxPoints evenly spaced points, always keeping both
// endpoints. Used for storage and export; AUC is computed on the full curve.
func (c QiniCurve) Downsample(maxPoints int) QiniCurve {
	n := len(c.Points)
	if maxPoints < 2 || n <= maxPoints {
		return c
	}
	out := make([]QiniPoint, 0, maxPoints)
	step := float64(n-1) / float64(maxPoints-1)
	last := -1
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx == last {
			continue
		}
		out = append(out, c.Points[idx])
		last = idx
	}
	return QiniCurve{Pair: c.Pair, Points: out}
}

// QiniResult bundles a curve with its scalar summaries
type QiniResult struct {
	Curve QiniCurve `json:"curve"`
	// AUC is the signed area between the curve and the straight line from
	// the origin to (1, Final). Positive means better than random targeting.
	AUC float64 `json:"qini_auc"`
	// Coefficient is AUC divided by the random-line area, 0 when Final is 0.
	Coefficient float64 `json:"qini_coefficient"`
	NTreatment  int     `json:"n_treatment"`
	NControl    int     `json:"n_control"`
	AreaModel   float64 `json:"area_model"`
	AreaRandom  float64 `json:"area_random"`
}
