package significance

import (
	"math"
	"sort"

	"gouplift/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// TwoSidedNormalPValue returns P(|Z| >= |z|) for a standard normal Z.
// Uses the survival function so tiny p-values keep their precision.
func TwoSidedNormalPValue(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// TwoSidedTPValue returns P(|T| >= |t|) for Student's t with df degrees of
// freedom. df may be fractional (Welch-Satterthwaite).
func TwoSidedTPValue(t, df float64) float64 {
	if math.IsNaN(t) || math.IsNaN(df) || df <= 0 {
		return math.NaN()
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * tDist.Survival(math.Abs(t))
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// PercentileInterval computes the equal-tailed percentile interval of
// bootstrap samples, e.g. the 2.5th and 97.5th percentiles for 0.95.
func PercentileInterval(samples []float64, confidence float64) stats.Interval {
	if len(samples) == 0 {
		return stats.Interval{Lower: math.NaN(), Upper: math.NaN(), Confidence: confidence}
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	alpha := 1.0 - confidence
	return stats.Interval{
		Lower:      Percentile(sorted, alpha/2),
		Upper:      Percentile(sorted, 1-alpha/2),
		Confidence: confidence,
	}
}

// Percentile interpolates linearly between closest ranks at position
// (n-1)p of sorted, the usual default of numerical packages. sorted must be
// ascending and non-empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
