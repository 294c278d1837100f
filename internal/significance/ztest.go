package significance

import (
	"math"

	"gouplift/domain/experiment"
	"gouplift/domain/stats"
	apperrors "gouplift/internal/errors"
)

// ConversionZTest performs a pooled two-proportion z-test of the treatment
// rate x1/n1 against the control rate x2/n2.
//
// A zero pooled standard error (both arms all-converted or none-converted)
// does not abort: the returned result is marked Indeterminate and a
// StatisticalError is returned alongside it.
func ConversionZTest(pair experiment.ArmPair, x1, n1, x2, n2 int) (*stats.ConversionTestResult, error) {
	if n1 <= 0 || n2 <= 0 {
		return nil, apperrors.DataError("conversion test %s: empty arm (n_treatment=%d, n_control=%d)", pair, n1, n2)
	}
	if x1 < 0 || x2 < 0 || x1 > n1 || x2 > n2 {
		return nil, apperrors.DataError("conversion test %s: conversions out of range (%d/%d, %d/%d)", pair, x1, n1, x2, n2)
	}

	p1 := float64(x1) / float64(n1)
	p2 := float64(x2) / float64(n2)

	result := &stats.ConversionTestResult{
		Pair:               pair,
		AbsLift:            p1 - p2,
		RelLift:            math.NaN(),
		RateTreatment:      p1,
		RateControl:        p2,
		ConversionsTreated: x1,
		ConversionsControl: x2,
		NTreatment:         n1,
		NControl:           n2,
		CITreatment:        WilsonInterval(x1, n1, 0.95),
		CIControl:          WilsonInterval(x2, n2, 0.95),
	}
	if p2 > 0 {
		result.RelLift = (p1 - p2) / p2
	}

	pPool := float64(x1+x2) / float64(n1+n2)
	se := math.Sqrt(pPool * (1 - pPool) * (1/float64(n1) + 1/float64(n2)))
	if se == 0 || math.IsNaN(se) {
		result.Z = math.NaN()
		result.PValue = math.NaN()
		result.Indeterminate = true
		result.Reason = "zero pooled variance"
		return result, apperrors.StatisticalError("conversion test %s: zero pooled standard error (pooled rate %.4f)", pair, pPool)
	}

	result.Z = (p1 - p2) / se
	result.PValue = TwoSidedNormalPValue(result.Z)
	return result, nil
}

// CompareConversion counts outcomes per arm in records and runs ConversionZTest
func CompareConversion(records []experiment.Record, pair experiment.ArmPair, outcome experiment.Outcome) (*stats.ConversionTestResult, error) {
	byArm := experiment.ByArm(records)
	x1, n1 := experiment.CountOutcome(byArm[pair.Treatment], outcome)
	x2, n2 := experiment.CountOutcome(byArm[pair.Control], outcome)
	return ConversionZTest(pair, x1, n1, x2, n2)
}

// WilsonInterval returns the Wilson score interval for x successes in n trials
func WilsonInterval(x, n int, confidence float64) stats.Interval {
	if n <= 0 {
		return stats.Interval{Confidence: confidence}
	}
	z := NormalQuantile(1 - (1-confidence)/2)
	nf := float64(n)
	p := float64(x) / nf
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return stats.Interval{
		Lower:      math.Max(0, center-half),
		Upper:      math.Min(1, center+half),
		Confidence: confidence,
	}
}
