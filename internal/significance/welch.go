package significance

import (
	"context"
	"math"

	"gouplift/domain/experiment"
	"gouplift/domain/stats"
	apperrors "gouplift/internal/errors"
	"gouplift/ports"

	gstat "gonum.org/v1/gonum/stat"
)

// SpendWelchTest compares mean spend of the treatment sample a with the
// control sample b (zeros included for non-converters). NaN values are
// dropped first.
//
// Both variances zero leaves t undefined: the result is returned marked
// Indeterminate along with a StatisticalError, and no bootstrap is run.
func SpendWelchTest(ctx context.Context, rng ports.RNGPort, pair experiment.ArmPair, a, b []float64, opts BootstrapOptions) (*stats.SpendTestResult, error) {
	a = dropNaN(a)
	b = dropNaN(b)
	if len(a) < 2 || len(b) < 2 {
		return nil, apperrors.DataError("spend test %s: need at least 2 observations per arm (n_treatment=%d, n_control=%d)", pair, len(a), len(b))
	}

	n1, n2 := float64(len(a)), float64(len(b))
	mean1, var1 := gstat.MeanVariance(a, nil)
	mean2, var2 := gstat.MeanVariance(b, nil)

	result := &stats.SpendTestResult{
		Pair:          pair,
		MeanTreatment: mean1,
		MeanControl:   mean2,
		MeanDiff:      mean1 - mean2,
		Resamples:     opts.Resamples,
		Seed:          opts.Seed,
		NTreatment:    len(a),
		NControl:      len(b),
	}

	s1, s2 := var1/n1, var2/n2
	se := math.Sqrt(s1 + s2)
	if se == 0 || math.IsNaN(se) {
		result.T = math.NaN()
		result.DF = math.NaN()
		result.PValue = math.NaN()
		result.CI = stats.Interval{Lower: math.NaN(), Upper: math.NaN(), Confidence: opts.Confidence}
		result.Indeterminate = true
		result.Reason = "zero variance in both arms"
		return result, apperrors.StatisticalError("spend test %s: t-statistic undefined, both arms have zero variance", pair)
	}

	result.T = (mean1 - mean2) / se
	result.DF = (s1 + s2) * (s1 + s2) / (s1*s1/(n1-1) + s2*s2/(n2-1))
	result.PValue = TwoSidedTPValue(result.T, result.DF)

	ci, _, err := BootstrapMeanDiff(ctx, rng, a, b, opts)
	if err != nil {
		return nil, apperrors.Wrapf(err, "spend test %s: bootstrap", pair)
	}
	result.CI = ci
	return result, nil
}

// CompareSpend extracts spend per arm and runs SpendWelchTest
func CompareSpend(ctx context.Context, rng ports.RNGPort, records []experiment.Record, pair experiment.ArmPair, opts BootstrapOptions) (*stats.SpendTestResult, error) {
	byArm := experiment.ByArm(records)
	return SpendWelchTest(ctx, rng, pair,
		experiment.Spends(byArm[pair.Treatment]),
		experiment.Spends(byArm[pair.Control]),
		opts)
}

func dropNaN(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
