package significance

import (
	"math"

	"gouplift/domain/experiment"
	"gouplift/domain/stats"
	apperrors "gouplift/internal/errors"

	mstats "github.com/montanaflynn/stats"
)

// DefaultBalanceCovariates are the baseline variables checked for
// randomization balance
var DefaultBalanceCovariates = []string{experiment.ColHistory, experiment.ColRecency}

// CheckBalance summarises each numeric covariate per arm (mean, sample
// standard deviation) and reports the largest standardized mean difference
// between any two arms. Arms are emitted in canonical order.
func CheckBalance(records []experiment.Record, covariates []string) (*stats.BalanceReport, error) {
	if len(covariates) == 0 {
		return nil, apperrors.ConfigError("balance check needs at least one covariate")
	}
	byArm := experiment.ByArm(records)

	report := &stats.BalanceReport{}
	for _, name := range covariates {
		var perArm []stats.CovariateSummary
		for _, arm := range experiment.AllArms {
			rows := byArm[arm]
			if len(rows) == 0 {
				continue
			}
			values := make([]float64, 0, len(rows))
			for _, r := range rows {
				v, ok := r.Numeric(name)
				if !ok {
					return nil, apperrors.ConfigError("balance check: record %s has no numeric covariate %q", r.ID, name)
				}
				values = append(values, v)
			}

			mean, err := mstats.Mean(values)
			if err != nil {
				return nil, apperrors.Wrapf(err, "balance check: mean of %s for %s", name, arm)
			}
			sd := 0.0
			if len(values) > 1 {
				sd, err = mstats.StandardDeviationSample(values)
				if err != nil {
					return nil, apperrors.Wrapf(err, "balance check: std of %s for %s", name, arm)
				}
			}
			perArm = append(perArm, stats.CovariateSummary{
				Arm:      arm,
				Variable: name,
				N:        len(values),
				Mean:     mean,
				StdDev:   sd,
			})
		}

		for i := 0; i < len(perArm); i++ {
			for j := i + 1; j < len(perArm); j++ {
				if d := standardizedDiff(perArm[i], perArm[j]); d > report.MaxStdDiff {
					report.MaxStdDiff = d
				}
			}
		}
		report.Rows = append(report.Rows, perArm...)
	}
	return report, nil
}

func standardizedDiff(a, b stats.CovariateSummary) float64 {
	pooled := math.Sqrt((a.StdDev*a.StdDev + b.StdDev*b.StdDev) / 2)
	if pooled == 0 {
		return 0
	}
	return math.Abs(a.Mean-b.Mean) / pooled
}
