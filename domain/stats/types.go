package stats

import (
	"gouplift/domain/experiment"
)

// Interval is a two-sided confidence interval
type Interval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// Width returns Upper - Lower
func (i Interval) Width() float64 { return i.Upper - i.Lower }

// Contains reports whether x lies inside the closed interval
func (i Interval) Contains(x float64) bool { return x >= i.Lower && x <= i.Upper }

// ConversionTestResult is the outcome of a pooled two-proportion z-test.
// When Indeterminate is set, Z and PValue are NaN and Reason explains why.
type ConversionTestResult struct {
	Pair               experiment.ArmPair `json:"pair"`
	Z                  float64            `json:"z"`
	PValue             float64            `json:"p_value"`
	AbsLift            float64            `json:"abs_lift"`
	RelLift            float64            `json:"rel_lift"`
	RateTreatment      float64            `json:"rate_treatment"`
	RateControl        float64            `json:"rate_control"`
	ConversionsTreated int                `json:"conversions_treatment"`
	ConversionsControl int                `json:"conversions_control"`
	NTreatment         int                `json:"n_treatment"`
	NControl           int                `json:"n_control"`
	CITreatment        Interval           `json:"ci_treatment"`
	CIControl          Interval           `json:"ci_control"`
	Indeterminate      bool               `json:"indeterminate"`
	Reason             string             `json:"reason,omitempty"`
}

// Significant reports a determinate result with p below alpha
func (r ConversionTestResult) Significant(alpha float64) bool {
	return !r.Indeterminate && r.PValue < alpha
}

// SpendTestResult is the outcome of a Welch t-test plus bootstrap interval
// on spend, zeros included for non-converters.
type SpendTestResult struct {
	Pair          experiment.ArmPair `json:"pair"`
	T             float64            `json:"t"`
	DF            float64            `json:"df"`
	PValue        float64            `json:"p_value"`
	MeanTreatment float64            `json:"mean_treatment"`
	MeanControl   float64            `json:"mean_control"`
	MeanDiff      float64            `json:"mean_diff"`
	CI            Interval           `json:"ci"`
	Resamples     int                `json:"resamples"`
	Seed          int64              `json:"seed"`
	NTreatment    int                `json:"n_treatment"`
	NControl      int                `json:"n_control"`
	Indeterminate bool               `json:"indeterminate"`
	Reason        string             `json:"reason,omitempty"`
}

// Significant reports a determinate result with p below alpha
func (r SpendTestResult) Significant(alpha float64) bool {
	return !r.Indeterminate && r.PValue < alpha
}

// CovariateSummary is the mean and standard deviation of one baseline
// covariate within one arm
type CovariateSummary struct {
	Arm      experiment.Arm `json:"arm"`
	Variable string         `json:"variable"`
	N        int            `json:"n"`
	Mean     float64        `json:"mean"`
	StdDev   float64        `json:"std"`
}

// BalanceReport is the randomization check across arms
type BalanceReport struct {
	Rows []CovariateSummary `json:"rows"`
	// MaxStdDiff is the largest absolute standardized mean difference between
	// any two arms over all covariates.
	MaxStdDiff float64 `json:"max_std_diff"`
}
