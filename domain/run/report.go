package run

import (
	"gouplift/domain/experiment"
	"gouplift/domain/stats"
	"gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"
)

// Failure records an operation that failed without aborting the run
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewFailure captures err, nil for a nil error
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Code: apperrors.GetCode(err), Message: err.Error()}
}

// ConversionOutcome is one pair's conversion test, or its failure
type ConversionOutcome struct {
	Pair    experiment.ArmPair          `json:"pair"`
	Result  *stats.ConversionTestResult `json:"result,omitempty"`
	Failure *Failure                    `json:"failure,omitempty"`
}

// SpendOutcome is one pair's spend test, or its failure
type SpendOutcome struct {
	Pair    experiment.ArmPair     `json:"pair"`
	Result  *stats.SpendTestResult `json:"result,omitempty"`
	Failure *Failure               `json:"failure,omitempty"`
}

// KFailure records a rejected target fraction
type KFailure struct {
	K       float64 `json:"k"`
	Message string  `json:"message"`
}

// PairEvaluation is the uplift evaluation of one treatment/control pair
type PairEvaluation struct {
	Pair       experiment.ArmPair `json:"pair"`
	TrainSize  int                `json:"train_size"`
	Holdout    int                `json:"holdout_size"`
	Qini       *uplift.QiniResult `json:"qini,omitempty"`
	ROI        []uplift.ROIRow    `json:"roi,omitempty"`
	KFailures  []KFailure         `json:"k_failures,omitempty"`
	Failure    *Failure           `json:"failure,omitempty"`
	Classifier string             `json:"classifier"`
}

// Report is the full output of a run
type Report struct {
	Manifest   Manifest             `json:"manifest"`
	Balance    *stats.BalanceReport `json:"balance,omitempty"`
	Conversion []ConversionOutcome  `json:"conversion"`
	Spend      []SpendOutcome       `json:"spend"`
	Uplift     []PairEvaluation     `json:"uplift"`
}

// FailureCount counts failed operations across the report
func (r *Report) FailureCount() int {
	n := 0
	for _, c := range r.Conversion {
		if c.Failure != nil {
			n++
		}
	}
	for _, s := range r.Spend {
		if s.Failure != nil {
			n++
		}
	}
	for _, u := range r.Uplift {
		if u.Failure != nil {
			n++
		}
		n += len(u.KFailures)
	}
	return n
}
