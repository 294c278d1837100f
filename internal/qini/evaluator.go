package qini

import (
	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"

	"gonum.org/v1/gonum/integrate"
)

// Evaluate ranks scored records by predicted uplift and builds the Qini curve
//
//	gain(i/N) = convT(i)/nT*N - convC(i)/nC*N
//
// where convT(i) and convC(i) count positive outcomes among the top i ranked
// treatment and control records. AUC is the trapezoid area under the curve
// minus the area under the random line from the origin to (1, gain(1)).
func Evaluate(scored []domain.ScoredRecord, pair experiment.ArmPair) (*domain.QiniResult, error) {
	nT, nC := 0, 0
	for _, s := range scored {
		switch s.Arm {
		case pair.Treatment:
			nT++
		case pair.Control:
			nC++
		default:
			return nil, apperrors.DataError("qini %s: record %s belongs to arm %s outside the pair", pair, s.ID, s.Arm)
		}
	}
	if nT == 0 || nC == 0 {
		return nil, apperrors.DataError("qini %s: both arms must be present (treatment=%d, control=%d)", pair, nT, nC)
	}

	ranked := domain.Rank(scored)
	n := len(ranked)
	nf := float64(n)
	fractions := make([]float64, n+1)
	gains := make([]float64, n+1)
	points := make([]domain.QiniPoint, n+1)

	convT, convC := 0, 0
	for i, s := range ranked {
		if s.Outcome {
			if s.Arm == pair.Treatment {
				convT++
			} else {
				convC++
			}
		}
		fractions[i+1] = float64(i+1) / nf
		gains[i+1] = float64(convT)/float64(nT)*nf - float64(convC)/float64(nC)*nf
	}
	for i := range points {
		points[i] = domain.QiniPoint{Fraction: fractions[i], Gain: gains[i]}
	}

	final := gains[n]
	areaModel := integrate.Trapezoidal(fractions, gains)
	areaRandom := final / 2
	auc := areaModel - areaRandom
	coef := 0.0
	if final != 0 {
		coef = auc / areaRandom
	}

	return &domain.QiniResult{
		Curve:       domain.QiniCurve{Pair: pair, Points: points},
		AUC:         auc,
		Coefficient: coef,
		NTreatment:  nT,
		NControl:    nC,
		AreaModel:   areaModel,
		AreaRandom:  areaRandom,
	}, nil
}
