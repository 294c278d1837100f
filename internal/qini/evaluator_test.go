package qini

import (
	"errors"
	"math/rand"
	"testing"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pair = experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.NoEmail}

func scoredRecord(id int, arm experiment.Arm, outcome bool, uplift float64) domain.ScoredRecord {
	return domain.ScoredRecord{ID: core.RecordID(id), Arm: arm, Outcome: outcome, PredictedUplift: uplift}
}

// perfectPopulation puts every treated converter at the top of the ranking
func perfectPopulation() []domain.ScoredRecord {
	return []domain.ScoredRecord{
		scoredRecord(0, experiment.MensEmail, true, 0.9),
		scoredRecord(1, experiment.MensEmail, true, 0.8),
		scoredRecord(2, experiment.NoEmail, false, 0.5),
		scoredRecord(3, experiment.MensEmail, false, 0.3),
		scoredRecord(4, experiment.NoEmail, true, 0.1),
		scoredRecord(5, experiment.NoEmail, false, 0.0),
	}
}

func TestEvaluate_HandComputedCurve(t *testing.T) {
	res, err := Evaluate(perfectPopulation(), pair)
	require.NoError(t, err)

	// nT = nC = 3, N = 6, so each treated conversion adds 2 and each control one subtracts 2
	want := []float64{0, 2, 4, 4, 4, 2, 2}
	require.Equal(t, len(want), res.Curve.Len())
	for i, g := range want {
		assert.InDelta(t, float64(i)/6, res.Curve.Points[i].Fraction, 1e-12)
		assert.InDelta(t, g, res.Curve.Points[i].Gain, 1e-12, "point %d", i)
	}

	// trapezoid: (1/6) * (0+2+4+4+4+2+2 - (0+2)/2) = 17/6
	assert.InDelta(t, 17.0/6, res.AreaModel, 1e-12)
	assert.InDelta(t, 1.0, res.AreaRandom, 1e-12)
	assert.InDelta(t, 17.0/6-1, res.AUC, 1e-12)
	assert.InDelta(t, 17.0/6-1, res.Coefficient, 1e-12)
	assert.Equal(t, 3, res.NTreatment)
	assert.Equal(t, 3, res.NControl)
}

func TestEvaluate_StartsAtOriginAndIncreasesInFraction(t *testing.T) {
	res, err := Evaluate(randomPopulation(500, 1), pair)
	require.NoError(t, err)
	assert.Equal(t, domain.QiniPoint{}, res.Curve.Points[0])
	assert.Equal(t, 1.0, res.Curve.Points[res.Curve.Len()-1].Fraction)
	for i := 1; i < res.Curve.Len(); i++ {
		assert.Greater(t, res.Curve.Points[i].Fraction, res.Curve.Points[i-1].Fraction)
	}
}

func TestEvaluate_FinalGainIndependentOfRanking(t *testing.T) {
	population := randomPopulation(400, 2)
	base, err := Evaluate(population, pair)
	require.NoError(t, err)

	reversed := make([]domain.ScoredRecord, len(population))
	for i, s := range population {
		s.PredictedUplift = -s.PredictedUplift
		reversed[i] = s
	}
	other, err := Evaluate(reversed, pair)
	require.NoError(t, err)
	assert.InDelta(t, base.Curve.Final(), other.Curve.Final(), 1e-9)
}

func TestEvaluate_RandomScoresNearZeroAUC(t *testing.T) {
	population := randomPopulation(20000, 3)
	res, err := Evaluate(population, pair)
	require.NoError(t, err)
	// AUC scale is bounded by N; random ranking stays a small fraction of it
	assert.Less(t, abs(res.AUC)/float64(len(population)), 0.01)
}

func TestEvaluate_Idempotent(t *testing.T) {
	population := randomPopulation(300, 4)
	a, err := Evaluate(population, pair)
	require.NoError(t, err)

	shuffled := make([]domain.ScoredRecord, len(population))
	copy(shuffled, population)
	rand.New(rand.NewSource(5)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	b, err := Evaluate(shuffled, pair)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEvaluate_TiesBrokenByID(t *testing.T) {
	population := []domain.ScoredRecord{
		scoredRecord(3, experiment.NoEmail, true, 0.5),
		scoredRecord(1, experiment.MensEmail, true, 0.5),
	}
	res, err := Evaluate(population, pair)
	require.NoError(t, err)
	// ID 1 (treated converter) ranks first
	assert.InDelta(t, 2.0, res.Curve.Points[1].Gain, 1e-12)
}

func TestEvaluate_ZeroFinalGainHasZeroCoefficient(t *testing.T) {
	population := []domain.ScoredRecord{
		scoredRecord(0, experiment.MensEmail, true, 0.9),
		scoredRecord(1, experiment.NoEmail, true, 0.1),
	}
	res, err := Evaluate(population, pair)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Curve.Final())
	assert.Equal(t, 0.0, res.Coefficient)
	assert.Greater(t, res.AUC, 0.0)
}

func TestEvaluate_Errors(t *testing.T) {
	onlyTreated := []domain.ScoredRecord{scoredRecord(0, experiment.MensEmail, true, 0.1)}
	_, err := Evaluate(onlyTreated, pair)
	assert.True(t, errors.Is(err, apperrors.ErrData))

	foreign := append(perfectPopulation(), scoredRecord(9, experiment.WomensEmail, true, 0.2))
	_, err = Evaluate(foreign, pair)
	assert.True(t, errors.Is(err, apperrors.ErrData))
}

func randomPopulation(n int, seed int64) []domain.ScoredRecord {
	r := rand.New(rand.NewSource(seed))
	out := make([]domain.ScoredRecord, n)
	for i := range out {
		arm := experiment.NoEmail
		rate := 0.1
		if r.Intn(2) == 0 {
			arm = experiment.MensEmail
			rate = 0.15
		}
		out[i] = scoredRecord(i, arm, r.Float64() < rate, r.Float64())
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
