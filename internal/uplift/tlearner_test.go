package uplift

import (
	"context"
	"errors"
	"testing"

	"gouplift/adapters/ml"
	"gouplift/domain/core"
	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"
	"gouplift/internal/features"
	"gouplift/internal/qini"
	"gouplift/internal/rng"
	"gouplift/internal/split"
	"gouplift/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mensVsNo = experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.NoEmail}

func trainHoldout(t *testing.T) (*split.Result, map[core.RecordID]experiment.Record) {
	t.Helper()
	records := testkit.NewTestKit().Records()
	res, err := split.NewPartitioner(rng.NewStreams()).Split(records, split.DefaultConfig())
	require.NoError(t, err)
	byID := make(map[core.RecordID]experiment.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	return res, byID
}

func newLearner() *TwoModelUplift {
	return NewTwoModelUplift(ml.NewDefaultClassifier(), features.HillstromSchema(), experiment.OutcomeConversion)
}

func TestTwoModelUplift_ScoresEveryHoldoutRecordOfThePair(t *testing.T) {
	parts, _ := trainHoldout(t)
	fitted, err := newLearner().Train(context.Background(), parts.Train, mensVsNo)
	require.NoError(t, err)
	assert.Equal(t, "logistic_l2+isotonic_cv3", fitted.Classifier)

	scored, err := fitted.Score(parts.Holdout)
	require.NoError(t, err)
	assert.Len(t, scored, len(experiment.FilterPair(parts.Holdout, mensVsNo)))

	for i, s := range scored {
		assert.True(t, mensVsNo.Contains(s.Arm))
		assert.InDelta(t, s.PTreatment-s.PControl, s.PredictedUplift, 1e-15)
		assert.GreaterOrEqual(t, s.PTreatment, 0.0)
		assert.LessOrEqual(t, s.PTreatment, 1.0)
		if i > 0 {
			assert.Less(t, scored[i-1].ID, s.ID)
		}
	}
}

func TestTwoModelUplift_FindsResponsiveSegment(t *testing.T) {
	parts, byID := trainHoldout(t)
	fitted, err := newLearner().Train(context.Background(), parts.Train, mensVsNo)
	require.NoError(t, err)
	scored, err := fitted.Score(parts.Holdout)
	require.NoError(t, err)

	var inSum, outSum float64
	var inN, outN int
	for _, s := range scored {
		r := byID[s.ID]
		mens, _ := r.Numeric(experiment.ColMens)
		recency, _ := r.Numeric(experiment.ColRecency)
		if mens == 1 && recency < float64(testkit.DefaultHillstromConfig().ResponsiveRecency) {
			inSum += s.PredictedUplift
			inN++
		} else {
			outSum += s.PredictedUplift
			outN++
		}
	}
	require.NotZero(t, inN)
	require.NotZero(t, outN)
	assert.Greater(t, inSum/float64(inN), outSum/float64(outN))

	res, err := qini.Evaluate(scored, mensVsNo)
	require.NoError(t, err)
	assert.Greater(t, res.AUC, 0.0)
}

func TestTwoModelUplift_Deterministic(t *testing.T) {
	parts, _ := trainHoldout(t)
	run := func() []domain.ScoredRecord {
		fitted, err := newLearner().Train(context.Background(), parts.Train, mensVsNo)
		require.NoError(t, err)
		scored, err := fitted.Score(parts.Holdout)
		require.NoError(t, err)
		return scored
	}
	assert.Equal(t, run(), run())
}

func TestTwoModelUplift_SingleClassArm(t *testing.T) {
	records := testkit.ConstantRecords(12, map[experiment.Arm]bool{experiment.MensEmail: true})
	_, err := newLearner().Train(context.Background(), records, mensVsNo)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrModel))
}

func TestTwoModelUplift_MissingArm(t *testing.T) {
	records := testkit.ConstantRecords(5, nil)
	onlyMens := experiment.FilterPair(records, experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.MensEmail})
	_, err := newLearner().Train(context.Background(), onlyMens, mensVsNo)
	assert.True(t, errors.Is(err, apperrors.ErrData))
}

func TestFittedUplift_ScoreWithoutPairRecords(t *testing.T) {
	parts, _ := trainHoldout(t)
	fitted, err := newLearner().Train(context.Background(), parts.Train, mensVsNo)
	require.NoError(t, err)

	womens := experiment.FilterPair(parts.Holdout, experiment.ArmPair{Treatment: experiment.WomensEmail, Control: experiment.WomensEmail})
	_, err = fitted.Score(womens)
	assert.True(t, errors.Is(err, apperrors.ErrData))
}
