package ml

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	apperrors "gouplift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// noisyThreshold draws x uniform in [-3,3] with P(y=1) rising in x
func noisyThreshold(n int, seed int64) (*mat.Dense, []float64) {
	r := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := r.Float64()*6 - 3
		X.Set(i, 0, x)
		if r.Float64() < sigmoid(2*x) {
			y[i] = 1
		}
	}
	return X, y
}

func grid() *mat.Dense {
	return mat.NewDense(3, 1, []float64{-2, 0, 2})
}

func TestLogisticRegression_RecoversDirection(t *testing.T) {
	X, y := noisyThreshold(600, 1)
	model, err := NewLogisticRegression(1.0).Fit(context.Background(), X, y)
	require.NoError(t, err)

	lm := model.(*LogisticModel)
	assert.Greater(t, lm.Coefficients[0], 1.0)
	assert.Less(t, lm.Coefficients[0], 3.0)

	p := model.PredictProbability(grid())
	assert.Less(t, p[0], p[1])
	assert.Less(t, p[1], p[2])
	assert.InDelta(t, 0.5, p[1], 0.1)
}

func TestLogisticRegression_SeparableStaysFinite(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{-3, -2, -1, 1, 2, 3})
	y := []float64{0, 0, 0, 1, 1, 1}
	model, err := NewLogisticRegression(1.0).Fit(context.Background(), X, y)
	require.NoError(t, err)
	p := model.PredictProbability(grid())
	assert.Less(t, p[0], 0.5)
	assert.Greater(t, p[2], 0.5)
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	X, y := noisyThreshold(300, 2)
	a, err := NewLogisticRegression(1.0).Fit(context.Background(), X, y)
	require.NoError(t, err)
	b, err := NewLogisticRegression(1.0).Fit(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, a.PredictProbability(X), b.PredictProbability(X))
}

func TestLogisticRegression_SingleClass(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	_, err := NewLogisticRegression(1.0).Fit(context.Background(), X, []float64{0, 0, 0, 0})
	assert.True(t, errors.Is(err, apperrors.ErrModel))

	_, err = NewLogisticRegression(1.0).Fit(context.Background(), X, []float64{0, 1})
	assert.True(t, errors.Is(err, apperrors.ErrModel))
}

func TestIsotonicCalibrator_PAV(t *testing.T) {
	c := &isotonicCalibrator{}
	c.fit([]float64{0.1, 0.2, 0.3, 0.4}, []float64{1, 0, 0, 1})

	assert.InDelta(t, 1.0/3, c.predict(0.1), 1e-12)
	assert.InDelta(t, 1.0/3, c.predict(0.3), 1e-12)
	assert.InDelta(t, 1.0, c.predict(0.4), 1e-12)
	// interpolated between 0.3 and 0.4
	assert.InDelta(t, 2.0/3, c.predict(0.35), 1e-9)
	// clamped outside the fitted range
	assert.InDelta(t, 1.0/3, c.predict(-5), 1e-12)
	assert.InDelta(t, 1.0, c.predict(5), 1e-12)
}

func TestIsotonicCalibrator_Monotone(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	scores := make([]float64, 200)
	y := make([]float64, 200)
	for i := range scores {
		scores[i] = r.Float64()
		if r.Float64() < scores[i] {
			y[i] = 1
		}
	}
	c := &isotonicCalibrator{}
	c.fit(scores, y)
	prev := -1.0
	for s := 0.0; s <= 1.0; s += 0.01 {
		p := c.predict(s)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestSigmoidCalibrator(t *testing.T) {
	X, y := noisyThreshold(400, 4)
	scores := make([]float64, len(y))
	for i := range y {
		scores[i] = X.At(i, 0)
	}
	c := &sigmoidCalibrator{}
	c.fit(scores, y)
	assert.Less(t, c.predict(-2), c.predict(2))
	assert.InDelta(t, 0.5, c.predict(0), 0.15)
}

func TestCalibratedClassifier(t *testing.T) {
	X, y := noisyThreshold(600, 5)
	for _, method := range []CalibrationMethod{CalibrationIsotonic, CalibrationSigmoid} {
		t.Run(string(method), func(t *testing.T) {
			clf := NewCalibratedClassifier(NewLogisticRegression(1.0), method, 3)
			model, err := clf.Fit(context.Background(), X, y)
			require.NoError(t, err)

			for _, p := range model.PredictProbability(X) {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
			p := model.PredictProbability(grid())
			assert.Less(t, p[0], p[2])
		})
	}
}

func TestCalibratedClassifier_Name(t *testing.T) {
	assert.Equal(t, "logistic_l2+isotonic_cv3", NewDefaultClassifier().Name())
}

func TestCalibratedClassifier_TooFewPerClass(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	_, err := NewDefaultClassifier().Fit(context.Background(), X, []float64{0, 0, 0, 0, 1, 1})
	assert.True(t, errors.Is(err, apperrors.ErrModel))

	_, err = NewDefaultClassifier().Fit(context.Background(), X, []float64{1, 1, 1, 1, 1, 1})
	assert.True(t, errors.Is(err, apperrors.ErrModel))
}

func TestStratifiedFolds(t *testing.T) {
	folds := stratifiedFolds([]float64{1, 0, 1, 0, 1, 0, 0}, 3)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2, 0}, folds)
}

func TestParseCalibrationMethod(t *testing.T) {
	m, err := ParseCalibrationMethod("Platt")
	require.NoError(t, err)
	assert.Equal(t, CalibrationSigmoid, m)
	m, err = ParseCalibrationMethod("")
	require.NoError(t, err)
	assert.Equal(t, CalibrationIsotonic, m)
	_, err = ParseCalibrationMethod("beta")
	assert.Error(t, err)
}
