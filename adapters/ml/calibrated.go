package ml

import (
	"context"
	"fmt"

	apperrors "gouplift/internal/errors"
	"gouplift/ports"

	"gonum.org/v1/gonum/mat"
)

// DefaultFolds is the number of internal calibration folds
const DefaultFolds = 3

// CalibratedClassifier wraps a base classifier with cross-validated
// probability calibration. Each fold trains the base model on the other
// folds and fits a calibrator on its own held-out scores; the final
// probability is the mean over folds.
type CalibratedClassifier struct {
	base   ports.Classifier
	method CalibrationMethod
	folds  int
}

// NewCalibratedClassifier creates a calibrated wrapper; folds < 2 uses DefaultFolds
func NewCalibratedClassifier(base ports.Classifier, method CalibrationMethod, folds int) *CalibratedClassifier {
	if folds < 2 {
		folds = DefaultFolds
	}
	if method == "" {
		method = CalibrationIsotonic
	}
	return &CalibratedClassifier{base: base, method: method, folds: folds}
}

// NewDefaultClassifier is L2 logistic regression with 3-fold isotonic calibration
func NewDefaultClassifier() *CalibratedClassifier {
	return NewCalibratedClassifier(NewLogisticRegression(1.0), CalibrationIsotonic, DefaultFolds)
}

// Name identifies the algorithm in reports
func (c *CalibratedClassifier) Name() string {
	return fmt.Sprintf("%s+%s_cv%d", c.base.Name(), c.method, c.folds)
}

type calibratedFold struct {
	model ports.Model
	cal   calibrator
}

// CalibratedModel averages the calibrated predictions of the fold models
type CalibratedModel struct {
	folds []calibratedFold
}

// Fit trains one base model and calibrator per fold
func (c *CalibratedClassifier) Fit(ctx context.Context, X mat.Matrix, y []float64) (ports.Model, error) {
	n, _ := X.Dims()
	if n != len(y) {
		return nil, apperrors.ModelError("calibrated fit: %d rows but %d labels", n, len(y))
	}
	pos, neg := countClasses(y)
	if pos == 0 || neg == 0 {
		return nil, apperrors.ModelError("training labels are single-class (%d positive, %d negative)", pos, neg)
	}
	if pos < c.folds || neg < c.folds {
		return nil, apperrors.ModelError("need at least %d examples of each class for %d-fold calibration (%d positive, %d negative)",
			c.folds, c.folds, pos, neg)
	}

	assignment := stratifiedFolds(y, c.folds)
	model := &CalibratedModel{folds: make([]calibratedFold, 0, c.folds)}
	for k := 0; k < c.folds; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var trainIdx, calIdx []int
		for i, f := range assignment {
			if f == k {
				calIdx = append(calIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}

		base, err := c.base.Fit(ctx, selectRows(X, trainIdx), selectLabels(y, trainIdx))
		if err != nil {
			return nil, apperrors.Wrapf(err, "calibration fold %d", k)
		}
		cal := newCalibrator(c.method)
		cal.fit(base.PredictProbability(selectRows(X, calIdx)), selectLabels(y, calIdx))
		model.folds = append(model.folds, calibratedFold{model: base, cal: cal})
	}
	return model, nil
}

// PredictProbability returns the fold-averaged calibrated probability, in [0,1]
func (m *CalibratedModel) PredictProbability(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	if len(m.folds) == 0 {
		return out
	}
	for _, f := range m.folds {
		raw := f.model.PredictProbability(X)
		for i, s := range raw {
			out[i] += f.cal.predict(s)
		}
	}
	for i := range out {
		p := out[i] / float64(len(m.folds))
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		out[i] = p
	}
	return out
}

// stratifiedFolds deals positives and negatives round-robin into k folds,
// in row order, so every fold receives both classes
func stratifiedFolds(y []float64, k int) []int {
	assignment := make([]int, len(y))
	var nextPos, nextNeg int
	for i, v := range y {
		if v > 0.5 {
			assignment[i] = nextPos % k
			nextPos++
		} else {
			assignment[i] = nextNeg % k
			nextNeg++
		}
	}
	return assignment
}

func selectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for r, i := range idx {
		for j := 0; j < d; j++ {
			out.Set(r, j, X.At(i, j))
		}
	}
	return out
}

func selectLabels(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for r, i := range idx {
		out[r] = y[i]
	}
	return out
}
