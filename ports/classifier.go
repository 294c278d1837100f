package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Classifier fits binary probability models. Implementations must be
// deterministic: the same X and y produce a model with identical predictions.
type Classifier interface {
	// Name identifies the algorithm in reports
	Name() string

	// Fit trains on rows of X against labels y (0 or 1)
	Fit(ctx context.Context, X mat.Matrix, y []float64) (Model, error)
}

// Model is a fitted classifier
type Model interface {
	// PredictProbability returns P(y=1|x) in [0,1] for every row of X
	PredictProbability(X mat.Matrix) []float64
}
