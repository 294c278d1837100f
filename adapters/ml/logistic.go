package ml

import (
	"context"
	"math"

	apperrors "gouplift/internal/errors"
	"gouplift/ports"

	"gonum.org/v1/gonum/mat"
)

// LogisticRegression fits an L2-regularised logistic model by iteratively
// reweighted least squares. The intercept is not penalised.
type LogisticRegression struct {
	L2        float64
	MaxIter   int
	Tolerance float64
}

// NewLogisticRegression creates a fitter with the given penalty
func NewLogisticRegression(l2 float64) *LogisticRegression {
	return &LogisticRegression{L2: l2, MaxIter: 100, Tolerance: 1e-8}
}

// Name identifies the algorithm in reports
func (lr *LogisticRegression) Name() string { return "logistic_l2" }

// LogisticModel is a fitted logistic regression
type LogisticModel struct {
	Intercept    float64
	Coefficients []float64
	Iterations   int
}

// Fit runs Newton steps until the largest coefficient change drops below
// Tolerance or MaxIter is reached
func (lr *LogisticRegression) Fit(ctx context.Context, X mat.Matrix, y []float64) (ports.Model, error) {
	n, d := X.Dims()
	if n != len(y) {
		return nil, apperrors.ModelError("logistic fit: %d rows but %d labels", n, len(y))
	}
	if n == 0 {
		return nil, apperrors.ModelError("logistic fit: no training rows")
	}
	if err := requireBothClasses(y); err != nil {
		return nil, err
	}

	p := d + 1
	design := withIntercept(X)
	beta := mat.NewVecDense(p, nil)
	eta := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	weighted := mat.NewDense(n, p, nil)
	grad := mat.NewVecDense(p, nil)
	var hess mat.Dense
	var step mat.VecDense

	iter := 0
	for ; iter < lr.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eta.MulVec(design, beta)
		for i := 0; i < n; i++ {
			prob := sigmoid(eta.AtVec(i))
			w := math.Max(prob*(1-prob), 1e-10)
			resid.SetVec(i, y[i]-prob)
			for j := 0; j < p; j++ {
				weighted.Set(i, j, w*design.At(i, j))
			}
		}

		grad.MulVec(design.T(), resid)
		hess.Mul(design.T(), weighted)
		sym := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				sym.SetSym(i, j, (hess.At(i, j)+hess.At(j, i))/2)
			}
		}
		sym.SetSym(0, 0, sym.At(0, 0)+1e-8)
		for j := 1; j < p; j++ {
			grad.SetVec(j, grad.AtVec(j)-lr.L2*beta.AtVec(j))
			sym.SetSym(j, j, sym.At(j, j)+lr.L2)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(sym); !ok {
			return nil, apperrors.ModelError("logistic fit: Hessian not positive definite at iteration %d", iter)
		}
		if err := chol.SolveVecTo(&step, grad); err != nil {
			return nil, apperrors.ModelError("logistic fit: Newton step failed: %v", err)
		}

		maxChange := 0.0
		for j := 0; j < p; j++ {
			delta := step.AtVec(j)
			beta.SetVec(j, beta.AtVec(j)+delta)
			maxChange = math.Max(maxChange, math.Abs(delta))
		}
		if math.IsNaN(maxChange) {
			return nil, apperrors.ModelError("logistic fit diverged")
		}
		if maxChange < lr.Tolerance {
			iter++
			break
		}
	}

	model := &LogisticModel{
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, d),
		Iterations:   iter,
	}
	for j := 0; j < d; j++ {
		model.Coefficients[j] = beta.AtVec(j + 1)
	}
	return model, nil
}

// PredictProbability returns sigmoid(intercept + x·coef) per row
func (m *LogisticModel) PredictProbability(X mat.Matrix) []float64 {
	n, d := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		z := m.Intercept
		for j := 0; j < d && j < len(m.Coefficients); j++ {
			z += m.Coefficients[j] * X.At(i, j)
		}
		out[i] = sigmoid(z)
	}
	return out
}

func withIntercept(X mat.Matrix) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			out.Set(i, j+1, X.At(i, j))
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func requireBothClasses(y []float64) error {
	pos, neg := countClasses(y)
	if pos == 0 || neg == 0 {
		return apperrors.ModelError("training labels are single-class (%d positive, %d negative)", pos, neg)
	}
	return nil
}

func countClasses(y []float64) (pos, neg int) {
	for _, v := range y {
		if v > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}
