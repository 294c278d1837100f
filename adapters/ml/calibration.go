package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CalibrationMethod selects how held-out scores are mapped to probabilities
type CalibrationMethod string

const (
	CalibrationIsotonic CalibrationMethod = "isotonic"
	CalibrationSigmoid  CalibrationMethod = "sigmoid"
)

// ParseCalibrationMethod accepts "isotonic" or "sigmoid" (also "platt")
func ParseCalibrationMethod(s string) (CalibrationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "isotonic":
		return CalibrationIsotonic, nil
	case "sigmoid", "platt":
		return CalibrationSigmoid, nil
	}
	return "", fmt.Errorf("unknown calibration method %q", s)
}

// calibrator maps a raw score to a probability
type calibrator interface {
	fit(scores, y []float64)
	predict(score float64) float64
}

func newCalibrator(m CalibrationMethod) calibrator {
	if m == CalibrationSigmoid {
		return &sigmoidCalibrator{}
	}
	return &isotonicCalibrator{}
}

// isotonicCalibrator is a non-decreasing step fit by pool-adjacent-violators,
// linearly interpolated between distinct scores and clamped outside them
type isotonicCalibrator struct {
	xs []float64
	ys []float64
}

func (c *isotonicCalibrator) fit(scores, y []float64) {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	// collapse equal scores into one weighted point
	type block struct {
		x, sum, weight float64
	}
	var points []block
	for _, i := range idx {
		if n := len(points); n > 0 && points[n-1].x == scores[i] {
			points[n-1].sum += y[i]
			points[n-1].weight++
			continue
		}
		points = append(points, block{x: scores[i], sum: y[i], weight: 1})
	}

	// PAV over the distinct scores; each pool remembers its first point
	type pool struct {
		start       int
		sum, weight float64
	}
	var pools []pool
	for i, pt := range points {
		pools = append(pools, pool{start: i, sum: pt.sum, weight: pt.weight})
		for len(pools) > 1 {
			last, prev := pools[len(pools)-1], pools[len(pools)-2]
			if prev.sum/prev.weight <= last.sum/last.weight {
				break
			}
			pools = pools[:len(pools)-2]
			pools = append(pools, pool{start: prev.start, sum: prev.sum + last.sum, weight: prev.weight + last.weight})
		}
	}

	c.xs = make([]float64, len(points))
	c.ys = make([]float64, len(points))
	for k, pl := range pools {
		end := len(points)
		if k+1 < len(pools) {
			end = pools[k+1].start
		}
		for i := pl.start; i < end; i++ {
			c.xs[i] = points[i].x
			c.ys[i] = pl.sum / pl.weight
		}
	}
}

func (c *isotonicCalibrator) predict(score float64) float64 {
	n := len(c.xs)
	switch {
	case n == 0:
		return 0.5
	case score <= c.xs[0]:
		return c.ys[0]
	case score >= c.xs[n-1]:
		return c.ys[n-1]
	}
	hi := sort.SearchFloat64s(c.xs, score)
	if c.xs[hi] == score {
		return c.ys[hi]
	}
	lo := hi - 1
	frac := (score - c.xs[lo]) / (c.xs[hi] - c.xs[lo])
	return c.ys[lo] + frac*(c.ys[hi]-c.ys[lo])
}

// sigmoidCalibrator is Platt scaling: P = 1/(1+exp(a·s+b)) fit by Newton's
// method on smoothed targets
type sigmoidCalibrator struct {
	a, b float64
}

func (c *sigmoidCalibrator) fit(scores, y []float64) {
	pos, neg := countClasses(y)
	hi := (float64(pos) + 1) / (float64(pos) + 2)
	lo := 1 / (float64(neg) + 2)
	targets := make([]float64, len(y))
	for i, v := range y {
		if v > 0.5 {
			targets[i] = hi
		} else {
			targets[i] = lo
		}
	}

	a, b := 0.0, math.Log((float64(neg)+1)/(float64(pos)+1))
	for iter := 0; iter < 100; iter++ {
		var g1, g2, h11, h12, h22 float64
		for i, s := range scores {
			p := 1 / (1 + math.Exp(a*s+b))
			d := targets[i] - p
			w := math.Max(p*(1-p), 1e-12)
			g1 += d * s
			g2 += d
			h11 += w * s * s
			h12 += w * s
			h22 += w
		}
		h11 += 1e-12
		h22 += 1e-12
		det := h11*h22 - h12*h12
		if det == 0 || math.IsNaN(det) {
			break
		}
		da := -(h22*g1 - h12*g2) / det
		db := -(h11*g2 - h12*g1) / det
		a += da
		b += db
		if math.Abs(da) < 1e-10 && math.Abs(db) < 1e-10 {
			break
		}
	}
	c.a, c.b = a, b
}

func (c *sigmoidCalibrator) predict(score float64) float64 {
	return sigmoid(-(c.a*score + c.b))
}
