package significance

import (
	"context"
	"runtime"

	"gouplift/domain/stats"
	apperrors "gouplift/internal/errors"
	"gouplift/ports"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultResamples matches the bootstrap size used for the spend tests
	DefaultResamples = 5000
	// DefaultChunkSize is the number of resamples drawn from one sub-stream.
	// It is part of the reproducibility contract: changing it changes draws.
	DefaultChunkSize = 250

	bootstrapStream = "bootstrap/mean-diff"
)

// BootstrapOptions configures the resampling interval
type BootstrapOptions struct {
	Resamples  int
	Seed       int64
	Confidence float64
	// Workers bounds parallel chunks; 0 means GOMAXPROCS. Output does not
	// depend on this value.
	Workers   int
	ChunkSize int
}

// DefaultBootstrapOptions returns B=5000, seed 42, 95% confidence
func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		Resamples:  DefaultResamples,
		Seed:       42,
		Confidence: 0.95,
		ChunkSize:  DefaultChunkSize,
	}
}

func (o BootstrapOptions) normalized() (BootstrapOptions, error) {
	if o.Resamples <= 0 {
		return o, apperrors.ConfigError("bootstrap resamples must be > 0, got %d", o.Resamples)
	}
	if o.Confidence == 0 {
		o.Confidence = 0.95
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		return o, apperrors.ConfigError("bootstrap confidence must be in (0,1), got %v", o.Confidence)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o, nil
}

// BootstrapMeanDiff resamples each group with replacement opts.Resamples
// times and returns the distribution of mean(x*) - mean(y*) together with
// its percentile interval.
//
// Resamples are drawn in fixed-size chunks; chunk i always uses sub-stream i
// of the master seed and writes to its own slice range, so the result is
// bit-identical for any worker count.
func BootstrapMeanDiff(ctx context.Context, rng ports.RNGPort, x, y []float64, opts BootstrapOptions) (stats.Interval, []float64, error) {
	opts, err := opts.normalized()
	if err != nil {
		return stats.Interval{}, nil, err
	}
	if len(x) == 0 || len(y) == 0 {
		return stats.Interval{}, nil, apperrors.DataError("bootstrap needs both groups non-empty (n_x=%d, n_y=%d)", len(x), len(y))
	}

	diffs := make([]float64, opts.Resamples)
	chunks := (opts.Resamples + opts.ChunkSize - 1) / opts.ChunkSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for c := 0; c < chunks; c++ {
		start := c * opts.ChunkSize
		end := start + opts.ChunkSize
		if end > opts.Resamples {
			end = opts.Resamples
		}
		chunk := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := rng.SubStream(bootstrapStream, opts.Seed, chunk)
			for i := start; i < end; i++ {
				diffs[i] = resampleMean(r.Intn, x) - resampleMean(r.Intn, y)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats.Interval{}, nil, err
	}

	return PercentileInterval(diffs, opts.Confidence), diffs, nil
}

func resampleMean(intn func(int) int, data []float64) float64 {
	n := len(data)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += data[intn(n)]
	}
	return sum / float64(n)
}
