package uplift

import (
	"context"

	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	"gouplift/internal"
	apperrors "gouplift/internal/errors"
	"gouplift/internal/features"
	"gouplift/ports"

	"golang.org/x/sync/errgroup"
)

// TwoModelUplift is a T-learner: one probability model per arm, with uplift
// taken as the difference of the two counterfactual predictions
type TwoModelUplift struct {
	classifier ports.Classifier
	schema     features.Schema
	outcome    experiment.Outcome
	logger     *internal.Logger
}

// NewTwoModelUplift creates a T-learner over the given classifier and covariates
func NewTwoModelUplift(classifier ports.Classifier, schema features.Schema, outcome experiment.Outcome) *TwoModelUplift {
	return &TwoModelUplift{
		classifier: classifier,
		schema:     schema,
		outcome:    outcome,
		logger:     internal.NewDefaultLogger().With("TwoModelUplift"),
	}
}

// SetLogger replaces the default logger
func (t *TwoModelUplift) SetLogger(logger *internal.Logger) {
	t.logger = logger.With("TwoModelUplift")
}

// FittedUplift holds the frozen vocabulary and both arm models for one pair
type FittedUplift struct {
	Pair       experiment.ArmPair
	Outcome    experiment.Outcome
	Vocabulary *features.Vocabulary
	Treatment  ports.Model
	Control    ports.Model
	Classifier string
	TrainSize  int
}

// Train fits the encoder on the pair's training rows, then the treatment and
// control models concurrently
func (t *TwoModelUplift) Train(ctx context.Context, train []experiment.Record, pair experiment.ArmPair) (*FittedUplift, error) {
	rows := experiment.FilterPair(train, pair)
	byArm := experiment.ByArm(rows)
	if len(byArm[pair.Treatment]) == 0 || len(byArm[pair.Control]) == 0 {
		return nil, apperrors.DataError("uplift %s: training split lacks an arm (treatment=%d, control=%d)",
			pair, len(byArm[pair.Treatment]), len(byArm[pair.Control]))
	}

	vocab, err := features.NewEncoder(t.schema).Fit(rows)
	if err != nil {
		return nil, apperrors.Wrapf(err, "uplift %s: fit encoder", pair)
	}

	fitted := &FittedUplift{
		Pair:       pair,
		Outcome:    t.outcome,
		Vocabulary: vocab,
		Classifier: t.classifier.Name(),
		TrainSize:  len(rows),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := t.fitArm(gctx, vocab, byArm[pair.Treatment], pair.Treatment)
		fitted.Treatment = m
		return err
	})
	g.Go(func() error {
		m, err := t.fitArm(gctx, vocab, byArm[pair.Control], pair.Control)
		fitted.Control = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.logger.Debug("fitted %s on %d training rows (%d columns)", pair, len(rows), len(vocab.Columns))
	return fitted, nil
}

func (t *TwoModelUplift) fitArm(ctx context.Context, vocab *features.Vocabulary, rows []experiment.Record, arm experiment.Arm) (ports.Model, error) {
	y := labels(rows, t.outcome)
	pos := 0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, apperrors.ModelError("arm %s: training %s labels are single-class (%d of %d positive)", arm, t.outcome, pos, len(y))
	}

	dm, err := features.Transform(vocab, rows)
	if err != nil {
		return nil, err
	}
	model, err := t.classifier.Fit(ctx, dm.X, y)
	if err != nil {
		return nil, apperrors.Wrapf(err, "arm %s: fit %s", arm, t.classifier.Name())
	}
	return model, nil
}

// Score predicts both counterfactual probabilities for every holdout record
// of the pair, whatever arm it was actually in. Output is in ID order.
func (f *FittedUplift) Score(holdout []experiment.Record) ([]domain.ScoredRecord, error) {
	rows := experiment.SortByID(experiment.FilterPair(holdout, f.Pair))
	if len(rows) == 0 {
		return nil, apperrors.DataError("uplift %s: no holdout records for the pair", f.Pair)
	}

	dm, err := features.Transform(f.Vocabulary, rows)
	if err != nil {
		return nil, apperrors.Wrapf(err, "uplift %s: encode holdout", f.Pair)
	}
	pT := f.Treatment.PredictProbability(dm.X)
	pC := f.Control.PredictProbability(dm.X)

	scored := make([]domain.ScoredRecord, len(rows))
	for i, r := range rows {
		scored[i] = domain.ScoredRecord{
			ID:              r.ID,
			Arm:             r.Arm,
			Outcome:         r.Outcome(f.Outcome),
			PredictedUplift: pT[i] - pC[i],
			PTreatment:      pT[i],
			PControl:        pC[i],
		}
	}
	return scored, nil
}

func labels(rows []experiment.Record, outcome experiment.Outcome) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		if r.Outcome(outcome) {
			y[i] = 1
		}
	}
	return y
}
