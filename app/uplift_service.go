package app

import (
	"context"
	"fmt"

	"gouplift/domain/experiment"
	"gouplift/domain/run"
	"gouplift/domain/uplift"
	"gouplift/internal"
	"gouplift/internal/features"
	"gouplift/internal/policy"
	"gouplift/internal/qini"
	"gouplift/internal/split"
	upliftmodel "gouplift/internal/uplift"
	"gouplift/ports"

	"golang.org/x/sync/errgroup"
)

// UpliftService runs the modelling pipeline per treatment/control pair:
// split, T-learner fit, holdout scoring, Qini evaluation and ROI simulation
type UpliftService struct {
	rngPort    ports.RNGPort
	classifier ports.Classifier
	schema     features.Schema
	logger     *internal.Logger
}

// UpliftRequest defines one uplift evaluation batch
type UpliftRequest struct {
	Records   []experiment.Record
	Outcome   experiment.Outcome
	Pairs     []experiment.ArmPair
	Split     split.Config
	Ks        []float64
	Economics uplift.EconomicParameters
}

// NewUpliftService creates an uplift service over the given classifier
func NewUpliftService(rngPort ports.RNGPort, classifier ports.Classifier, schema features.Schema) *UpliftService {
	return &UpliftService{
		rngPort:    rngPort,
		classifier: classifier,
		schema:     schema,
		logger:     internal.NewDefaultLogger().With("UpliftService"),
	}
}

// SetLogger replaces the default logger
func (s *UpliftService) SetLogger(logger *internal.Logger) {
	s.logger = logger.With("UpliftService")
}

// ClassifierName identifies the per-arm model in manifests
func (s *UpliftService) ClassifierName() string {
	return s.classifier.Name()
}

// Run splits the population once, then evaluates every pair concurrently.
// Evaluations come back in request order; a failing pair carries its
// failure and does not affect the others. Invalid economics abort the batch.
func (s *UpliftService) Run(ctx context.Context, req UpliftRequest) ([]run.PairEvaluation, error) {
	simulator, err := policy.NewSimulator(req.Economics)
	if err != nil {
		return nil, err
	}

	outcome := req.Outcome
	if outcome == "" {
		outcome = experiment.OutcomeConversion
	}
	splitCfg := req.Split
	splitCfg.Outcome = outcome

	evaluations := make([]run.PairEvaluation, len(req.Pairs))
	for i, pair := range req.Pairs {
		evaluations[i] = run.PairEvaluation{Pair: pair, Classifier: s.classifier.Name()}
	}

	parts, err := split.NewPartitioner(s.rngPort).Split(req.Records, splitCfg)
	if err != nil {
		s.logger.Error("split failed: %v", err)
		for i := range evaluations {
			evaluations[i].Failure = run.NewFailure(err)
		}
		return evaluations, nil
	}
	s.logger.Info("split %d records: train=%d holdout=%d (%s)",
		parts.Stats.Total, parts.Stats.TrainSize, parts.Stats.HoldoutSize, parts.Stats.PartitionMode)

	learner := upliftmodel.NewTwoModelUplift(s.classifier, s.schema, outcome)
	learner.SetLogger(s.logger)

	var g errgroup.Group
	for i := range req.Pairs {
		i := i
		g.Go(func() error {
			s.evaluatePair(ctx, learner, simulator, parts, req.Ks, &evaluations[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("uplift run cancelled: %w", err)
	}
	return evaluations, nil
}

func (s *UpliftService) evaluatePair(ctx context.Context, learner *upliftmodel.TwoModelUplift, simulator *policy.Simulator, parts *split.Result, ks []float64, eval *run.PairEvaluation) {
	pair := eval.Pair
	fitted, err := learner.Train(ctx, parts.Train, pair)
	if err != nil {
		s.logger.Warn("uplift %s: training failed: %v", pair, err)
		eval.Failure = run.NewFailure(err)
		return
	}
	eval.TrainSize = fitted.TrainSize

	scored, err := fitted.Score(parts.Holdout)
	if err != nil {
		eval.Failure = run.NewFailure(err)
		return
	}
	eval.Holdout = len(scored)

	qiniResult, err := qini.Evaluate(scored, pair)
	if err != nil {
		eval.Failure = run.NewFailure(err)
		return
	}
	eval.Qini = qiniResult

	valid := make([]float64, 0, len(ks))
	for _, k := range ks {
		if err := policy.ValidateK(k); err != nil {
			eval.KFailures = append(eval.KFailures, run.KFailure{K: k, Message: err.Error()})
			continue
		}
		valid = append(valid, k)
	}
	rows, err := simulator.Simulate(scored, pair, valid)
	if err != nil {
		eval.Failure = run.NewFailure(err)
	}
	eval.ROI = rows

	s.logger.Info("uplift %s: qini_auc=%.4f coefficient=%.4f holdout=%d",
		pair, qiniResult.AUC, qiniResult.Coefficient, eval.Holdout)
}
