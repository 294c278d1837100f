package app

import (
	"context"
	"fmt"
	"time"

	"gouplift/domain/experiment"
	"gouplift/domain/run"
	"gouplift/domain/uplift"
	"gouplift/internal"
	"gouplift/internal/config"
	apperrors "gouplift/internal/errors"
	"gouplift/internal/significance"
	"gouplift/internal/split"
	"gouplift/ports"
)

// RunOptions is the explicit parameter set of one run
type RunOptions struct {
	DataSource      string
	Outcome         experiment.Outcome
	ConversionPairs []experiment.ArmPair
	UpliftPairs     []experiment.ArmPair
	Split           split.Config
	Bootstrap       significance.BootstrapOptions
	Ks              []float64
	Economics       uplift.EconomicParameters

	SkipSignificance bool
	SkipUplift       bool
}

// OptionsFromConfig resolves the configuration into run options
func OptionsFromConfig(cfg *config.Config) (RunOptions, error) {
	conversionPairs, err := cfg.ConversionArmPairs()
	if err != nil {
		return RunOptions{}, err
	}
	upliftPairs, err := cfg.UpliftArmPairs()
	if err != nil {
		return RunOptions{}, err
	}
	outcome := cfg.Outcome()
	return RunOptions{
		DataSource:      cfg.Data.Path,
		Outcome:         outcome,
		ConversionPairs: conversionPairs,
		UpliftPairs:     upliftPairs,
		Split: split.Config{
			TrainFraction:     cfg.Experiment.TrainFraction,
			Seed:              cfg.Experiment.Seed,
			StratifyByOutcome: cfg.Experiment.StratifyByOutcome,
			Outcome:           outcome,
		},
		Bootstrap: significance.BootstrapOptions{
			Resamples:  cfg.Bootstrap.Resamples,
			Seed:       cfg.Bootstrap.Seed,
			Confidence: cfg.Bootstrap.Confidence,
			Workers:    cfg.Bootstrap.Workers,
			ChunkSize:  significance.DefaultChunkSize,
		},
		Ks:        cfg.Policy.Ks,
		Economics: cfg.Economics(),
	}, nil
}

// RunService executes full runs and optionally persists them
type RunService struct {
	significance *SignificanceService
	uplift       *UpliftService
	repo         ports.RunRepository
	logger       *internal.Logger
}

// NewRunService creates a run orchestrator. repo may be nil when runs are
// not persisted.
func NewRunService(sig *SignificanceService, up *UpliftService, repo ports.RunRepository) *RunService {
	return &RunService{
		significance: sig,
		uplift:       up,
		repo:         repo,
		logger:       internal.NewDefaultLogger().With("RunService"),
	}
}

// SetLogger replaces the default logger
func (s *RunService) SetLogger(logger *internal.Logger) {
	s.logger = logger.With("RunService")
}

// Load reads the population from a record source
func (s *RunService) Load(ctx context.Context, source ports.RecordSource) ([]experiment.Record, error) {
	start := time.Now()
	records, err := source.ReadRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.DataError("record source is empty")
	}
	s.logger.Info("loaded %d records in %s", len(records), time.Since(start).Round(time.Millisecond))
	return records, nil
}

// Execute runs the selected stages over records and assembles the report.
// Per-pair and per-k failures are recorded in the report; the returned
// error is reserved for invalid options and cancellation.
func (s *RunService) Execute(ctx context.Context, records []experiment.Record, opts RunOptions) (*run.Report, error) {
	if err := opts.Economics.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	manifest := run.NewManifest(run.Manifest{
		DataSource:         opts.DataSource,
		RecordCount:        len(records),
		Outcome:            opts.Outcome,
		Seed:               opts.Split.Seed,
		TrainFraction:      opts.Split.TrainFraction,
		BootstrapResamples: opts.Bootstrap.Resamples,
		BootstrapSeed:      opts.Bootstrap.Seed,
		Ks:                 opts.Ks,
		Economics:          opts.Economics,
		Classifier:         s.uplift.ClassifierName(),
		ConversionPairs:    opts.ConversionPairs,
		UpliftPairs:        opts.UpliftPairs,
	})
	s.logger.Info("run %s started (fingerprint %s)", manifest.RunID, manifest.Fingerprint.Short())

	report := &run.Report{
		Manifest:   *manifest,
		Conversion: []run.ConversionOutcome{},
		Spend:      []run.SpendOutcome{},
		Uplift:     []run.PairEvaluation{},
	}

	if !opts.SkipSignificance {
		sig, err := s.significance.Run(ctx, SignificanceRequest{
			Records:         records,
			Outcome:         opts.Outcome,
			ConversionPairs: opts.ConversionPairs,
			SpendPairs:      opts.UpliftPairs,
			Bootstrap:       opts.Bootstrap,
		})
		if err != nil {
			return nil, err
		}
		report.Balance = sig.Balance
		report.Conversion = sig.Conversion
		report.Spend = sig.Spend
	}

	if !opts.SkipUplift {
		evaluations, err := s.uplift.Run(ctx, UpliftRequest{
			Records:   records,
			Outcome:   opts.Outcome,
			Pairs:     opts.UpliftPairs,
			Split:     opts.Split,
			Ks:        opts.Ks,
			Economics: opts.Economics,
		})
		if err != nil {
			return nil, err
		}
		report.Uplift = evaluations
	}

	s.logger.Info("run %s finished in %s with %d failures",
		manifest.RunID, time.Since(start).Round(time.Millisecond), report.FailureCount())
	return report, nil
}

// Persist stores the report in the run repository
func (s *RunService) Persist(ctx context.Context, report *run.Report) error {
	if s.repo == nil {
		return apperrors.ConfigError("no run repository configured")
	}
	if err := s.repo.Save(ctx, report); err != nil {
		return fmt.Errorf("persist run %s: %w", report.Manifest.RunID, err)
	}
	s.logger.Info("run %s stored", report.Manifest.RunID)
	return nil
}
