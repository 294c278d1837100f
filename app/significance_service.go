package app

import (
	"context"
	"fmt"

	"gouplift/domain/experiment"
	"gouplift/domain/run"
	"gouplift/domain/stats"
	"gouplift/internal"
	"gouplift/internal/significance"
	"gouplift/ports"
)

// SignificanceService runs the randomized-experiment tests over the full
// population: balance check, conversion z-tests and spend Welch tests
type SignificanceService struct {
	rngPort ports.RNGPort
	logger  *internal.Logger
}

// SignificanceRequest defines one batch of A/B tests
type SignificanceRequest struct {
	Records           []experiment.Record
	Outcome           experiment.Outcome
	ConversionPairs   []experiment.ArmPair
	SpendPairs        []experiment.ArmPair
	BalanceCovariates []string
	Bootstrap         significance.BootstrapOptions
}

// SignificanceResult holds one outcome per requested pair, in request order
type SignificanceResult struct {
	Balance    *stats.BalanceReport
	Conversion []run.ConversionOutcome
	Spend      []run.SpendOutcome
}

// NewSignificanceService creates a significance service
func NewSignificanceService(rngPort ports.RNGPort) *SignificanceService {
	return &SignificanceService{
		rngPort: rngPort,
		logger:  internal.NewDefaultLogger().With("SignificanceService"),
	}
}

// SetLogger replaces the default logger
func (s *SignificanceService) SetLogger(logger *internal.Logger) {
	s.logger = logger.With("SignificanceService")
}

// Run executes every test. A failing test is recorded against its pair and
// the rest still run; only cancellation aborts the batch.
func (s *SignificanceService) Run(ctx context.Context, req SignificanceRequest) (*SignificanceResult, error) {
	result := &SignificanceResult{
		Conversion: make([]run.ConversionOutcome, 0, len(req.ConversionPairs)),
		Spend:      make([]run.SpendOutcome, 0, len(req.SpendPairs)),
	}

	covariates := req.BalanceCovariates
	if len(covariates) == 0 {
		covariates = significance.DefaultBalanceCovariates
	}
	balance, err := significance.CheckBalance(req.Records, covariates)
	if err != nil {
		s.logger.Warn("balance check skipped: %v", err)
	} else {
		result.Balance = balance
		s.logger.Debug("balance: max standardized diff %.4f", balance.MaxStdDiff)
	}

	outcome := req.Outcome
	if outcome == "" {
		outcome = experiment.OutcomeConversion
	}
	for _, pair := range req.ConversionPairs {
		res, err := significance.CompareConversion(req.Records, pair, outcome)
		if err != nil {
			s.logger.Warn("conversion test %s: %v", pair, err)
		} else {
			s.logger.Info("conversion %s: z=%.3f p=%.3g", pair, res.Z, res.PValue)
		}
		result.Conversion = append(result.Conversion, run.ConversionOutcome{
			Pair:    pair,
			Result:  res,
			Failure: run.NewFailure(err),
		})
	}

	for _, pair := range req.SpendPairs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("significance run cancelled: %w", err)
		}
		res, err := significance.CompareSpend(ctx, s.rngPort, req.Records, pair, req.Bootstrap)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("significance run cancelled: %w", ctxErr)
			}
			s.logger.Warn("spend test %s: %v", pair, err)
		} else {
			s.logger.Info("spend %s: diff=%.4f t=%.3f p=%.3g", pair, res.MeanDiff, res.T, res.PValue)
		}
		result.Spend = append(result.Spend, run.SpendOutcome{
			Pair:    pair,
			Result:  res,
			Failure: run.NewFailure(err),
		})
	}

	return result, nil
}
