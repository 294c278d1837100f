package testkit

import (
	"gouplift/domain/core"
	"gouplift/domain/experiment"
	"gouplift/internal/rng"
	"gouplift/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	streams *rng.Streams
	config  HillstromGeneratorConfig
}

// NewTestKit creates a test kit with the default synthetic population
func NewTestKit() *TestKit {
	return &TestKit{streams: rng.NewStreams(), config: DefaultHillstromConfig()}
}

// WithConfig returns a kit generating a differently shaped population
func (t *TestKit) WithConfig(config HillstromGeneratorConfig) *TestKit {
	return &TestKit{streams: t.streams, config: config}
}

// RNGAdapter returns the deterministic stream factory
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.streams
}

// Records generates the configured population; same config, same records
func (t *TestKit) Records() []experiment.Record {
	return NewHillstromGenerator(t.config).GenerateRecords()
}

// ConstantRecords builds n records per arm with fixed covariates and the given
// outcome per arm, for degenerate-input tests
func ConstantRecords(n int, converted map[experiment.Arm]bool) []experiment.Record {
	var out []experiment.Record
	id := 0
	for _, arm := range experiment.AllArms {
		for i := 0; i < n; i++ {
			conv := converted[arm]
			spend := 0.0
			if conv {
				spend = 50
			}
			out = append(out, experiment.NewRecord(core.RecordID(id), arm, conv, conv, spend,
				map[string]float64{
					experiment.ColRecency: 3, experiment.ColHistory: 100,
					experiment.ColMens: 1, experiment.ColWomens: 0, experiment.ColNewbie: 0,
				},
				map[string]string{
					experiment.ColHistorySegment: "2) $100 - $200",
					experiment.ColZipCode:        "Urban",
					experiment.ColChannel:        "Web",
				}))
			id++
		}
	}
	return out
}
