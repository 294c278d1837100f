package run

import (
	"fmt"
	"strings"
	"time"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	"gouplift/domain/uplift"
)

// Manifest is the complete parameter set of a run. Its fingerprint is the
// replay key: same fingerprint + same input data => identical report.
type Manifest struct {
	RunID              core.RunID                `json:"run_id"`
	Fingerprint        core.Hash                 `json:"fingerprint"`
	DataSource         string                    `json:"data_source"`
	RecordCount        int                       `json:"record_count"`
	Outcome            experiment.Outcome        `json:"outcome"`
	Seed               int64                     `json:"seed"`
	TrainFraction      float64                   `json:"train_fraction"`
	BootstrapResamples int                       `json:"bootstrap_resamples"`
	BootstrapSeed      int64                     `json:"bootstrap_seed"`
	Ks                 []float64                 `json:"ks"`
	Economics          uplift.EconomicParameters `json:"economics"`
	Classifier         string                    `json:"classifier"`
	ConversionPairs    []experiment.ArmPair      `json:"conversion_pairs"`
	UpliftPairs        []experiment.ArmPair      `json:"uplift_pairs"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// NewManifest stamps a fresh run ID and computes the fingerprint
func NewManifest(m Manifest) *Manifest {
	out := m
	out.RunID = core.NewRunID()
	out.Fingerprint = m.ComputeFingerprint()
	out.CreatedAt = time.Now().UTC()
	return &out
}

// ComputeFingerprint hashes every parameter that influences results.
// RunID, CreatedAt and DataSource are excluded.
func (m Manifest) ComputeFingerprint() core.Hash {
	return core.ComputeFingerprint(map[string]interface{}{
		"record_count":        m.RecordCount,
		"outcome":             m.Outcome,
		"seed":                m.Seed,
		"train_fraction":      m.TrainFraction,
		"bootstrap_resamples": m.BootstrapResamples,
		"bootstrap_seed":      m.BootstrapSeed,
		"ks":                  fmt.Sprint(m.Ks),
		"margin":              m.Economics.MarginPerConversion,
		"cost":                m.Economics.CostPerEmail,
		"classifier":          m.Classifier,
		"conversion_pairs":    pairsKey(m.ConversionPairs),
		"uplift_pairs":        pairsKey(m.UpliftPairs),
	})
}

// Validate checks the manifest is complete enough to store
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.Fingerprint.IsEmpty() {
		return fmt.Errorf("run manifest: fingerprint cannot be empty")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("run manifest: created_at cannot be zero")
	}
	return nil
}

func pairsKey(pairs []experiment.ArmPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = string(p.Treatment) + ">" + string(p.Control)
	}
	return strings.Join(parts, ",")
}
