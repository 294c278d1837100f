package policy

import (
	"errors"
	"math"
	"testing"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	domain "gouplift/domain/uplift"
	apperrors "gouplift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pair = experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.NoEmail}

func defaultEcon() domain.EconomicParameters {
	return domain.EconomicParameters{MarginPerConversion: 15, CostPerEmail: 0.10}
}

func population(n int) []domain.ScoredRecord {
	out := make([]domain.ScoredRecord, n)
	for i := range out {
		arm := experiment.MensEmail
		if i%2 == 1 {
			arm = experiment.NoEmail
		}
		out[i] = domain.ScoredRecord{
			ID:              core.RecordID(i),
			Arm:             arm,
			Outcome:         i%3 == 0,
			PredictedUplift: float64(n-i) / float64(n),
		}
	}
	return out
}

func TestSimulate_Reconciles(t *testing.T) {
	sim, err := NewSimulator(defaultEcon())
	require.NoError(t, err)

	rows, err := sim.Simulate(population(1000), pair, DefaultKs)
	require.NoError(t, err)
	require.Len(t, rows, len(DefaultKs))

	for _, r := range rows {
		assert.Equal(t, int(math.Floor(1000*r.K)), r.NMailed)
		assert.InDelta(t, r.UpliftAtK*float64(r.NMailed), r.IncrementalConversions, 1e-9)
		assert.InDelta(t, r.IncrementalConversions*15, r.RevenueGain, 1e-9)
		assert.InDelta(t, float64(r.NMailed)*0.10, r.EmailCost, 1e-9)
		assert.InDelta(t, r.RevenueGain-r.EmailCost, r.NetProfit, 1e-9)
	}
	// top 5% of a descending ramp: uplift 1.0 .. 0.951
	assert.InDelta(t, (1.0+0.951)/2, rows[0].UpliftAtK, 1e-9)
}

func TestNewROIRow_WorkedExample(t *testing.T) {
	row := domain.NewROIRow(0.1, 0.008113, 1278, defaultEcon())
	assert.InDelta(t, 10.368, row.IncrementalConversions, 1e-3)
	assert.InDelta(t, 155.52, row.RevenueGain, 1e-2)
	assert.InDelta(t, 127.8, row.EmailCost, 1e-9)
	assert.InDelta(t, 27.72, row.NetProfit, 1e-2)
}

func TestSimulate_ZeroMailed(t *testing.T) {
	sim, err := NewSimulator(defaultEcon())
	require.NoError(t, err)
	rows, err := sim.Simulate(population(10), pair, []float64{0.05})
	require.NoError(t, err)
	assert.Equal(t, domain.ROIRow{K: 0.05}, rows[0])
}

func TestSimulate_FloorSlack(t *testing.T) {
	sim, err := NewSimulator(defaultEcon())
	require.NoError(t, err)
	rows, err := sim.Simulate(population(100), pair, []float64{0.29, 1.0})
	require.NoError(t, err)
	assert.Equal(t, 29, rows[0].NMailed)
	assert.Equal(t, 100, rows[1].NMailed)
}

func TestSimulate_InvalidKFailsIndependently(t *testing.T) {
	sim, err := NewSimulator(defaultEcon())
	require.NoError(t, err)

	rows, err := sim.Simulate(population(100), pair, []float64{0.1, 0, 1.5, math.NaN(), 0.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
	require.Len(t, rows, 2)
	assert.Equal(t, 0.1, rows[0].K)
	assert.Equal(t, 0.5, rows[1].K)
}

func TestNewSimulator_BadEconomics(t *testing.T) {
	tests := []struct {
		name string
		econ domain.EconomicParameters
	}{
		{"zero margin", domain.EconomicParameters{MarginPerConversion: 0, CostPerEmail: 0.1}},
		{"negative margin", domain.EconomicParameters{MarginPerConversion: -1, CostPerEmail: 0.1}},
		{"negative cost", domain.EconomicParameters{MarginPerConversion: 15, CostPerEmail: -0.1}},
		{"nan margin", domain.EconomicParameters{MarginPerConversion: math.NaN(), CostPerEmail: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulator(tt.econ)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
		})
	}
}

func TestSimulate_RealizedUplift(t *testing.T) {
	scored := []domain.ScoredRecord{
		{ID: 0, Arm: experiment.MensEmail, Outcome: true, PredictedUplift: 0.4},
		{ID: 1, Arm: experiment.NoEmail, Outcome: false, PredictedUplift: 0.3},
		{ID: 2, Arm: experiment.MensEmail, Outcome: false, PredictedUplift: 0.2},
		{ID: 3, Arm: experiment.NoEmail, Outcome: true, PredictedUplift: 0.1},
	}
	sim, err := NewSimulator(defaultEcon())
	require.NoError(t, err)
	rows, err := sim.Simulate(scored, pair, []float64{0.25, 0.5, 1.0})
	require.NoError(t, err)

	// only treated in the top 1: realized undefined, left at 0
	assert.Equal(t, 0.0, rows[0].RealizedUpliftAtK)
	assert.InDelta(t, 1.0, rows[1].RealizedUpliftAtK, 1e-12)
	assert.InDelta(t, 0.0, rows[2].RealizedUpliftAtK, 1e-12)
	// realized never enters the arithmetic
	assert.InDelta(t, 0.25*4*15-4*0.10, rows[2].NetProfit, 1e-9)
}

func TestBestByProfit(t *testing.T) {
	rows := []domain.ROIRow{{K: 0.2, NetProfit: 5}, {K: 0.1, NetProfit: 5}, {K: 1, NetProfit: -3}}
	best, ok := domain.BestByProfit(rows)
	require.True(t, ok)
	assert.Equal(t, 0.1, best.K)

	_, ok = domain.BestByProfit(nil)
	assert.False(t, ok)
}
