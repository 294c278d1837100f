package testkit

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"testing"

	"gouplift/domain/experiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHillstromGenerator_Deterministic(t *testing.T) {
	a := NewTestKit().Records()
	b := NewTestKit().Records()
	require.Len(t, a, 3*DefaultHillstromConfig().CustomersPerArm)
	assert.Equal(t, a, b)
}

func TestHillstromGenerator_Shape(t *testing.T) {
	cfg := DefaultHillstromConfig()
	cfg.CustomersPerArm = 300
	records := NewTestKit().WithConfig(cfg).Records()

	byArm := experiment.ByArm(records)
	for _, arm := range experiment.AllArms {
		assert.Len(t, byArm[arm], 300, arm)
	}
	for _, r := range records {
		assert.GreaterOrEqual(t, r.Spend, 0.0)
		if !r.Conversion {
			assert.Zero(t, r.Spend)
		}
		_, ok := r.Category(experiment.ColZipCode)
		assert.True(t, ok)
	}

	// E-mailed arms convert more than control under the default lift
	xm, nm := experiment.CountOutcome(byArm[experiment.MensEmail], experiment.OutcomeConversion)
	xc, nc := experiment.CountOutcome(byArm[experiment.NoEmail], experiment.OutcomeConversion)
	assert.Greater(t, float64(xm)/float64(nm), float64(xc)/float64(nc))
}

func TestWriteCSV(t *testing.T) {
	cfg := DefaultHillstromConfig()
	cfg.CustomersPerArm = 5
	records := NewTestKit().WithConfig(cfg).Records()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 16)
	assert.Equal(t, HillstromHeader, rows[0])
	assert.Equal(t, records[0].Arm.Label(), rows[1][8])
}

func TestHillstromRow_SpendSurvivesFormatting(t *testing.T) {
	cfg := DefaultHillstromConfig()
	cfg.CustomersPerArm = 200
	records := NewTestKit().WithConfig(cfg).Records()

	converted := 0
	for _, r := range records {
		assert.Equal(t, math.Round(r.Spend*100)/100, r.Spend)
		parsed, err := strconv.ParseFloat(HillstromRow(r)[11], 64)
		require.NoError(t, err)
		assert.Equal(t, r.Spend, parsed, "record %d", r.ID)
		if r.Conversion {
			converted++
		}
	}
	assert.Greater(t, converted, 0)
}
