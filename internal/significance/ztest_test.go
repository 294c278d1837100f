package significance

import (
	"errors"
	"math"
	"testing"

	"gouplift/domain/experiment"
	apperrors "gouplift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mensVsNo = experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.NoEmail}

func TestConversionZTest_HillstromCounts(t *testing.T) {
	res, err := ConversionZTest(mensVsNo, 267, 21307, 122, 21306)
	require.NoError(t, err)

	assert.InDelta(t, 7.385, res.Z, 0.001)
	assert.InEpsilon(t, 1.523e-13, res.PValue, 0.02)
	assert.InDelta(t, 267.0/21307-122.0/21306, res.AbsLift, 1e-12)
	assert.InDelta(t, res.AbsLift/(122.0/21306), res.RelLift, 1e-12)
	assert.True(t, res.Significant(0.05))
	assert.False(t, res.Indeterminate)
	assert.True(t, res.CITreatment.Contains(res.RateTreatment))
}

func TestConversionZTest_Symmetry(t *testing.T) {
	tests := []struct {
		name           string
		x1, n1, x2, n2 int
	}{
		{"hillstrom", 267, 21307, 122, 21306},
		{"small", 12, 100, 7, 90},
		{"equal rates", 10, 100, 20, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, err := ConversionZTest(mensVsNo, tt.x1, tt.n1, tt.x2, tt.n2)
			require.NoError(t, err)
			rev, err := ConversionZTest(mensVsNo.Swap(), tt.x2, tt.n2, tt.x1, tt.n1)
			require.NoError(t, err)

			assert.InDelta(t, -fwd.Z, rev.Z, 1e-12)
			assert.InDelta(t, fwd.PValue, rev.PValue, 1e-15)
			assert.InDelta(t, -fwd.AbsLift, rev.AbsLift, 1e-15)
		})
	}
}

func TestConversionZTest_EqualRatesNotSignificant(t *testing.T) {
	res, err := ConversionZTest(mensVsNo, 10, 100, 20, 200)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Z, 1e-12)
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
}

func TestConversionZTest_ZeroVariance(t *testing.T) {
	for _, x := range []int{0, 50} {
		res, err := ConversionZTest(mensVsNo, x, 50, x, 50)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrStatistical))
		require.NotNil(t, res)
		assert.True(t, res.Indeterminate)
		assert.True(t, math.IsNaN(res.Z))
		assert.True(t, math.IsNaN(res.PValue))
		assert.False(t, res.Significant(0.05))
	}
}

func TestConversionZTest_ZeroControlRate(t *testing.T) {
	res, err := ConversionZTest(mensVsNo, 5, 100, 0, 100)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.RelLift))
	assert.Greater(t, res.Z, 0.0)
}

func TestConversionZTest_InvalidCounts(t *testing.T) {
	tests := []struct {
		name           string
		x1, n1, x2, n2 int
	}{
		{"empty treatment", 0, 0, 1, 10},
		{"empty control", 1, 10, 0, 0},
		{"too many conversions", 11, 10, 1, 10},
		{"negative", -1, 10, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConversionZTest(mensVsNo, tt.x1, tt.n1, tt.x2, tt.n2)
			assert.True(t, errors.Is(err, apperrors.ErrData))
		})
	}
}

func TestWilsonInterval(t *testing.T) {
	ci := WilsonInterval(5, 10, 0.95)
	assert.InDelta(t, 0.23659, ci.Lower, 1e-4)
	assert.InDelta(t, 0.76341, ci.Upper, 1e-4)

	ci = WilsonInterval(0, 10, 0.95)
	assert.InDelta(t, 0.0, ci.Lower, 1e-12)
	assert.InDelta(t, 0.27753, ci.Upper, 1e-4)

	ci = WilsonInterval(267, 21307, 0.95)
	assert.InDelta(t, 0.011123, ci.Lower, 1e-5)
	assert.InDelta(t, 0.014115, ci.Upper, 1e-5)
}

func TestCompareConversion(t *testing.T) {
	var records []experiment.Record
	id := 0
	add := func(arm experiment.Arm, n, conv int) {
		for i := 0; i < n; i++ {
			records = append(records, experiment.NewRecord(recordID(id), arm, i < conv, i < conv, 0, nil, nil))
			id++
		}
	}
	add(experiment.MensEmail, 100, 12)
	add(experiment.WomensEmail, 100, 9)
	add(experiment.NoEmail, 90, 7)

	res, err := CompareConversion(records, mensVsNo, experiment.OutcomeConversion)
	require.NoError(t, err)
	assert.Equal(t, 12, res.ConversionsTreated)
	assert.Equal(t, 7, res.ConversionsControl)
	assert.Equal(t, 100, res.NTreatment)
	assert.Equal(t, 90, res.NControl)
}
