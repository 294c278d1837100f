package uplift

import (
	"testing"

	"gouplift/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_UpliftDescendingThenID(t *testing.T) {
	in := []ScoredRecord{
		{ID: 4, PredictedUplift: 0.1},
		{ID: 2, PredictedUplift: 0.3},
		{ID: 9, PredictedUplift: 0.1},
		{ID: 1, PredictedUplift: 0.1},
	}
	ranked := Rank(in)
	ids := make([]core.RecordID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	assert.Equal(t, []core.RecordID{2, 1, 4, 9}, ids)
	assert.True(t, IsRanked(ranked))
	assert.False(t, IsRanked(in))
	// input untouched
	assert.Equal(t, core.RecordID(4), in[0].ID)
}

func TestQiniCurve_At(t *testing.T) {
	c := QiniCurve{Points: []QiniPoint{{Fraction: 0, Gain: 0}, {Fraction: 0.5, Gain: 4}, {Fraction: 1, Gain: 2}}}
	assert.Equal(t, 2.0, c.Final())
	assert.InDelta(t, 2.0, c.At(0.25), 1e-12)
	assert.InDelta(t, 4.0, c.At(0.5), 1e-12)
	assert.InDelta(t, 3.0, c.At(0.75), 1e-12)
	assert.Equal(t, 0.0, c.At(-1))
	assert.Equal(t, 2.0, c.At(2))
	assert.Equal(t, 0.0, QiniCurve{}.At(0.5))
}

func TestQiniCurve_Downsample(t *testing.T) {
	points := make([]QiniPoint, 101)
	for i := range points {
		points[i] = QiniPoint{Fraction: float64(i) / 100, Gain: float64(i)}
	}
	c := QiniCurve{Points: points}

	small := c.Downsample(11)
	require.Equal(t, 11, small.Len())
	assert.Equal(t, points[0], small.Points[0])
	assert.Equal(t, points[100], small.Points[10])
	assert.Equal(t, points[50], small.Points[5])

	assert.Equal(t, c, c.Downsample(500))
}
