package features

import (
	"errors"
	"testing"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	apperrors "gouplift/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int, recency, history float64, channel string) experiment.Record {
	return experiment.NewRecord(core.RecordID(id), experiment.MensEmail, false, false, 0,
		map[string]float64{experiment.ColRecency: recency, experiment.ColHistory: history},
		map[string]string{experiment.ColChannel: channel})
}

func smallSchema() Schema {
	return Schema{
		Numeric:     []string{experiment.ColRecency, experiment.ColHistory},
		Categorical: []string{experiment.ColChannel},
		Standardize: true,
	}
}

func TestEncoder_ColumnsAndOneHot(t *testing.T) {
	train := []experiment.Record{
		rec(0, 1, 100, "Web"),
		rec(1, 3, 300, "Phone"),
	}
	vocab, dm, err := NewEncoder(smallSchema()).FitTransform(train)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"recency", "history",
		"channel=Phone", "channel=Web", "channel=" + UnknownCategory,
	}, vocab.Columns)
	r, c := dm.X.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, []core.RecordID{0, 1}, dm.RowIDs)

	// standardized with population std: mean 2, std 1
	assert.InDelta(t, -1.0, dm.X.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, dm.X.At(1, 0), 1e-12)
	assert.Equal(t, 1.0, dm.X.At(0, 3))
	assert.Equal(t, 0.0, dm.X.At(0, 2))
	assert.Equal(t, 1.0, dm.X.At(1, 2))
}

func TestTransform_UnseenCategoryUsesUnknownColumn(t *testing.T) {
	vocab, err := NewEncoder(smallSchema()).Fit([]experiment.Record{
		rec(0, 1, 100, "Web"), rec(1, 3, 300, "Phone"),
	})
	require.NoError(t, err)

	dm, err := Transform(vocab, []experiment.Record{rec(7, 2, 200, "Multichannel")})
	require.NoError(t, err)
	assert.Equal(t, 0.0, dm.X.At(0, 2))
	assert.Equal(t, 0.0, dm.X.At(0, 3))
	assert.Equal(t, 1.0, dm.X.At(0, 4))
}

func TestTransform_UsesTrainStatistics(t *testing.T) {
	vocab, err := NewEncoder(smallSchema()).Fit([]experiment.Record{
		rec(0, 1, 100, "Web"), rec(1, 3, 300, "Web"),
	})
	require.NoError(t, err)

	// holdout with a very different mean is scaled by the train mean/std
	dm, err := Transform(vocab, []experiment.Record{rec(9, 10, 100, "Web")})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, dm.X.At(0, 0), 1e-12)
	assert.InDelta(t, -1.0, dm.X.At(0, 1), 1e-12)
}

func TestEncoder_ZeroVarianceColumn(t *testing.T) {
	vocab, dm, err := NewEncoder(smallSchema()).FitTransform([]experiment.Record{
		rec(0, 5, 100, "Web"), rec(1, 5, 300, "Web"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, vocab.Scales[0])
	assert.Equal(t, 0.0, dm.X.At(0, 0))
}

func TestEncoder_NoStandardization(t *testing.T) {
	schema := smallSchema()
	schema.Standardize = false
	_, dm, err := NewEncoder(schema).FitTransform([]experiment.Record{rec(0, 4, 250, "Web")})
	require.NoError(t, err)
	assert.Equal(t, 4.0, dm.X.At(0, 0))
	assert.Equal(t, 250.0, dm.X.At(0, 1))
}

func TestEncoder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		records []experiment.Record
		want    error
	}{
		{"empty schema", Schema{}, []experiment.Record{rec(0, 1, 1, "Web")}, apperrors.ErrConfig},
		{"absent numeric", Schema{Numeric: []string{"tenure"}}, []experiment.Record{rec(0, 1, 1, "Web")}, apperrors.ErrConfig},
		{"absent category", Schema{Categorical: []string{experiment.ColZipCode}}, []experiment.Record{rec(0, 1, 1, "Web")}, apperrors.ErrConfig},
		{"no records", smallSchema(), nil, apperrors.ErrData},
		{"reserved level", smallSchema(), []experiment.Record{rec(0, 1, 1, "Web"), rec(1, 2, 2, UnknownCategory)}, apperrors.ErrData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.schema).Fit(tt.records)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTransform_AbsentCovariateAtScoring(t *testing.T) {
	vocab, err := NewEncoder(smallSchema()).Fit([]experiment.Record{rec(0, 1, 100, "Web")})
	require.NoError(t, err)

	bad := experiment.NewRecord(core.RecordID(3), experiment.NoEmail, false, false, 0,
		map[string]float64{experiment.ColRecency: 1}, map[string]string{experiment.ColChannel: "Web"})
	_, err = Transform(vocab, []experiment.Record{bad})
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}
