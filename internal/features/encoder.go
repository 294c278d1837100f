package features

import (
	"math"
	"sort"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	apperrors "gouplift/internal/errors"

	"gonum.org/v1/gonum/mat"
	gstat "gonum.org/v1/gonum/stat"
)

// UnknownCategory is the sentinel level for categories unseen during Fit
const UnknownCategory = "__unknown__"

// Schema names the covariates fed to the model
type Schema struct {
	Numeric     []string `json:"numeric" yaml:"numeric"`
	Categorical []string `json:"categorical" yaml:"categorical"`
	Standardize bool     `json:"standardize" yaml:"standardize"`
}

// HillstromSchema is the covariate set of the Hillstrom e-mail data
func HillstromSchema() Schema {
	return Schema{
		Numeric: []string{
			experiment.ColRecency, experiment.ColHistory,
			experiment.ColMens, experiment.ColWomens, experiment.ColNewbie,
		},
		Categorical: []string{
			experiment.ColHistorySegment, experiment.ColZipCode, experiment.ColChannel,
		},
		Standardize: true,
	}
}

// Vocabulary is the frozen encoding learned from the training split
type Vocabulary struct {
	Schema  Schema              `json:"schema"`
	Levels  map[string][]string `json:"levels"`
	Means   []float64           `json:"means"`
	Scales  []float64           `json:"scales"`
	Columns []string            `json:"columns"`
}

// DesignMatrix is the model input, one row per record in RowIDs order
type DesignMatrix struct {
	Columns []string
	RowIDs  []core.RecordID
	X       *mat.Dense
}

// Rows returns the number of records encoded
func (d *DesignMatrix) Rows() int { return len(d.RowIDs) }

// Encoder turns records into a fixed-width numeric design matrix
type Encoder struct {
	schema Schema
}

// NewEncoder creates an encoder for the given schema
func NewEncoder(schema Schema) *Encoder {
	return &Encoder{schema: schema}
}

// Fit learns category levels and standardization statistics from records.
// Only the training split should ever be passed here.
func (e *Encoder) Fit(records []experiment.Record) (*Vocabulary, error) {
	if len(e.schema.Numeric)+len(e.schema.Categorical) == 0 {
		return nil, apperrors.ConfigError("feature schema is empty")
	}
	if len(records) == 0 {
		return nil, apperrors.DataError("cannot fit encoder on zero records")
	}

	vocab := &Vocabulary{
		Schema: e.schema,
		Levels: make(map[string][]string, len(e.schema.Categorical)),
		Means:  make([]float64, len(e.schema.Numeric)),
		Scales: make([]float64, len(e.schema.Numeric)),
	}

	for j, name := range e.schema.Numeric {
		values, err := numericColumn(records, name)
		if err != nil {
			return nil, err
		}
		vocab.Means[j], vocab.Scales[j] = 0, 1
		if e.schema.Standardize {
			mean, std := gstat.PopMeanStdDev(values, nil)
			vocab.Means[j] = mean
			if std > 0 && !math.IsNaN(std) {
				vocab.Scales[j] = std
			}
		}
	}

	for _, name := range e.schema.Categorical {
		seen := make(map[string]struct{})
		for _, r := range records {
			v, ok := r.Category(name)
			if !ok {
				return nil, apperrors.ConfigError("record %s has no categorical covariate %q", r.ID, name)
			}
			if v == UnknownCategory {
				return nil, apperrors.DataError("record %s: %s level %q is reserved", r.ID, name, UnknownCategory)
			}
			seen[v] = struct{}{}
		}
		levels := make([]string, 0, len(seen))
		for v := range seen {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		vocab.Levels[name] = levels
	}

	vocab.Columns = columnNames(vocab)
	return vocab, nil
}

// Transform encodes records with a frozen vocabulary. Categories absent from
// the vocabulary land in the name=__unknown__ column.
func Transform(vocab *Vocabulary, records []experiment.Record) (*DesignMatrix, error) {
	if vocab == nil {
		return nil, apperrors.ConfigError("encoder vocabulary is nil; call Fit first")
	}
	width := len(vocab.Columns)
	dm := &DesignMatrix{
		Columns: append([]string(nil), vocab.Columns...),
		RowIDs:  make([]core.RecordID, len(records)),
	}
	if len(records) == 0 {
		return dm, nil
	}

	offsets := make(map[string]map[string]int, len(vocab.Schema.Categorical))
	col := len(vocab.Schema.Numeric)
	for _, name := range vocab.Schema.Categorical {
		idx := make(map[string]int, len(vocab.Levels[name])+1)
		for _, level := range vocab.Levels[name] {
			idx[level] = col
			col++
		}
		idx[UnknownCategory] = col
		col++
		offsets[name] = idx
	}

	data := make([]float64, len(records)*width)
	for i, r := range records {
		dm.RowIDs[i] = r.ID
		row := data[i*width : (i+1)*width]
		for j, name := range vocab.Schema.Numeric {
			v, ok := r.Numeric(name)
			if !ok {
				return nil, apperrors.ConfigError("record %s has no numeric covariate %q", r.ID, name)
			}
			row[j] = (v - vocab.Means[j]) / vocab.Scales[j]
		}
		for _, name := range vocab.Schema.Categorical {
			v, ok := r.Category(name)
			if !ok {
				return nil, apperrors.ConfigError("record %s has no categorical covariate %q", r.ID, name)
			}
			c, known := offsets[name][v]
			if !known {
				c = offsets[name][UnknownCategory]
			}
			row[c] = 1
		}
	}
	dm.X = mat.NewDense(len(records), width, data)
	return dm, nil
}

// FitTransform fits on records and encodes the same records
func (e *Encoder) FitTransform(records []experiment.Record) (*Vocabulary, *DesignMatrix, error) {
	vocab, err := e.Fit(records)
	if err != nil {
		return nil, nil, err
	}
	dm, err := Transform(vocab, records)
	if err != nil {
		return nil, nil, err
	}
	return vocab, dm, nil
}

func numericColumn(records []experiment.Record, name string) ([]float64, error) {
	values := make([]float64, len(records))
	for i, r := range records {
		v, ok := r.Numeric(name)
		if !ok {
			return nil, apperrors.ConfigError("record %s has no numeric covariate %q", r.ID, name)
		}
		values[i] = v
	}
	return values, nil
}

func columnNames(vocab *Vocabulary) []string {
	cols := append([]string(nil), vocab.Schema.Numeric...)
	for _, name := range vocab.Schema.Categorical {
		for _, level := range vocab.Levels[name] {
			cols = append(cols, name+"="+level)
		}
		cols = append(cols, name+"="+UnknownCategory)
	}
	return cols
}
