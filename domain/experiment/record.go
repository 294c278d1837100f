package experiment

import (
	"fmt"
	"sort"

	"gouplift/domain/core"
)

// Hillstrom covariate names
const (
	ColRecency        = "recency"
	ColHistory        = "history"
	ColHistorySegment = "history_segment"
	ColMens           = "mens"
	ColWomens         = "womens"
	ColNewbie         = "newbie"
	ColZipCode        = "zip_code"
	ColChannel        = "channel"
)

// Outcome selects which binary response is modelled
type Outcome string

const (
	OutcomeConversion Outcome = "conversion"
	OutcomeVisit      Outcome = "visit"
)

// ParseOutcome validates an outcome name; empty means conversion
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case "", OutcomeConversion:
		return OutcomeConversion, nil
	case OutcomeVisit:
		return OutcomeVisit, nil
	}
	return "", fmt.Errorf("unknown outcome %q (want conversion or visit)", s)
}

// Record is one customer observation. Records are built once by NewRecord and
// never mutated; accessors copy.
type Record struct {
	ID         core.RecordID
	Arm        Arm
	Visit      bool
	Conversion bool
	Spend      float64

	numeric     map[string]float64
	categorical map[string]string
}

// NewRecord copies the covariate maps so the caller cannot mutate the record later
func NewRecord(id core.RecordID, arm Arm, visit, conversion bool, spend float64,
	numeric map[string]float64, categorical map[string]string) Record {
	r := Record{
		ID:          id,
		Arm:         arm,
		Visit:       visit,
		Conversion:  conversion,
		Spend:       spend,
		numeric:     make(map[string]float64, len(numeric)),
		categorical: make(map[string]string, len(categorical)),
	}
	for k, v := range numeric {
		r.numeric[k] = v
	}
	for k, v := range categorical {
		r.categorical[k] = v
	}
	return r
}

// Numeric returns a numeric covariate (booleans are stored as 0/1)
func (r Record) Numeric(name string) (float64, bool) {
	v, ok := r.numeric[name]
	return v, ok
}

// Category returns a categorical covariate
func (r Record) Category(name string) (string, bool) {
	v, ok := r.categorical[name]
	return v, ok
}

// Outcome returns the selected binary response
func (r Record) Outcome(o Outcome) bool {
	if o == OutcomeVisit {
		return r.Visit
	}
	return r.Conversion
}

// ByArm groups records by arm, preserving input order within each arm
func ByArm(records []Record) map[Arm][]Record {
	out := make(map[Arm][]Record, len(AllArms))
	for _, r := range records {
		out[r.Arm] = append(out[r.Arm], r)
	}
	return out
}

// FilterPair keeps only the records belonging to either arm of the pair
func FilterPair(records []Record, pair ArmPair) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if pair.Contains(r.Arm) {
			out = append(out, r)
		}
	}
	return out
}

// SortByID returns a copy of records ordered by ID
func SortByID(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Spends extracts the spend column
func Spends(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Spend
	}
	return out
}

// CountOutcome returns (positives, total) for the selected outcome
func CountOutcome(records []Record, o Outcome) (int, int) {
	pos := 0
	for _, r := range records {
		if r.Outcome(o) {
			pos++
		}
	}
	return pos, len(records)
}
