package stats

import (
	"encoding/json"
	"math"
)

// Undefined statistics (NaN) travel as JSON null and come back as NaN.

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lower      *float64 `json:"lower"`
		Upper      *float64 `json:"upper"`
		Confidence float64  `json:"confidence"`
	}{finite(i.Lower), finite(i.Upper), i.Confidence})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var aux struct {
		Lower      *float64 `json:"lower"`
		Upper      *float64 `json:"upper"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Lower, i.Upper, i.Confidence = orNaN(aux.Lower), orNaN(aux.Upper), aux.Confidence
	return nil
}

func (r ConversionTestResult) MarshalJSON() ([]byte, error) {
	type alias ConversionTestResult
	return json.Marshal(struct {
		alias
		Z       *float64 `json:"z"`
		PValue  *float64 `json:"p_value"`
		RelLift *float64 `json:"rel_lift"`
	}{alias(r), finite(r.Z), finite(r.PValue), finite(r.RelLift)})
}

func (r *ConversionTestResult) UnmarshalJSON(data []byte) error {
	type alias ConversionTestResult
	aux := struct {
		*alias
		Z       *float64 `json:"z"`
		PValue  *float64 `json:"p_value"`
		RelLift *float64 `json:"rel_lift"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Z, r.PValue, r.RelLift = orNaN(aux.Z), orNaN(aux.PValue), orNaN(aux.RelLift)
	return nil
}

func (r SpendTestResult) MarshalJSON() ([]byte, error) {
	type alias SpendTestResult
	return json.Marshal(struct {
		alias
		T      *float64 `json:"t"`
		DF     *float64 `json:"df"`
		PValue *float64 `json:"p_value"`
	}{alias(r), finite(r.T), finite(r.DF), finite(r.PValue)})
}

func (r *SpendTestResult) UnmarshalJSON(data []byte) error {
	type alias SpendTestResult
	aux := struct {
		*alias
		T      *float64 `json:"t"`
		DF     *float64 `json:"df"`
		PValue *float64 `json:"p_value"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.T, r.DF, r.PValue = orNaN(aux.T), orNaN(aux.DF), orNaN(aux.PValue)
	return nil
}
