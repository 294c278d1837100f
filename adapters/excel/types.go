package excel

import "math"

// RawRowData represents a row of raw data as header -> cell text
type RawRowData map[string]string

// ExcelData represents the complete dataset as read from the file
type ExcelData struct {
	Headers []string     // Column headers, lower-cased
	Rows    []RawRowData // Data rows
}

// cell leaves undefined statistics blank instead of writing NaN
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
