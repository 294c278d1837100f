package report

import (
	"fmt"
	"math"
	"strconv"

	"gouplift/domain/run"
	"gouplift/domain/stats"
)

const notAvailable = "n/a"

func num(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// pvalue switches to scientific notation for very small values
func pvalue(p float64) string {
	if math.IsNaN(p) {
		return notAvailable
	}
	if p != 0 && p < 1e-4 {
		return strconv.FormatFloat(p, 'e', 3, 64)
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}

func percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

func money(v float64) string {
	if math.IsNaN(v) {
		return notAvailable
	}
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func interval(ci stats.Interval, prec int) string {
	if math.IsNaN(ci.Lower) || math.IsNaN(ci.Upper) {
		return notAvailable
	}
	return fmt.Sprintf("[%s, %s]", num(ci.Lower, prec), num(ci.Upper, prec))
}

func failureNote(f *run.Failure) string {
	if f == nil {
		return ""
	}
	return f.Code + ": " + f.Message
}

func conversionNote(c run.ConversionOutcome) string {
	if c.Failure != nil {
		return failureNote(c.Failure)
	}
	if c.Result != nil && c.Result.Indeterminate {
		return "indeterminate: " + c.Result.Reason
	}
	return ""
}

func spendNote(s run.SpendOutcome) string {
	if s.Failure != nil {
		return failureNote(s.Failure)
	}
	if s.Result != nil && s.Result.Indeterminate {
		return "indeterminate: " + s.Result.Reason
	}
	return ""
}
