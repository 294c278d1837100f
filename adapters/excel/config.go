package excel

import "gouplift/domain/experiment"

// Hillstrom column names not covered by covariates
const (
	ColSegment    = "segment"
	ColVisit      = "visit"
	ColConversion = "conversion"
	ColSpend      = "spend"
)

// DefaultSheet is the worksheet read from XLSX input
const DefaultSheet = "Sheet1"

// RequiredColumns must all be present in the header row
var RequiredColumns = []string{
	experiment.ColRecency, experiment.ColHistorySegment, experiment.ColHistory,
	experiment.ColMens, experiment.ColWomens, experiment.ColZipCode,
	experiment.ColNewbie, experiment.ColChannel,
	ColSegment, ColVisit, ColConversion, ColSpend,
}

var (
	numericColumns     = []string{experiment.ColRecency, experiment.ColHistory}
	flagColumns        = []string{experiment.ColMens, experiment.ColWomens, experiment.ColNewbie}
	categoricalColumns = []string{experiment.ColHistorySegment, experiment.ColZipCode, experiment.ColChannel}
)
