package excel

import (
	"fmt"
	"io"

	"gouplift/domain/run"

	"github.com/xuri/excelize/v2"
)

// Result workbook sheet names
const (
	SheetManifest   = "Manifest"
	SheetConversion = "Conversion"
	SheetSpend      = "Spend"
	SheetQini       = "Qini"
	SheetROI        = "ROI"
)

// maxCurvePoints bounds the exported curve; the full curve can have one
// point per holdout record
const maxCurvePoints = 1001

// BuildWorkbook lays a report out as one sheet per section
func BuildWorkbook(report *run.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetManifest); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetConversion, SheetSpend, SheetQini, SheetROI} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	m := report.Manifest
	manifest := [][]interface{}{
		{"run_id", m.RunID.String()},
		{"fingerprint", m.Fingerprint.String()},
		{"data_source", m.DataSource},
		{"records", m.RecordCount},
		{"outcome", string(m.Outcome)},
		{"seed", m.Seed},
		{"train_fraction", m.TrainFraction},
		{"bootstrap_resamples", m.BootstrapResamples},
		{"margin_per_conversion", m.Economics.MarginPerConversion},
		{"cost_per_email", m.Economics.CostPerEmail},
		{"classifier", m.Classifier},
		{"created_at", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")},
	}
	if err := writeRows(f, SheetManifest, manifest); err != nil {
		return nil, err
	}

	conv := [][]interface{}{{"pair", "rate_treatment", "rate_control", "abs_lift", "rel_lift", "z", "p_value", "error"}}
	for _, c := range report.Conversion {
		if c.Result == nil {
			conv = append(conv, []interface{}{c.Pair.String(), nil, nil, nil, nil, nil, nil, failureText(c.Failure)})
			continue
		}
		r := c.Result
		conv = append(conv, []interface{}{c.Pair.String(), r.RateTreatment, r.RateControl, r.AbsLift,
			cell(r.RelLift), cell(r.Z), cell(r.PValue), failureText(c.Failure)})
	}
	if err := writeRows(f, SheetConversion, conv); err != nil {
		return nil, err
	}

	spend := [][]interface{}{{"pair", "mean_treatment", "mean_control", "mean_diff", "t", "df", "p_value", "ci_lower", "ci_upper", "error"}}
	for _, s := range report.Spend {
		if s.Result == nil {
			spend = append(spend, []interface{}{s.Pair.String(), nil, nil, nil, nil, nil, nil, nil, nil, failureText(s.Failure)})
			continue
		}
		r := s.Result
		spend = append(spend, []interface{}{s.Pair.String(), r.MeanTreatment, r.MeanControl, r.MeanDiff,
			cell(r.T), cell(r.DF), cell(r.PValue), cell(r.CI.Lower), cell(r.CI.Upper), failureText(s.Failure)})
	}
	if err := writeRows(f, SheetSpend, spend); err != nil {
		return nil, err
	}

	qini := [][]interface{}{{"pair", "fraction_targeted", "incremental_gain"}}
	roi := [][]interface{}{{"pair", "k", "uplift_at_k", "n_mailed", "incremental_conversions",
		"revenue_gain", "email_cost", "net_profit", "realized_uplift_at_k"}}
	for _, u := range report.Uplift {
		if u.Qini != nil {
			for _, p := range u.Qini.Curve.Downsample(maxCurvePoints).Points {
				qini = append(qini, []interface{}{u.Pair.String(), p.Fraction, p.Gain})
			}
		}
		for _, r := range u.ROI {
			roi = append(roi, []interface{}{u.Pair.String(), r.K, r.UpliftAtK, r.NMailed, r.IncrementalConversions,
				r.RevenueGain, r.EmailCost, r.NetProfit, r.RealizedUpliftAtK})
		}
	}
	if err := writeRows(f, SheetQini, qini); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetROI, roi); err != nil {
		return nil, err
	}
	return f, nil
}

// ExportReport writes the report workbook to path
func ExportReport(path string, report *run.Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteReport streams the report workbook to w
func WriteReport(w io.Writer, report *run.Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, axis, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func failureText(f *run.Failure) interface{} {
	if f == nil {
		return nil
	}
	return f.Code + ": " + f.Message
}

// ExportRecords writes a raw data sheet (header plus string rows) to an XLSX
// file that DataReader can read back
func ExportRecords(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	if f.GetSheetName(0) != DefaultSheet {
		if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
			return err
		}
	}

	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, stringsRow(header))
	for _, r := range rows {
		out = append(out, stringsRow(r))
	}
	if err := writeRows(f, DefaultSheet, out); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func stringsRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
