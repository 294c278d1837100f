package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
	"gouplift/internal"
	apperrors "gouplift/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader reads the Hillstrom experiment from a CSV or XLSX file
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    DefaultSheet,
		logger:   internal.NewDefaultLogger().With("DataReader"),
	}
}

// SetLogger replaces the default logger
func (r *DataReader) SetLogger(logger *internal.Logger) {
	r.logger = logger.With("DataReader")
}

// ReadData reads the header row and every data row as trimmed strings
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, apperrors.DataError("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", strings.ToUpper(r.fileType),
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, apperrors.DataError("%s must have a header row and at least one data row", r.filePath)
	}
	return processRows(rows), nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, apperrors.DataError("open %s: %v", r.filePath, err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, apperrors.DataError("read sheet %s of %s: %v", r.sheet, r.filePath, err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.DataError("open %s: %v", r.filePath, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, apperrors.DataError("read CSV %s: %v", r.filePath, err)
	}
	return rows, nil
}

func processRows(rows [][]string) *ExcelData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	data := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data = append(data, rowData)
	}
	return &ExcelData{Headers: headers, Rows: data}
}

// ReadRecords loads every row as a Record; IDs are 0-based data-row indexes
func (r *DataReader) ReadRecords(ctx context.Context) ([]experiment.Record, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	records, err := ParseRecords(ctx, data)
	if err != nil {
		return nil, err
	}
	r.logger.Info("loaded %d records from %s", len(records), r.filePath)
	return records, nil
}

// ParseRecords converts raw rows into validated Records
func ParseRecords(ctx context.Context, data *ExcelData) ([]experiment.Record, error) {
	present := make(map[string]bool, len(data.Headers))
	for _, h := range data.Headers {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.DataError("missing required columns: %s", strings.Join(missing, ", "))
	}

	records := make([]experiment.Record, 0, len(data.Rows))
	for i, row := range data.Rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := parseRow(i, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRow reports cells by their 1-based spreadsheet row, header being row 1
func parseRow(i int, row RawRowData) (experiment.Record, error) {
	line := i + 2
	arm, err := experiment.ParseArm(row[ColSegment])
	if err != nil {
		return experiment.Record{}, apperrors.DataError("row %d, column %s: %v", line, ColSegment, err)
	}

	numeric := make(map[string]float64, len(numericColumns)+len(flagColumns))
	for _, col := range numericColumns {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return experiment.Record{}, apperrors.DataError("row %d, column %s: not a number: %q", line, col, row[col])
		}
		numeric[col] = v
	}
	for _, col := range flagColumns {
		b, err := parseFlag(row[col])
		if err != nil {
			return experiment.Record{}, apperrors.DataError("row %d, column %s: %v", line, col, err)
		}
		numeric[col] = 0
		if b {
			numeric[col] = 1
		}
	}

	categorical := make(map[string]string, len(categoricalColumns))
	for _, col := range categoricalColumns {
		categorical[col] = row[col]
	}

	visit, err := parseFlag(row[ColVisit])
	if err != nil {
		return experiment.Record{}, apperrors.DataError("row %d, column %s: %v", line, ColVisit, err)
	}
	conversion, err := parseFlag(row[ColConversion])
	if err != nil {
		return experiment.Record{}, apperrors.DataError("row %d, column %s: %v", line, ColConversion, err)
	}
	spend, err := parseSpend(row[ColSpend])
	if err != nil {
		return experiment.Record{}, apperrors.DataError("row %d, column %s: %v", line, ColSpend, err)
	}

	return experiment.NewRecord(core.RecordID(i), arm, visit, conversion, spend, numeric, categorical), nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes":
		return true, nil
	case "0", "0.0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a 0/1 flag: %q", s)
}


// parseSpend allows a blank or NaN cell, kept as NaN and dropped by the spend test
func parseSpend(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative spend %v", v)
	}
	return v, nil
}
