// Package report reads the client list to validate and writes the annotated
// report, as CSV or as an Excel workbook.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/giygas/pharmacy-validator/entities"
	"github.com/xuri/excelize/v2"
)

// Format is a supported table file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name ("csv", "XLSX") with or without a
// leading dot
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv", "":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", &SchemaError{Reason: fmt.Sprintf("unsupported file format %q, expected csv or xlsx", s)}
}

// FormatFromPath infers the format from a file name extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType is the MIME type used when the report is downloaded
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// SchemaError reports an input table that cannot be validated at all: the
// file is unreadable or the name column is missing
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError reports whether err, or any error it wraps, is a SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ReadRecords reads a table with a header row and returns one record per data
// row, taking the name from column. Every other column is ignored. Rows that
// are shorter than the header give an empty name.
func ReadRecords(r io.Reader, format Format, column string) ([]entities.InputRecord, error) {
	var (
		rows [][]string
		err  error
	)

	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, &SchemaError{Reason: fmt.Sprintf("unsupported file format %q", format)}
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("file is empty, expected a header row with a %q column", column)}
	}

	idx := columnIndex(rows[0], column)
	if idx < 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("file must contain a column named %q", column)}
	}

	records := make([]entities.InputRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var name string
		if idx < len(row) {
			name = strings.TrimSpace(row[idx])
		}
		records = append(records, entities.InputRecord{PharmacyName: name})
	}

	return records, nil
}

func columnIndex(header []string, column string) int {
	for i, h := range header {
		// a UTF-8 BOM sticks to the first header cell of files saved by Excel
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == column {
			return i
		}
	}
	return -1
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &SchemaError{Reason: "failed to read CSV file", Err: err}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &SchemaError{Reason: "failed to read Excel file", Err: err}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &SchemaError{Reason: "failed to open Excel file", Err: err}
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, &SchemaError{Reason: "no sheets found in Excel file"}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &SchemaError{Reason: "failed to get rows", Err: err}
	}
	return rows, nil
}
