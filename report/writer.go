package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/giygas/pharmacy-validator/entities"
	"github.com/xuri/excelize/v2"
)

// DefaultFileName is the name offered for the downloaded report
const DefaultFileName = "validated_clients"

const sheetName = "Validated Clients"

// Write serialises results with the PharmacyName, BestMatch, MatchScore,
// Status header, one row per result in the given order
func Write(w io.Writer, format Format, results []entities.Result) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, results)
	case FormatXLSX:
		return writeXLSX(w, results)
	}
	return fmt.Errorf("unsupported report format %q", format)
}

func row(r entities.Result) []string {
	return []string{r.PharmacyName, r.BestMatch, strconv.Itoa(r.MatchScore), r.Status}
}

func writeCSV(w io.Writer, results []entities.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(entities.ReportColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV report: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, results []entities.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet so the workbook has a single sheet
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range entities.ReportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{r.PharmacyName, r.BestMatch, r.MatchScore, r.Status}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 40)
	_ = f.SetColWidth(sheetName, "C", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "D", 30)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel report: %w", err)
	}
	return nil
}
