package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	holdingsSheet  = "Holdings"
	platformsSheet = "Platforms"
)

var holdingsHeader = []any{
	"Platform", "Ticker", "Name", "Currency", "Weight", "Latest price",
	"Daily", "Monthly", "1Y", "5Y", "Missing data",
}

var platformsHeader = []any{
	"Platform", "Name", "Holdings", "Total weight", "Daily", "Monthly", "1Y", "5Y",
}

// XLSXWriter writes the report to a local workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer targeting path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write replaces the workbook at path with a Holdings and a Platforms sheet.
func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(platformsSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", platformsSheet, err)
	}

	if err := writeSheet(f, holdingsSheet, holdingsValues(r)); err != nil {
		return err
	}
	if err := writeSheet(f, platformsSheet, platformValues(r)); err != nil {
		return err
	}
	if err := formatSheet(f, holdingsSheet, len(holdingsHeader), len(r.Holdings), "E", "G", "J"); err != nil {
		return err
	}
	if err := formatSheet(f, platformsSheet, len(platformsHeader), len(r.Platforms), "D", "E", "H"); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, values [][]any) error {
	for i, row := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// formatSheet bolds the header, freezes it and applies a percent format to the
// columns from pctFrom to pctTo. weightCol also gets the percent format.
func formatSheet(f *excelize.File, sheet string, cols, rows int, weightCol, pctFrom, pctTo string) error {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9EAD3"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", header); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing %s header: %w", sheet, err)
	}
	if rows == 0 {
		return nil
	}

	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return fmt.Errorf("creating percent style: %w", err)
	}
	last := fmt.Sprint(rows + 1)
	if err := f.SetCellStyle(sheet, weightCol+"2", weightCol+last, pct); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, pctFrom+"2", pctTo+last, pct)
}

func holdingsValues(r Report) [][]any {
	values := make([][]any, 0, len(r.Holdings)+1)
	values = append(values, holdingsHeader)
	for _, h := range r.Holdings {
		values = append(values, []any{
			h.PlatformID, h.Ticker, h.Name, h.Currency, h.Weight,
			ptrFloat(h.LatestPrice),
			ptrFloat(h.DailyChange),
			ptrFloat(h.MonthlyChange),
			ptrFloat(h.Return1Y),
			ptrFloat(h.Return5Y),
			h.MissingData,
		})
	}
	return values
}

func platformValues(r Report) [][]any {
	values := make([][]any, 0, len(r.Platforms)+1)
	values = append(values, platformsHeader)
	for _, p := range r.Platforms {
		values = append(values, []any{
			p.ID, p.Name, p.Holdings, p.TotalWeight,
			ptrFloat(p.DailyChange),
			ptrFloat(p.MonthlyChange),
			ptrFloat(p.Return1Y),
			ptrFloat(p.Return5Y),
		})
	}
	return values
}
