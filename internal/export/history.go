package export

import (
	"context"
	"fmt"
	"time"

	sheets "google.golang.org/api/sheets/v4"
)

const historySheet = "History"

var historyHeader = []any{
	"Date", "Generated at", "Platform", "Holdings", "Daily", "Monthly", "1Y", "5Y",
}

// buildHistoryRows returns one row per platform for an export made at at.
func buildHistoryRows(r Report, at time.Time) [][]any {
	date := at.UTC().Format("02.01.2006")
	rows := make([][]any, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		rows = append(rows, []any{
			date, r.GeneratedAt, p.ID, p.Holdings,
			ptrFloat(p.DailyChange),
			ptrFloat(p.MonthlyChange),
			ptrFloat(p.Return1Y),
			ptrFloat(p.Return5Y),
		})
	}
	return rows
}

// appendHistory ensures the History sheet exists, writes the header when the
// sheet is new or empty, then appends one row per platform.
func (w *SheetsWriter) appendHistory(ctx context.Context, r Report) error {
	if len(r.Platforms) == 0 {
		return nil
	}

	meta, err := w.ensureSheets(ctx, historySheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", historySheet, err)
	}

	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, historySheet+"!A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{historyHeader}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
		if err := w.formatHistory(ctx, meta[historySheet]); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:H",
		&sheets.ValueRange{Values: buildHistoryRows(r, time.Now())},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s rows: %w", historySheet, err)
	}
	return nil
}

// formatHistory gives the header a light-green bold look, freezes it and
// formats the metric columns as percentages.
func (w *SheetsWriter) formatHistory(ctx context.Context, h sheetMeta) error {
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}
	totalCols := int64(len(historyHeader))

	reqs := []*sheets.Request{
		cellFormatReq(h.id, 0, 1, 0, totalCols,
			&sheets.CellFormat{
				BackgroundColor:     lightGreen,
				TextFormat:          &sheets.TextFormat{Bold: true},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		cellFormatReq(h.id, 1, 10000, 0, 1,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "d.m.yyyy"}},
			"userEnteredFormat.numberFormat"),
		cellFormatReq(h.id, 1, 10000, 4, totalCols,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "PERCENT", Pattern: "0.00%"}},
			"userEnteredFormat.numberFormat"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        h.id,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}
	for _, bid := range h.bandingIDs {
		reqs = append(reqs, &sheets.Request{
			DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: bid},
		})
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
