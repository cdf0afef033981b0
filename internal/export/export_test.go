package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/state"
)

func f(v float64) *float64 { return &v }

func readyState() state.State {
	s := state.Initial()
	s.Status = state.StatusReady
	s.GeneratedAt = "2024-05-01T12:00:00Z"
	s.Currency = "USD"
	s.Platforms = []domain.Platform{
		{
			ID:   "racional",
			Name: "Racional",
			Summary: &domain.Summary{
				AvgReturn1Y: f(0.2),
			},
			Holdings: []domain.Holding{
				{Ticker: "VTI", DisplayName: "Vanguard Total", Weight: 0.75, LatestPrice: f(250),
					Metrics: domain.Metrics{DailyChangePct: f(0.01), Return1Y: f(0.1)}},
				{Ticker: "BND", DisplayName: "Vanguard Bond", Weight: 0.25, Currency: "CLP",
					Metrics: domain.Metrics{DailyChangePct: f(-0.01)},
					Status:  &domain.HoldingStatus{MissingData: true}},
			},
		},
		{ID: "fintual", Name: "Fintual"},
	}
	return s
}

func TestRows(t *testing.T) {
	r := Rows(readyState())

	if r.GeneratedAt != "2024-05-01T12:00:00Z" || r.Currency != "USD" {
		t.Errorf("report header = %q %q", r.GeneratedAt, r.Currency)
	}
	if len(r.Holdings) != 2 || len(r.Platforms) != 2 {
		t.Fatalf("got %d holdings, %d platforms", len(r.Holdings), len(r.Platforms))
	}

	vti, bnd := r.Holdings[0], r.Holdings[1]
	if vti.PlatformID != "racional" || vti.Currency != "USD" || *vti.LatestPrice != 250 {
		t.Errorf("VTI row = %+v", vti)
	}
	if bnd.Currency != "CLP" || !bnd.MissingData || bnd.Return1Y != nil {
		t.Errorf("BND row = %+v", bnd)
	}

	racional := r.Platforms[0]
	if racional.Holdings != 2 || racional.TotalWeight != 1 {
		t.Errorf("racional = %+v", racional)
	}
	if racional.DailyChange == nil || *racional.DailyChange != 0.005 {
		t.Errorf("daily change = %v, want weighted 0.005", racional.DailyChange)
	}
	if racional.Return1Y == nil || *racional.Return1Y != 0.2 {
		t.Errorf("1Y = %v, want summary value 0.2", racional.Return1Y)
	}

	fintual := r.Platforms[1]
	if fintual.Holdings != 0 || fintual.DailyChange != nil || fintual.Return5Y != nil {
		t.Errorf("fintual = %+v", fintual)
	}
}

type recordingWriter struct {
	reports []Report
	err     error
}

func (w *recordingWriter) Write(_ context.Context, r Report) error {
	w.reports = append(w.reports, r)
	return w.err
}

func TestServiceExport(t *testing.T) {
	failing := &recordingWriter{err: errors.New("quota exceeded")}
	ok := &recordingWriter{}

	err := NewService(failing, nil, ok).Export(context.Background(), readyState())
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("Export() error = %v", err)
	}
	if len(ok.reports) != 1 {
		t.Error("a failing writer stopped the others")
	}
}

func TestServiceExportNotReady(t *testing.T) {
	w := &recordingWriter{}
	for _, status := range []state.Status{state.StatusLoading, state.StatusError} {
		s := readyState()
		s.Status = status
		if err := NewService(w).Export(context.Background(), s); !errors.Is(err, ErrNotReady) {
			t.Errorf("status %s: error = %v, want ErrNotReady", status, err)
		}
	}
	if len(w.reports) != 0 {
		t.Error("writer called without data")
	}
}

func TestServiceExportNoWriters(t *testing.T) {
	if err := NewService().Export(context.Background(), readyState()); err == nil {
		t.Error("expected error without writers")
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "holdings.xlsx")
	if err := NewXLSXWriter(path).Write(context.Background(), Rows(readyState())); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	if got := wb.GetSheetList(); len(got) != 2 || got[0] != holdingsSheet || got[1] != platformsSheet {
		t.Errorf("sheets = %v", got)
	}

	raw := excelize.Options{RawCellValue: true}
	tests := []struct {
		sheet, cell, want string
	}{
		{holdingsSheet, "A1", "Platform"},
		{holdingsSheet, "B2", "VTI"},
		{holdingsSheet, "E2", "0.75"},
		{holdingsSheet, "G3", "-0.01"},
		{holdingsSheet, "J3", ""},
		{holdingsSheet, "K3", "1"},
		{platformsSheet, "A3", "fintual"},
		{platformsSheet, "C2", "2"},
		{platformsSheet, "G2", "0.2"},
	}
	for _, tt := range tests {
		got, err := wb.GetCellValue(tt.sheet, tt.cell, raw)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s!%s = %q, want %q", tt.sheet, tt.cell, got, tt.want)
		}
	}
}

func TestBuildHistoryRows(t *testing.T) {
	at := time.Date(2026, 2, 24, 23, 30, 0, 0, time.FixedZone("CLT", -3*3600))
	rows := buildHistoryRows(Rows(readyState()), at)

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want one per platform", len(rows))
	}
	if len(rows[0]) != len(historyHeader) {
		t.Errorf("row has %d columns, header %d", len(rows[0]), len(historyHeader))
	}
	if rows[0][0] != "25.02.2026" {
		t.Errorf("date = %v, want UTC date", rows[0][0])
	}
	if rows[0][2] != "racional" || rows[0][6] != 0.2 {
		t.Errorf("racional row = %v", rows[0])
	}
	if rows[1][4] != nil {
		t.Errorf("missing metric = %v, want nil", rows[1][4])
	}
}
