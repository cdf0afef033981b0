// Package export writes the loaded holdings to spreadsheet destinations.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/state"
)

// ErrNotReady is returned when the state has no loaded snapshot to export.
var ErrNotReady = errors.New("portfolio data is not loaded")

// HoldingRow is one exported holding.
type HoldingRow struct {
	PlatformID    string
	PlatformName  string
	Ticker        string
	Name          string
	Currency      string
	Weight        float64
	LatestPrice   *float64
	DailyChange   *float64
	MonthlyChange *float64
	Return1Y      *float64
	Return5Y      *float64
	MissingData   bool
}

// PlatformRow holds the aggregates of one platform.
type PlatformRow struct {
	ID            string
	Name          string
	Holdings      int
	TotalWeight   float64
	DailyChange   *float64
	MonthlyChange *float64
	Return1Y      *float64
	Return5Y      *float64
}

// Report is everything a writer needs.
type Report struct {
	GeneratedAt string
	Currency    string
	Platforms   []PlatformRow
	Holdings    []HoldingRow
}

// Writer writes a report to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, r Report) error
}

// Rows flattens the platforms and holdings of s in snapshot order.
func Rows(s state.State) Report {
	r := Report{GeneratedAt: s.GeneratedAt, Currency: s.Currency}
	for _, p := range s.Platforms {
		total, _ := domain.TotalWeight(p).Float64()
		r.Platforms = append(r.Platforms, PlatformRow{
			ID:            p.ID,
			Name:          p.Name,
			Holdings:      len(p.Holdings),
			TotalWeight:   total,
			DailyChange:   domain.WeightedMetric(p, domain.MetricDailyChange),
			MonthlyChange: p.MetricOrSummary(domain.MetricMonthlyChange),
			Return1Y:      p.MetricOrSummary(domain.MetricReturn1Y),
			Return5Y:      p.MetricOrSummary(domain.MetricReturn5Y),
		})
		r.Holdings = append(r.Holdings, lo.Map(p.Holdings, func(h domain.Holding, _ int) HoldingRow {
			return HoldingRow{
				PlatformID:    p.ID,
				PlatformName:  p.Name,
				Ticker:        h.Ticker,
				Name:          h.DisplayName,
				Currency:      lo.CoalesceOrEmpty(h.Currency, s.Currency),
				Weight:        h.Weight,
				LatestPrice:   h.LatestPrice,
				DailyChange:   h.Metrics.DailyChangePct,
				MonthlyChange: h.Metrics.MonthlyChangePct,
				Return1Y:      h.Metrics.Return1Y,
				Return5Y:      h.Metrics.Return5Y,
				MissingData:   h.Status != nil && h.Status.MissingData,
			}
		})...)
	}
	return r
}

// Service fans a report out to every configured writer.
type Service struct {
	writers []Writer
}

// NewService creates an export Service. Nil writers are skipped.
func NewService(writers ...Writer) *Service {
	return &Service{writers: lo.Filter(writers, func(w Writer, _ int) bool { return w != nil })}
}

// Export builds the report from s and hands it to each writer. A failing writer
// does not stop the others; all failures are returned joined.
func (s *Service) Export(ctx context.Context, st state.State) error {
	if st.Status != state.StatusReady && st.Status != state.StatusRefreshing {
		return ErrNotReady
	}
	if len(s.writers) == 0 {
		return errors.New("no export destination configured")
	}

	report := Rows(st)
	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, report); err != nil {
			slog.Warn("export: writer failed", "writer", fmt.Sprintf("%T", w), "error", err)
			errs = append(errs, err)
		}
	}
	slog.Info("export: finished", "holdings", len(report.Holdings), "writers", len(s.writers), "failed", len(errs))
	return errors.Join(errs...)
}

func ptrFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
