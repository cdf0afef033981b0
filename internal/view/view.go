// Package view builds the textual dashboard: per-platform metric cards,
// holdings tables and the last-update line.
package view

import (
	"cmp"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/state"
)

// Platforms listed first in the holdings tables, after the active one.
var preferredOrder = []string{"racional", "fintual"}

// Card is one summary figure.
type Card struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Footnote string `json:"footnote"`
	Trend    string `json:"trend"`
}

// MetricRow is the card row of one platform.
type MetricRow struct {
	PlatformID string `json:"platform_id"`
	Name       string `json:"name"`
	Meta       string `json:"meta"`
	Cards      []Card `json:"cards"`
}

// HoldingRow is one line of a holdings table.
type HoldingRow struct {
	Ticker   string `json:"ticker"`
	Link     string `json:"link,omitempty"`
	Name     string `json:"name"`
	Weight   string `json:"weight"`
	Monthly  Cell   `json:"monthly_change"`
	Return1Y Cell   `json:"return_1y"`
	Return5Y Cell   `json:"return_5y"`
}

// Cell is a formatted figure with its trend class.
type Cell struct {
	Value string `json:"value"`
	Trend string `json:"trend"`
}

// HoldingsTable lists the holdings of one platform.
type HoldingsTable struct {
	PlatformID string       `json:"platform_id"`
	Title      string       `json:"title"`
	Active     bool         `json:"active"`
	Rows       []HoldingRow `json:"rows"`
}

// Model is everything the dashboard shows besides the chart.
type Model struct {
	Status     state.Status    `json:"status"`
	Error      string          `json:"error,omitempty"`
	LastUpdate string          `json:"last_update"`
	Metrics    []MetricRow     `json:"metrics"`
	Tables     []HoldingsTable `json:"tables"`
}

// Build derives the view model of s. Timestamps are shown in loc.
func Build(s state.State, loc *time.Location) Model {
	m := Model{
		Status:     s.Status,
		Error:      s.Error,
		LastUpdate: LastUpdate(s, loc),
	}
	if s.Status == state.StatusReady || s.Status == state.StatusRefreshing {
		m.Metrics = MetricRows(s)
		m.Tables = HoldingsTables(s)
	}
	return m
}

// LastUpdate describes the snapshot timestamp and, when it changed, the previous one.
func LastUpdate(s state.State, loc *time.Location) string {
	current := FormatDateTime(s.GeneratedAt, loc)
	if s.PreviousGeneratedAt != "" && s.PreviousGeneratedAt != s.GeneratedAt {
		return fmt.Sprintf("Last update: %s · Previous: %s", current, FormatDateTime(s.PreviousGeneratedAt, loc))
	}
	return "Last update: " + current
}

// MetricRows returns one card row per platform in document order. Monthly,
// 1Y and 5Y figures prefer the precomputed summary averages.
func MetricRows(s state.State) []MetricRow {
	currency := cmp.Or(s.Currency, "USD")
	rows := make([]MetricRow, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		daily := domain.WeightedMetric(p, domain.MetricDailyChange)
		monthly := p.MetricOrSummary(domain.MetricMonthlyChange)
		r1y := p.MetricOrSummary(domain.MetricReturn1Y)
		r5y := p.MetricOrSummary(domain.MetricReturn5Y)

		rows = append(rows, MetricRow{
			PlatformID: p.ID,
			Name:       cmp.Or(p.Name, p.ID),
			Meta:       fmt.Sprintf("%d assets · Currency %s", len(p.Holdings), currency),
			Cards: []Card{
				card("Daily change", daily, "Weighted average of the day"),
				card("Monthly change", monthly, "Last 30 days"),
				card("1-year return", r1y, "1Y horizon"),
				card("5-year return", r5y, "5Y horizon"),
			},
		})
	}
	return rows
}

func card(label string, v *float64, footnote string) Card {
	return Card{Label: label, Value: FormatPercent(v, true), Footnote: footnote, Trend: TrendClass(v)}
}

// HoldingsTables returns one table per platform: the active platform first,
// then the preferred platforms, then the rest by name.
func HoldingsTables(s state.State) []HoldingsTable {
	platforms := slices.Clone(s.Platforms)
	slices.SortStableFunc(platforms, func(a, b domain.Platform) int {
		return cmp.Or(
			cmp.Compare(rank(a.ID, s.ActivePlatformID), rank(b.ID, s.ActivePlatformID)),
			strings.Compare(a.Name, b.Name),
		)
	})

	tables := make([]HoldingsTable, 0, len(platforms))
	for _, p := range platforms {
		tables = append(tables, HoldingsTable{
			PlatformID: p.ID,
			Title:      cmp.Or(p.Name, p.ID),
			Active:     p.ID == s.ActivePlatformID,
			Rows:       holdingRows(p),
		})
	}
	return tables
}

func rank(id, active string) int {
	if id != "" && id == active {
		return 0
	}
	if i := slices.Index(preferredOrder, id); i >= 0 {
		return i + 1
	}
	return len(preferredOrder) + 1
}

func holdingRows(p domain.Platform) []HoldingRow {
	rows := make([]HoldingRow, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		ticker := cmp.Or(h.Ticker, Missing)
		row := HoldingRow{
			Ticker:   ticker,
			Name:     cmp.Or(h.DisplayName, Missing),
			Weight:   FormatPercent(&h.Weight, false),
			Monthly:  cell(h.Metrics.MonthlyChangePct),
			Return1Y: cell(h.Metrics.Return1Y),
			Return5Y: cell(h.Metrics.Return5Y),
		}
		if ticker != Missing {
			row.Link = "https://finance.yahoo.com/quote/" + url.PathEscape(ticker) + "/"
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(v *float64) Cell {
	return Cell{Value: FormatPercent(v, true), Trend: TrendClass(v)}
}

// Render writes the dashboard as plain text.
func Render(w io.Writer, s state.State, loc *time.Location) error {
	m := Build(s, loc)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, m.LastUpdate)
	fmt.Fprintln(tw)

	switch m.Status {
	case state.StatusLoading:
		fmt.Fprintln(tw, "Loading data...")
		return tw.Flush()
	case state.StatusError:
		fmt.Fprintf(tw, "Error: %s\n", cmp.Or(m.Error, "could not load the data"))
		fmt.Fprintln(tw, "Holdings could not be loaded. Try refreshing.")
		return tw.Flush()
	}

	if len(m.Metrics) == 0 {
		fmt.Fprintln(tw, "No data. Run a refresh to see the metrics.")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "Platform\tDaily\tMonthly\t1Y\t5Y\t")
	for _, row := range m.Metrics {
		fmt.Fprintf(tw, "%s\t", row.Name)
		for _, c := range row.Cards {
			fmt.Fprintf(tw, "%s\t", c.Value)
		}
		fmt.Fprintln(tw)
	}

	for _, table := range m.Tables {
		marker := ""
		if table.Active {
			marker = " *"
		}
		fmt.Fprintf(tw, "\n%s%s\n", table.Title, marker)
		fmt.Fprintln(tw, "Ticker\tName\t% Portfolio\tMonthly\t1Y\t5Y\t")
		if len(table.Rows) == 0 {
			fmt.Fprintln(tw, "No data available for this platform.")
			continue
		}
		for _, r := range table.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
				r.Ticker, r.Name, r.Weight, r.Monthly.Value, r.Return1Y.Value, r.Return5Y.Value)
		}
	}
	return tw.Flush()
}
