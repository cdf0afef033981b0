// Package chart turns the application state into chart payloads and renders
// them as PNG images.
package chart

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/state"
)

// Kind is the chart type.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

var palette = []string{
	"#3366CC", "#DC3912", "#FF9900", "#109618", "#990099",
	"#0099C6", "#DD4477", "#66AA00", "#B82E2E", "#316395",
	"#994499", "#22AA99", "#AAAA11", "#6633CC", "#E67300",
	"#8B0707", "#651067", "#329262", "#5574A6", "#3B3EAC",
}

const notReadyPlaceholder = "Charts will appear once the data is ready."

// Series is one line of a line chart, or the single bar set of a bar chart.
type Series struct {
	Label           string     `json:"label"`
	FullLabel       string     `json:"full_label,omitempty"`
	Data            []*float64 `json:"data"`
	BorderColor     string     `json:"border_color,omitempty"`
	BackgroundColor string     `json:"background_color,omitempty"`
	Colors          []string   `json:"colors,omitempty"`
}

// Chart is a renderable chart payload.
type Chart struct {
	Kind   Kind     `json:"kind"`
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Empty reports whether the chart has nothing to draw.
func (c Chart) Empty() bool {
	return len(c.Labels) == 0 || len(c.Series) == 0
}

type modeSpec struct {
	title       string
	histogram   string
	placeholder string
}

var modes = map[state.ChartMode]modeSpec{
	state.ChartTimeseries:    {"Normalized value (5 years)", "", "No series available for the selected platform."},
	state.ChartMonthlyChange: {"Monthly change", "monthly_change", "No monthly change data for this selection."},
	state.ChartReturn1Y:      {"1-year return", "return_1y", "No 1-year return data for this selection."},
	state.ChartReturn5Y:      {"5-year return", "return_5y", "No 5-year return data for this selection."},
}

// Build returns the chart for the state's chart mode. When there is nothing
// to draw the chart is empty and the second value explains why.
func Build(s state.State) (Chart, string) {
	if s.Status != state.StatusReady && s.Status != state.StatusRefreshing {
		return Chart{}, notReadyPlaceholder
	}

	mode := s.ChartMode
	spec, ok := modes[mode]
	if !ok {
		mode, spec = state.ChartTimeseries, modes[state.ChartTimeseries]
	}

	var c Chart
	if mode == state.ChartTimeseries {
		c = buildTimeseries(s)
	} else {
		c = buildHistogram(s, spec.histogram)
	}
	c.Title = spec.title
	if c.Empty() {
		return c, spec.placeholder
	}
	return c, ""
}

// byPlatform keeps the items of the active platform. When no platform is
// active, or none of the items belong to it, every item is kept.
func byPlatform[T any](items []T, active string, platformOf func(T) string) []T {
	if active == "" {
		return items
	}
	filtered := lo.Filter(items, func(item T, _ int) bool {
		return platformOf(item) == active
	})
	if len(filtered) == 0 {
		return items
	}
	return filtered
}

func buildTimeseries(s state.State) Chart {
	ts := s.Charts.Timeseries5Y
	c := Chart{Kind: KindLine}
	if ts == nil {
		return c
	}

	datasets := byPlatform(ts.Datasets, s.ActivePlatformID, func(d domain.Dataset) string {
		return d.PlatformID
	})

	colors := newColorAssigner()
	c.Labels = ts.Labels
	c.Series = lo.Map(datasets, func(d domain.Dataset, _ int) Series {
		ticker := datasetTicker(d)
		key := d.ID
		if key == "" {
			key = ticker + "-" + lo.Ternary(d.PlatformID != "", d.PlatformID, "default")
		}
		color := colors.colorFor(key)
		background := d.BackgroundColor
		if background == "" {
			background = HexToRGBA(color, 0.12)
		}
		return Series{
			Label:           ticker,
			FullLabel:       lo.Ternary(d.Label != "", d.Label, ticker),
			Data:            d.Data,
			BorderColor:     color,
			BackgroundColor: background,
		}
	})
	return c
}

func datasetTicker(d domain.Dataset) string {
	if d.ID != "" {
		return d.ID
	}
	if d.Label != "" {
		ticker, _, _ := strings.Cut(d.Label, "·")
		return strings.TrimSpace(ticker)
	}
	return d.PlatformID
}

var whitespace = regexp.MustCompile(`\s+`)

func buildHistogram(s state.State, key string) Chart {
	c := Chart{Kind: KindBar}
	entries := s.Charts.Histograms[key]
	if len(entries) == 0 {
		return c
	}

	entries = byPlatform(entries, s.ActivePlatformID, func(e domain.HistogramEntry) string {
		return e.PlatformID
	})

	colors := newColorAssigner()
	bars := Series{Label: modes[state.ChartMode(key)].title}
	for _, e := range entries {
		label := lo.CoalesceOrEmpty(e.Label, e.Ticker, "--")
		c.Labels = append(c.Labels, whitespace.ReplaceAllString(label, " "))
		bars.Data = append(bars.Data, domain.Float(e.Value))
		bars.Colors = append(bars.Colors, HexToRGBA(colors.colorFor(lo.CoalesceOrEmpty(e.Ticker, e.Label, e.PlatformID)), 0.85))
	}
	c.Series = []Series{bars}
	return c
}

// colorAssigner hands out palette colors by key in first-seen order.
type colorAssigner struct {
	byKey map[string]string
}

func newColorAssigner() *colorAssigner {
	return &colorAssigner{byKey: make(map[string]string)}
}

func (a *colorAssigner) colorFor(key string) string {
	next := palette[len(a.byKey)%len(palette)]
	if key == "" {
		return next
	}
	if c, ok := a.byKey[key]; ok {
		return c
	}
	a.byKey[key] = next
	return next
}

// HexToRGBA converts "#RRGGBB" to a CSS rgba() string. Invalid input yields black.
func HexToRGBA(hex string, alpha float64) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		v = 0
	}
	r := (v >> 16) & 0xff
	g := (v >> 8) & 0xff
	b := v & 0xff
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}
