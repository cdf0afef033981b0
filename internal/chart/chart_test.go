package chart

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/state"
)

func f(v float64) *float64 { return &v }

func chartState(active string, mode state.ChartMode) state.State {
	snap := domain.Snapshot{
		GeneratedAt: "2024-01-01T00:00:00Z",
		Platforms:   []domain.Platform{{ID: "racional"}, {ID: "fintual"}, {ID: "etoro"}},
		Charts: domain.Charts{
			Timeseries5Y: &domain.Timeseries{
				Labels: []string{"2023-01-01T00:00:00", "2023-06-01", "2024-01-01"},
				Datasets: []domain.Dataset{
					{ID: "ABC", Label: "ABC · Racional", PlatformID: "racional", Data: []*float64{f(100), nil, f(120)}},
					{Label: "XYZ · Racional", PlatformID: "racional", Data: []*float64{f(100), f(95), f(90)}},
					{ID: "RISKY", PlatformID: "fintual", BackgroundColor: "#000000", Data: []*float64{f(100), f(101), f(103)}},
				},
			},
			Histograms: map[string][]domain.HistogramEntry{
				"return_1y": {
					{Ticker: "ABC", PlatformID: "racional", Label: "ABC\n Corp", Value: 0.1},
					{Ticker: "RISKY", PlatformID: "fintual", Value: -0.05},
					{PlatformID: "fintual", Value: 0.02},
				},
			},
		},
	}
	s := state.Build(context.Background(), snap, active, nil)
	return state.WithChartMode(s, mode)
}

func TestBuildNotReady(t *testing.T) {
	c, placeholder := Build(state.Initial())
	if !c.Empty() || placeholder == "" {
		t.Errorf("Build(loading) = %+v, %q", c, placeholder)
	}
}

func TestBuildTimeseriesFiltersByPlatform(t *testing.T) {
	c, placeholder := Build(chartState("racional", state.ChartTimeseries))
	if placeholder != "" {
		t.Fatalf("unexpected placeholder %q", placeholder)
	}
	if c.Kind != KindLine || len(c.Labels) != 3 {
		t.Fatalf("chart = %+v", c)
	}
	if len(c.Series) != 2 {
		t.Fatalf("series = %d, want 2 racional datasets", len(c.Series))
	}
	if c.Series[0].Label != "ABC" || c.Series[1].Label != "XYZ" {
		t.Errorf("labels = %q, %q", c.Series[0].Label, c.Series[1].Label)
	}
	if c.Series[1].FullLabel != "XYZ · Racional" {
		t.Errorf("full label = %q", c.Series[1].FullLabel)
	}
	if c.Series[0].BorderColor != palette[0] || c.Series[1].BorderColor != palette[1] {
		t.Errorf("colors = %s, %s", c.Series[0].BorderColor, c.Series[1].BorderColor)
	}
	if c.Series[0].BackgroundColor != "rgba(51, 102, 204, 0.12)" {
		t.Errorf("background = %s", c.Series[0].BackgroundColor)
	}
}

func TestBuildTimeseriesKeepsDatasetBackground(t *testing.T) {
	c, _ := Build(chartState("fintual", state.ChartTimeseries))
	if len(c.Series) != 1 || c.Series[0].BackgroundColor != "#000000" {
		t.Errorf("series = %+v", c.Series)
	}
}

// A platform without matching entries shows every entry rather than an empty chart.
func TestBuildFallsBackToAllEntries(t *testing.T) {
	c, placeholder := Build(chartState("etoro", state.ChartTimeseries))
	if placeholder != "" || len(c.Series) != 3 {
		t.Errorf("timeseries fallback: %d series, placeholder %q", len(c.Series), placeholder)
	}

	c, _ = Build(chartState("etoro", state.ChartReturn1Y))
	if len(c.Labels) != 3 {
		t.Errorf("histogram fallback: %d bars, want 3", len(c.Labels))
	}
}

func TestBuildHistogram(t *testing.T) {
	c, placeholder := Build(chartState("fintual", state.ChartReturn1Y))
	if placeholder != "" {
		t.Fatalf("unexpected placeholder %q", placeholder)
	}
	if c.Kind != KindBar || c.Title != "1-year return" {
		t.Errorf("chart = %s %q", c.Kind, c.Title)
	}
	if len(c.Labels) != 2 || c.Labels[0] != "RISKY" || c.Labels[1] != "--" {
		t.Errorf("labels = %q", c.Labels)
	}
	if got := *c.Series[0].Data[0]; got != -0.05 {
		t.Errorf("value = %v", got)
	}
	if c.Series[0].Colors[0] != "rgba(51, 102, 204, 0.85)" {
		t.Errorf("color = %s", c.Series[0].Colors[0])
	}

	c, _ = Build(chartState("racional", state.ChartReturn1Y))
	if c.Labels[0] != "ABC Corp" {
		t.Errorf("label whitespace not collapsed: %q", c.Labels[0])
	}
}

func TestBuildPlaceholders(t *testing.T) {
	tests := []struct {
		mode state.ChartMode
		want string
	}{
		{state.ChartMonthlyChange, "No monthly change data for this selection."},
		{state.ChartReturn5Y, "No 5-year return data for this selection."},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			c, placeholder := Build(chartState("racional", tt.mode))
			if !c.Empty() || placeholder != tt.want {
				t.Errorf("Build() = %+v, %q", c, placeholder)
			}
		})
	}

	s := state.Build(context.Background(), domain.Snapshot{}, "", nil)
	s = state.WithChartMode(s, state.ChartTimeseries)
	if _, placeholder := Build(s); placeholder != "No series available for the selected platform." {
		t.Errorf("timeseries placeholder = %q", placeholder)
	}
}

func TestColorAssigner(t *testing.T) {
	a := newColorAssigner()
	if a.colorFor("x") != palette[0] || a.colorFor("y") != palette[1] || a.colorFor("x") != palette[0] {
		t.Error("colors are not assigned in first-seen order")
	}
	if a.colorFor("") != palette[2] || a.colorFor("z") != palette[2] {
		t.Error("empty key should not consume a palette slot")
	}
	for i := range len(palette) {
		a.colorFor(string(rune('a' + i)))
	}
	if len(a.byKey) <= len(palette) {
		t.Fatal("expected the palette to wrap")
	}
}

func TestHexToRGBA(t *testing.T) {
	tests := []struct {
		hex   string
		alpha float64
		want  string
	}{
		{"#3366CC", 1, "rgba(51, 102, 204, 1)"},
		{"DC3912", 0.5, "rgba(220, 57, 18, 0.5)"},
		{"nope", 0.12, "rgba(0, 0, 0, 0.12)"},
	}
	for _, tt := range tests {
		if got := HexToRGBA(tt.hex, tt.alpha); got != tt.want {
			t.Errorf("HexToRGBA(%q, %v) = %q, want %q", tt.hex, tt.alpha, got, tt.want)
		}
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func TestRenderPNG(t *testing.T) {
	for _, mode := range []state.ChartMode{state.ChartTimeseries, state.ChartReturn1Y} {
		t.Run(string(mode), func(t *testing.T) {
			c, _ := Build(chartState("etoro", mode))
			var buf bytes.Buffer
			if err := RenderPNG(&buf, c, 640, 360); err != nil {
				t.Fatalf("RenderPNG() error: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngSignature) {
				t.Error("output is not a PNG image")
			}
		})
	}
}

func TestRenderPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, Chart{}, 0, 0); !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("error = %v, want ErrNothingToDraw", err)
	}

	sparse := Chart{Kind: KindLine, Labels: []string{"a", "b"}, Series: []Series{{Data: []*float64{f(1), nil}}}}
	if err := RenderPNG(&buf, sparse, 0, 0); !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("single-point series: error = %v, want ErrNothingToDraw", err)
	}
}

func TestXTicks(t *testing.T) {
	labels := make([]string, 20)
	for i := range labels {
		labels[i] = "2024-01-01T00:00:00"
	}
	ticks := xTicks(labels)
	if len(ticks) > maxXTicks {
		t.Errorf("ticks = %d, want at most %d", len(ticks), maxXTicks)
	}
	if ticks[0].Label != "2024-01-01" {
		t.Errorf("label = %q, want truncated date", ticks[0].Label)
	}
}
