package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToDraw is returned by RenderPNG for charts without drawable points.
var ErrNothingToDraw = errors.New("chart has nothing to draw")

const (
	DefaultWidth  = 1024
	DefaultHeight = 480
	maxXTicks     = 8
)

// RenderPNG draws c as a PNG image. Non-positive sizes use the defaults.
func RenderPNG(w io.Writer, c Chart, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if c.Empty() {
		return ErrNothingToDraw
	}

	switch c.Kind {
	case KindBar:
		return renderBar(w, c, width, height)
	default:
		return renderLine(w, c, width, height)
	}
}

func renderLine(w io.Writer, c Chart, width, height int) error {
	var series []gochart.Series
	for _, s := range c.Series {
		var xs, ys []float64
		for i, v := range s.Data {
			// gaps are skipped, the line spans them
			if v == nil || math.IsNaN(*v) {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, *v)
		}
		if len(xs) < 2 {
			continue
		}
		series = append(series, gochart.ContinuousSeries{
			Name: s.Label,
			Style: gochart.Style{
				StrokeColor: hexColor(s.BorderColor),
				StrokeWidth: 2.25,
			},
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return ErrNothingToDraw
	}

	ch := gochart.Chart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Ticks: xTicks(c.Labels)},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("rendering line chart: %w", err)
	}
	return nil
}

// xTicks spreads at most maxXTicks labels over the axis, truncated to a date.
func xTicks(labels []string) []gochart.Tick {
	if len(labels) == 0 {
		return nil
	}
	step := max(1, (len(labels)+maxXTicks-1)/maxXTicks)
	var ticks []gochart.Tick
	for i := 0; i < len(labels); i += step {
		label := labels[i]
		if len(label) > 10 {
			label = label[:10]
		}
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
	}
	return ticks
}

func renderBar(w io.Writer, c Chart, width, height int) error {
	bars := c.Series[0]
	values := make([]gochart.Value, 0, len(bars.Data))
	for i, v := range bars.Data {
		if i >= len(c.Labels) {
			break
		}
		value := 0.0
		if v != nil {
			value = *v
		}
		color := drawing.ColorBlue
		if i < len(bars.Colors) {
			color = rgbaColor(bars.Colors[i])
		}
		values = append(values, gochart.Value{
			Label: c.Labels[i],
			Value: value,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if len(values) == 0 {
		return ErrNothingToDraw
	}

	const barSpacing = 8
	barWidth := min(80, max(4, (width-150)/len(values)-barSpacing))
	ch := gochart.BarChart{
		Title:        c.Title,
		Width:        width,
		Height:       height,
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		Background:   gochart.Style{Padding: gochart.Box{Top: 40, Bottom: 16}},
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: gochart.YAxis{
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f*100)
				}
				return ""
			},
		},
		Bars: values,
	}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("rendering bar chart: %w", err)
	}
	return nil
}

func hexColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(hex, "#")
	if hex == "" {
		return drawing.ColorBlue
	}
	return drawing.ColorFromHex(hex)
}

func rgbaColor(s string) drawing.Color {
	var r, g, b uint8
	var a float64
	if _, err := fmt.Sscanf(s, "rgba(%d, %d, %d, %g)", &r, &g, &b, &a); err != nil {
		return drawing.ColorBlue
	}
	return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
}
