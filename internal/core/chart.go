package core

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultChartWidth   = 1024
	DefaultChartHeight  = 400
	DefaultChartMaxBars = 50
)

// ChartOptions controls PNG rendering of ChartData.
type ChartOptions struct {
	Width   int
	Height  int
	MaxBars int // rows rendered; <= 0 uses DefaultChartMaxBars
	Dark    bool
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width <= 0 {
		o.Width = DefaultChartWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultChartHeight
	}
	if o.MaxBars <= 0 {
		o.MaxBars = DefaultChartMaxBars
	}
	return o
}

var seriesColors = []drawing.Color{chart.ColorBlue, chart.ColorGreen}

var (
	darkBackground = drawing.ColorFromHex("1e1e1e")
	darkForeground = drawing.ColorFromHex("e0e0e0")
)

// RenderBarChart draws one bar per row and series, series side by side,
// and returns the PNG bytes. Missing values are drawn as zero.
func RenderBarChart(data *ChartData, opts ChartOptions) ([]byte, error) {
	if data == nil || len(data.Series) == 0 || len(data.Index) == 0 {
		return nil, ErrNoNumericData
	}
	opts = opts.withDefaults()

	rows := len(data.Index)
	if rows > opts.MaxBars {
		rows = opts.MaxBars
	}

	bars := make([]chart.Value, 0, rows*len(data.Series))
	lo, hi := 0.0, 0.0
	for r := 0; r < rows; r++ {
		for s, series := range data.Series {
			v := 0.0
			if p := series.Values[r]; p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) {
				v = *p
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)

			label := ""
			if s == 0 {
				label = fmt.Sprint(data.Index[r])
			}
			bars = append(bars, chart.Value{
				Value: v,
				Label: label,
				Style: chart.Style{
					FillColor:   seriesColors[s%len(seriesColors)],
					StrokeColor: seriesColors[s%len(seriesColors)],
					StrokeWidth: 1,
				},
			})
		}
	}
	if lo == hi {
		hi = lo + 1
	}

	// Size bars to fit the canvas; the y-axis labels take roughly 100px.
	slot := max((opts.Width-100)/len(bars), 2)
	barWidth := max(slot*3/4, 1)
	barSpacing := max(slot-barWidth, 1)

	bc := chart.BarChart{
		Title:        chartTitle(data),
		Width:        opts.Width,
		Height:       opts.Height,
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
	if opts.Dark {
		applyDarkTheme(&bc)
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func chartTitle(data *ChartData) string {
	title := ""
	for i, s := range data.Series {
		if i > 0 {
			title += " / "
		}
		title += s.Name
	}
	return title
}

func applyDarkTheme(bc *chart.BarChart) {
	bc.Background.FillColor = darkBackground
	bc.Canvas = chart.Style{FillColor: darkBackground}
	bc.TitleStyle = chart.Style{FontColor: darkForeground}
	bc.XAxis = chart.Style{FontColor: darkForeground, StrokeColor: darkForeground}
	bc.YAxis.Style = chart.Style{FontColor: darkForeground, StrokeColor: darkForeground}
}
