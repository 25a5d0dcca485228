// Package chart renders covid series as static PNG line charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/covid-trends/internal/covid"
)

// TickCount is the number of date labels placed along the x axis.
const TickCount = 6

// ErrNoPoints is returned when a series has no non-null values to draw.
var ErrNoPoints = errors.New("series has no plottable points")

const (
	titleFontSize = 13
	titleTop      = 10
	titleSpacing  = 6
)

// Renderer draws line charts with labels taken from a metric label table.
type Renderer struct {
	labels covid.Labels
	width  int
	height int
}

// NewRenderer creates a Renderer producing width x height images.
func NewRenderer(labels covid.Labels, width, height int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 500
	}
	return &Renderer{labels: labels, width: width, height: height}
}

// Title returns the two-line chart title.
func Title(label, areaName string, w covid.Window) string {
	return fmt.Sprintf("%s in %s\nfrom %s to %s", label, areaName, w.FromString(), w.ToString())
}

// Render draws series as a PNG. Unknown metrics are labelled with their raw key.
func (r *Renderer) Render(series covid.Series, metric, areaName string, w covid.Window) ([]byte, error) {
	xValues, yValues := points(series)
	if len(xValues) == 0 {
		return nil, ErrNoPoints
	}

	label := r.labels.Label(metric)

	graph := chart.Chart{
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    75,
				Left:   20,
				Right:  30,
				Bottom: 20,
			},
		},
		XAxis: chart.XAxis{
			Name: "date",
			NameStyle: chart.Style{
				FontSize: 11,
			},
			Style: chart.Style{
				FontSize: 8,
			},
			Ticks: Ticks(xValues[0], xValues[len(xValues)-1], TickCount),
		},
		YAxis: chart.YAxis{
			Name: label,
			NameStyle: chart.Style{
				FontSize: 11,
			},
			Style: chart.Style{
				FontSize: 7,
			},
			Range: yRange(yValues),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: label,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("1f77b4"),
					StrokeWidth: 1.5,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
		Elements: []chart.Renderable{
			multilineTitle(Title(label, areaName, w), r.width),
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// points drops days without a value.
func points(series covid.Series) ([]time.Time, []float64) {
	xValues := make([]time.Time, 0, len(series))
	yValues := make([]float64, 0, len(series))
	for _, rec := range series {
		if rec.Value == nil {
			continue
		}
		xValues = append(xValues, rec.Date)
		yValues = append(yValues, *rec.Value)
	}
	return xValues, yValues
}

// Ticks returns up to n date ticks on whole days, evenly spread from first to
// last inclusive. Short spans get one tick per day. A single day is bracketed by
// the days either side, since go-chart takes the x range from the ticks.
func Ticks(first, last time.Time, n int) []chart.Tick {
	days := int(math.Round(last.Sub(first).Hours() / 24))
	if days <= 0 {
		return []chart.Tick{
			dayTick(first.AddDate(0, 0, -1)),
			dayTick(first),
			dayTick(first.AddDate(0, 0, 1)),
		}
	}

	if n > days+1 {
		n = days + 1
	}
	if n < 2 {
		n = 2
	}

	step := float64(days) / float64(n-1)
	ticks := make([]chart.Tick, 0, n)
	for i := 0; i < n; i++ {
		offset := int(math.Round(float64(i) * step))
		ticks = append(ticks, dayTick(first.AddDate(0, 0, offset)))
	}
	return ticks
}

func dayTick(t time.Time) chart.Tick {
	return chart.Tick{Value: chart.TimeToFloat64(t), Label: t.Format(covid.DateLayout)}
}

// yRange pads a flat series so go-chart gets a non-zero y delta.
func yRange(yValues []float64) chart.Range {
	lo, hi := yValues[0], yValues[0]
	for _, v := range yValues[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi > lo {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// multilineTitle draws each line of title centred across the image; the built-in
// chart title only supports a single line.
func multilineTitle(title string, width int) chart.Renderable {
	lines := strings.Split(title, "\n")
	return func(r chart.Renderer, _ chart.Box, defaults chart.Style) {
		r.SetFont(defaults.Font)
		r.SetFontColor(drawing.ColorBlack)
		r.SetFontSize(titleFontSize)

		y := titleTop
		for _, line := range lines {
			box := r.MeasureText(line)
			y += box.Height()
			r.Text(line, (width-box.Width())/2, y)
			y += titleSpacing
		}
	}
}
