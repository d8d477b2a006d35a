// Package charts renders dashboard chart specs as standalone SVG documents
// for download and for clients without JavaScript.
package charts

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"donorboard/internal/dashboard"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ContentType is the media type written by Render.
const ContentType = "image/svg+xml"

var ErrNoData = errors.New("chart has no data to draw")

// palette cycles through slices and bars.
var palette = []drawing.Color{
	drawing.ColorFromHex("4c78a8"),
	drawing.ColorFromHex("f58518"),
	drawing.ColorFromHex("54a24b"),
	drawing.ColorFromHex("e45756"),
	drawing.ColorFromHex("72b7b2"),
	drawing.ColorFromHex("eeca3b"),
	drawing.ColorFromHex("b279a2"),
	drawing.ColorFromHex("9d755d"),
}

// Render writes spec as SVG. Pie and doughnut specs with no positive value,
// and bar specs with no bars, return ErrNoData.
func Render(w io.Writer, spec dashboard.ChartSpec) error {
	if len(spec.Values) == 0 || len(spec.Values) != len(spec.Labels) {
		return ErrNoData
	}
	var r interface {
		Render(chart.RendererProvider, io.Writer) error
	}
	switch spec.Type {
	case "pie", "doughnut":
		values := sliceValues(spec)
		if len(values) == 0 {
			return ErrNoData
		}
		if spec.Type == "pie" {
			r = &chart.PieChart{
				Title:  spec.Title,
				Width:  spec.Width,
				Height: spec.Height,
				Values: values,
			}
		} else {
			r = &chart.DonutChart{
				Title:  spec.Title,
				Width:  spec.Width,
				Height: spec.Height,
				Values: values,
			}
		}
	case "bar":
		r = barChart(spec)
	default:
		return fmt.Errorf("unsupported chart type %q", spec.Type)
	}
	if err := r.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", spec.Name, err)
	}
	return nil
}

// sliceValues drops zero slices, which would draw nothing.
func sliceValues(spec dashboard.ChartSpec) []chart.Value {
	var out []chart.Value
	for i, v := range spec.Values {
		if v <= 0 {
			continue
		}
		out = append(out, chart.Value{
			Label: fmt.Sprintf("%s (%s)", spec.Labels[i], dashboard.Count(int(v))),
			Value: v,
			Style: chart.Style{FillColor: palette[i%len(palette)], StrokeColor: drawing.ColorWhite},
		})
	}
	return out
}

func barChart(spec dashboard.ChartSpec) *chart.BarChart {
	bars := make([]chart.Value, len(spec.Values))
	minValue, maxValue := 0.0, 0.0
	for i, v := range spec.Values {
		label := spec.Labels[i]
		if spec.Histogram {
			// Bin labels are "start – end"; the start date is enough on the axis.
			label, _, _ = strings.Cut(label, " ")
		}
		if i < len(spec.ValueLabels) {
			label += ": " + spec.ValueLabels[i]
		}
		color := palette[0]
		if !spec.Histogram {
			color = palette[i%len(palette)]
		}
		bars[i] = chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		}
		minValue = min(minValue, v)
		maxValue = max(maxValue, v)
	}

	barWidth := 60
	spacing := 20
	if spec.Histogram {
		barWidth = max((spec.Width-120)/len(bars), 8)
		spacing = 1
	}

	c := &chart.BarChart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Name: spec.YTitle,
			Style: chart.Style{
				FontSize: 8,
			},
		},
		Bars: bars,
	}
	if spec.Gridlines {
		c.YAxis.GridMajorStyle = chart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1}
	}
	// Bars grow from zero; a flat zero series still needs a non-empty range.
	bottom, top := minValue*1.1, maxValue*1.1
	if top-bottom <= 0 {
		top = 1
	}
	c.YAxis.Range = &chart.ContinuousRange{Min: bottom, Max: top}
	return c
}
