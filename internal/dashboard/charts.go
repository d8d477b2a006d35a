package dashboard

import (
	"context"
	"errors"
	"fmt"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
)

// Chart view names. They double as the /api/charts and /charts routes.
const (
	ChartGiftFrequency = analytics.ViewGiftFrequency
	ChartTimeline      = analytics.ViewTimeline
	ChartYearlyTotals  = analytics.ViewYearlyTotals
	ChartAttendance    = analytics.ViewAttendance
)

// ChartNames lists every chart in section order.
var ChartNames = []string{ChartGiftFrequency, ChartTimeline, ChartYearlyTotals, ChartAttendance}

// ChartSpec is the client-side description of one chart.
type ChartSpec struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	// ValueLabels are printed on each bar when set.
	ValueLabels []string `json:"value_labels,omitempty"`
	XTitle      string   `json:"x_title,omitempty"`
	YTitle      string   `json:"y_title,omitempty"`
	// HoleFraction is the doughnut hole radius relative to the chart.
	HoleFraction float64 `json:"hole_fraction,omitempty"`
	Gridlines    bool    `json:"gridlines"`
	// Histogram bars touch.
	Histogram bool `json:"histogram,omitempty"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
}

func GiftFrequencyChart(counts []analytics.Count) ChartSpec {
	spec := ChartSpec{
		Name:   ChartGiftFrequency,
		Type:   "pie",
		Title:  "Distribution of Yearly Gift Frequencies",
		Width:  600,
		Height: 500,
	}
	spec.Labels, spec.Values = countSeries(counts)
	return spec
}

func AttendanceChart(counts []analytics.Count) ChartSpec {
	spec := ChartSpec{
		Name:         ChartAttendance,
		Type:         "doughnut",
		Title:        "Event Attendance Representation",
		HoleFraction: 0.6,
		Width:        500,
		Height:       500,
	}
	spec.Labels, spec.Values = countSeries(counts)
	return spec
}

func TimelineChart(h analytics.Histogram) ChartSpec {
	spec := ChartSpec{
		Name:      ChartTimeline,
		Type:      "bar",
		Title:     "Timeline of Last Gifts by Date",
		XTitle:    "Date of Last Gift",
		YTitle:    "Number of Gifts",
		Gridlines: true,
		Histogram: true,
		Width:     800,
		Height:    500,
	}
	for _, b := range h.Bins {
		spec.Labels = append(spec.Labels, fmt.Sprintf("%s – %s", b.Start.Format(dateLayout), b.End.Format(dateLayout)))
		spec.Values = append(spec.Values, float64(b.Count))
	}
	return spec
}

func YearlyTotalsChart(totals []analytics.ColumnAmount) ChartSpec {
	spec := ChartSpec{
		Name:      ChartYearlyTotals,
		Type:      "bar",
		Title:     "Total Donations by Year",
		XTitle:    "Year",
		YTitle:    "Donation Amount",
		Gridlines: true,
		Width:     600,
		Height:    500,
	}
	for _, t := range totals {
		spec.Labels = append(spec.Labels, t.Column)
		spec.Values = append(spec.Values, t.Amount.Decimal.InexactFloat64())
		spec.ValueLabels = append(spec.ValueLabels, Amount(t.Amount))
	}
	return spec
}

func countSeries(counts []analytics.Count) ([]string, []float64) {
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = c.Label
		values[i] = float64(c.Count)
	}
	return labels, values
}

var ErrUnknownChart = errors.New("unknown chart")

// BuildChart computes only the view behind the named chart.
func BuildChart(ctx context.Context, e *analytics.Engine, t *core.Table, name string) (ChartSpec, error) {
	switch name {
	case ChartGiftFrequency:
		r := e.GiftFrequency(ctx, t)
		if r.Err != nil {
			return ChartSpec{}, r.Err
		}
		return GiftFrequencyChart(r.Value), nil
	case ChartTimeline:
		r := e.Timeline(ctx, t)
		if r.Err != nil {
			return ChartSpec{}, r.Err
		}
		return TimelineChart(r.Value), nil
	case ChartYearlyTotals:
		r := e.YearlyTotals(ctx, t)
		if r.Err != nil {
			return ChartSpec{}, r.Err
		}
		return YearlyTotalsChart(r.Value), nil
	case ChartAttendance:
		r := e.Attendance(ctx, t)
		if r.Err != nil {
			return ChartSpec{}, r.Err
		}
		return AttendanceChart(r.Value), nil
	}
	return ChartSpec{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}
