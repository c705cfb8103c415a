package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrTooFewSnapshots is returned when a chart has fewer than two points.
var ErrTooFewSnapshots = errors.New("need at least 2 snapshots to chart")

// RenderChart renders snapshot totals as a PNG line chart.
func (s *Service) RenderChart(snapshots []*models.Snapshot) ([]byte, error) {
	xValues := make([]time.Time, 0, len(snapshots))
	yValues := make([]float64, 0, len(snapshots))
	for _, snap := range snapshots {
		d, err := time.Parse(common.DateLayout, snap.Date)
		if err != nil {
			continue
		}
		xValues = append(xValues, d)
		yValues = append(yValues, snap.TotalValue)
	}
	if len(xValues) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSnapshots, len(xValues))
	}

	series := chart.TimeSeries{
		Name: "Total Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  "Portfolio Snapshots",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
