package services

import (
	"bytes"
	"fmt"

	"geodash/internal/models"

	"github.com/wcharczuk/go-chart/v2"
)

// ChartService renders the pie and bar aggregations to PNG.
type ChartService struct {
	Width  int
	Height int
}

// NewChartService creates a renderer with the dashboard chart size.
func NewChartService() *ChartService {
	return &ChartService{Width: 640, Height: 400}
}

// PiePNG renders one categorical breakdown as a pie chart.
func (c *ChartService) PiePNG(breakdown models.PieBreakdown) ([]byte, error) {
	values := make([]chart.Value, 0, len(breakdown.Slices))
	for _, s := range breakdown.Slices {
		if s.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(s.Count),
			Label: fmt.Sprintf("%s (%d)", s.Label, s.Count),
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no data for chart %q", breakdown.Field)
	}

	pie := chart.PieChart{
		Title:  breakdown.Title,
		Width:  c.Width,
		Height: c.Height,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("error rendering pie chart: %v", err)
	}
	return buf.Bytes(), nil
}

// BarPNG renders one grouped count breakdown as a bar chart. Grouped pairs
// are flattened into one labelled bar per category/series combination.
func (c *ChartService) BarPNG(breakdown models.BarBreakdown) ([]byte, error) {
	bars := make([]chart.Value, 0, len(breakdown.Groups))
	for _, g := range breakdown.Groups {
		label := g.Category
		if g.Series != "" {
			label = fmt.Sprintf("%s / %s", g.Category, g.Series)
		}
		bars = append(bars, chart.Value{Value: float64(g.Count), Label: label})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no data for chart %q", breakdown.Kind)
	}

	bar := chart.BarChart{
		Title:    breakdown.Title,
		Width:    c.Width,
		Height:   c.Height,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bar.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("error rendering bar chart: %v", err)
	}
	return buf.Bytes(), nil
}
