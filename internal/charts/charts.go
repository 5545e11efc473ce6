// Package charts renders the dashboard plots as SVG.
package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"profit-dashboard/internal/models"
)

const (
	width  = 10 * vg.Inch
	height = 4 * vg.Inch
)

var (
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	green  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	orange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	red    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	sky    = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	black  = color.RGBA{A: 180}
)

// Name identifies a chart for the /charts route.
type Name string

const (
	Sales     Name = "sales"
	Profit    Name = "profit"
	Units     Name = "units"
	Margin    Name = "margin"
	Predicted Name = "predicted"
)

var Names = []Name{Sales, Profit, Units, Margin, Predicted}

var titles = map[Name]string{
	Sales:     "Monthly Sales Trend",
	Profit:    "Monthly Profit Trend",
	Units:     "Monthly Units Sold Trend",
	Margin:    "Margin % Distribution by Month",
	Predicted: "Actual vs Predicted Profit",
}

func (n Name) Title() string {
	return titles[n]
}

// ParseName accepts "sales" or "sales.svg".
func ParseName(s string) (Name, error) {
	n := Name(strings.TrimSuffix(s, ".svg"))
	if _, ok := titles[n]; !ok {
		return "", fmt.Errorf("unknown chart %q", s)
	}
	return n, nil
}

// Render draws the named chart for report.
func Render(name Name, report *models.Report) ([]byte, error) {
	switch name {
	case Sales:
		return Trend(report.Monthly, Sales.Title(), "Total Sales ($)", blue,
			func(m models.MonthlySummary) float64 { return m.TotalSale })
	case Profit:
		return Trend(report.Monthly, Profit.Title(), "Total Profit ($)", green,
			func(m models.MonthlySummary) float64 { return m.TotalProfit })
	case Units:
		return Trend(report.Monthly, Units.Title(), "Units Sold", orange,
			func(m models.MonthlySummary) float64 { return m.AmountSold })
	case Margin:
		return MarginDistribution(report.Monthly, report.Rows)
	case Predicted:
		return ActualVsPredicted(report.Regression)
	default:
		return nil, fmt.Errorf("unknown chart %q", name)
	}
}

// Trend plots one monthly value as a line with point markers.
func Trend(monthly []models.MonthlySummary, title, ylabel string, c color.Color, value func(models.MonthlySummary) float64) ([]byte, error) {
	p := newPlot(title, ylabel)
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2006"}

	points := make(plotter.XYs, len(monthly))
	for i, m := range monthly {
		points[i].X = float64(m.Date.Unix())
		points[i].Y = value(m)
	}

	line, scatter, err := plotter.NewLinePoints(points)
	if err != nil {
		return nil, fmt.Errorf("build %s line: %w", title, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(2)
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}

	p.Add(line, scatter)
	return encode(p)
}

// MarginDistribution draws a box per month over the Margin% of that month's
// rows, with every row overlaid as a point.
func MarginDistribution(monthly []models.MonthlySummary, rows []models.Row) ([]byte, error) {
	p := newPlot(Margin.Title(), "Margin %")
	p.X.Label.Text = "Month"

	byMonth := make(map[models.YearMonth]plotter.Values)
	for _, r := range rows {
		byMonth[r.Period()] = append(byMonth[r.Period()], r.MarginPct)
	}

	names := make([]string, len(monthly))
	var points plotter.XYs
	for i, m := range monthly {
		names[i] = m.Label
		values := byMonth[m.Period]
		if len(values) == 0 {
			values = plotter.Values{m.MarginPct}
		}

		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), values)
		if err != nil {
			return nil, fmt.Errorf("build box for %s: %w", m.Label, err)
		}
		box.FillColor = sky
		p.Add(box)

		for _, v := range values {
			points = append(points, plotter.XY{X: float64(i), Y: v})
		}
	}

	if len(points) > 0 {
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return nil, fmt.Errorf("build margin points: %w", err)
		}
		scatter.GlyphStyle.Color = black
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
	}

	p.NominalX(names...)
	return encode(p)
}

// ActualVsPredicted overlays fitted monthly profit on the observed values.
func ActualVsPredicted(reg models.Regression) ([]byte, error) {
	p := newPlot(Predicted.Title(), "Total Profit ($)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2006"}

	actual := make(plotter.XYs, len(reg.Predictions))
	predicted := make(plotter.XYs, len(reg.Predictions))
	for i, pr := range reg.Predictions {
		x := float64(pr.Date.Unix())
		actual[i] = plotter.XY{X: x, Y: pr.Actual}
		predicted[i] = plotter.XY{X: x, Y: pr.Predicted}
	}

	for _, s := range []struct {
		label  string
		points plotter.XYs
		color  color.Color
	}{
		{"Actual", actual, blue},
		{"Predicted", predicted, red},
	} {
		line, scatter, err := plotter.NewLinePoints(s.points)
		if err != nil {
			return nil, fmt.Errorf("build %s line: %w", s.label, err)
		}
		line.LineStyle.Color = s.color
		line.LineStyle.Width = vg.Points(2)
		scatter.GlyphStyle.Color = s.color
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(line, scatter)
		p.Legend.Add(s.label, line, scatter)
	}

	p.Legend.Top = true
	return encode(p)
}

func newPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func encode(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return nil, fmt.Errorf("svg writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write svg: %w", err)
	}
	return buf.Bytes(), nil
}
