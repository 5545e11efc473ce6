package charts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-dashboard/internal/models"
)

func testReport() *models.Report {
	months := []models.YearMonth{{Year: 2024, Month: 4}, {Year: 2024, Month: 5}, {Year: 2024, Month: 6}}
	report := &models.Report{}
	for i, ym := range months {
		report.Monthly = append(report.Monthly, models.MonthlySummary{
			Period: ym, Date: ym.Date(), Label: ym.Key(),
			AmountSold: float64(10 + i), TotalSale: float64(100 * (i + 1)), TotalProfit: float64(20 * (i + 1)),
			MarginPct: 20 + float64(i),
		})
		report.Rows = append(report.Rows,
			models.Row{Year: ym.Year, Month: ym.Month, MarginPct: 19 + float64(i)},
			models.Row{Year: ym.Year, Month: ym.Month, MarginPct: 21 + float64(i)},
		)
		report.Regression.Predictions = append(report.Regression.Predictions, models.Prediction{
			Period: ym, Date: ym.Date(), Actual: float64(20 * (i + 1)), Predicted: float64(19 * (i + 1)),
		})
	}
	return report
}

func TestRender_AllCharts(t *testing.T) {
	report := testReport()
	for _, name := range Names {
		t.Run(string(name), func(t *testing.T) {
			svg, err := Render(name, report)
			require.NoError(t, err)
			assert.True(t, bytes.Contains(svg, []byte("<svg")), "output should be SVG")
		})
	}
}

func TestRender_SingleMonth(t *testing.T) {
	report := testReport()
	report.Monthly = report.Monthly[:1]
	report.Rows = report.Rows[:1]
	report.Regression.Predictions = report.Regression.Predictions[:1]

	for _, name := range Names {
		_, err := Render(name, report)
		assert.NoError(t, err, string(name))
	}
}

func TestRender_UnknownChart(t *testing.T) {
	_, err := Render("pie", testReport())
	assert.ErrorContains(t, err, "unknown chart")
}

func TestParseName(t *testing.T) {
	n, err := ParseName("margin.svg")
	assert.NoError(t, err)
	assert.Equal(t, Margin, n)
	assert.Equal(t, "Margin % Distribution by Month", n.Title())

	_, err = ParseName("pie.svg")
	assert.Error(t, err)
}
