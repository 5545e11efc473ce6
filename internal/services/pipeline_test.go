package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-dashboard/internal/models"
)

func ym(y, m int) models.YearMonth {
	return models.YearMonth{Year: y, Month: m}
}

func row(code, desc string, y, m int, units, sale, profit, margin, cost, unitProfit float64) models.Row {
	return models.Row{
		Year: y, Month: m, Code: code, Description: desc,
		AmountSold: units, TotalSale: sale, TotalProfit: profit,
		MarginPct: margin, UnitCost: cost, UnitProfit: unitProfit,
	}
}

// widgetRows has Widget A in April and May 2024 only.
func widgetRows() []models.Row {
	return []models.Row{
		row("A1", "Widget A", 2024, 4, 10, 100, 20, 20, 8, 2),
		row("A1", "Widget A", 2024, 4, 5, 60, 15, 25, 9, 3),
		row("A1", "Widget A", 2024, 5, 8, 90, 18, 20, 9, 2.25),
	}
}

func fullWindow(mode models.SearchMode, product string) models.Selection {
	return models.Selection{Mode: mode, Product: product, Start: ym(2024, 4), End: ym(2025, 3)}
}

func TestFilter_Halts(t *testing.T) {
	tests := []struct {
		name    string
		sel     models.Selection
		wantErr error
	}{
		{
			name:    "unknown product",
			sel:     fullWindow(models.ModeDescription, "Widget B"),
			wantErr: ErrNoProductData,
		},
		{
			name:    "end before start",
			sel:     models.Selection{Product: "Widget A", Start: ym(2024, 12), End: ym(2024, 10)},
			wantErr: ErrRangeOrder,
		},
		{
			name:    "order checked before product",
			sel:     models.Selection{Product: "Widget B", Start: ym(2024, 12), End: ym(2024, 10)},
			wantErr: ErrRangeOrder,
		},
		{
			name:    "product present but not in range",
			sel:     models.Selection{Product: "Widget A", Start: ym(2024, 9), End: ym(2025, 1)},
			wantErr: ErrNoRangeData,
		},
		{
			name:    "month outside window",
			sel:     models.Selection{Product: "Widget A", Start: ym(2024, 1), End: ym(2024, 5)},
			wantErr: ErrOutsideWindow,
		},
		{
			name:    "bad mode",
			sel:     models.Selection{Mode: "sku", Product: "A1", Start: ym(2024, 4), End: ym(2024, 5)},
			wantErr: ErrUnknownMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Filter(widgetRows(), tt.sel, models.DefaultWindow)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rows)
			assert.NotEmpty(t, HaltMessage(err))
		})
	}
}

func TestFilter_RowsMatchSelection(t *testing.T) {
	rows := append(widgetRows(),
		row("B2", "Widget B", 2024, 6, 1, 10, 2, 20, 8, 2),
		row("A1", "Widget A", 2025, 3, 4, 40, 8, 20, 8, 2),
	)

	sel := models.Selection{Mode: models.ModeCode, Product: "A1", Start: ym(2024, 5), End: ym(2025, 3)}
	got, err := Filter(rows, sel, models.DefaultWindow)
	require.NoError(t, err)
	require.Len(t, got, 2)

	bounds := models.Window{Start: sel.Start, End: sel.End}
	for _, r := range got {
		assert.Equal(t, "A1", r.Code)
		assert.True(t, bounds.Contains(r.Period()), "row %s outside selection", r.Period())
	}
}

func TestHaltMessage(t *testing.T) {
	assert.Equal(t, "No data for selected product.", HaltMessage(ErrNoProductData))
	assert.Equal(t, "No data in selected range.", HaltMessage(ErrNoRangeData))
	assert.Equal(t, "End month must be same or after start month.", HaltMessage(ErrRangeOrder))
	assert.Empty(t, HaltMessage(assert.AnError))
	assert.True(t, IsEmptySelection(ErrNoRangeData))
	assert.False(t, IsEmptySelection(ErrRangeOrder))
}

func TestAggregate(t *testing.T) {
	monthly := Aggregate(widgetRows())
	require.Len(t, monthly, 2)

	april := monthly[0]
	assert.Equal(t, ym(2024, 4), april.Period)
	assert.Equal(t, "2024-04", april.Label)
	assert.Equal(t, 2, april.Rows)
	assert.InDelta(t, 15, april.AmountSold, 1e-9)
	assert.InDelta(t, 160, april.TotalSale, 1e-9)
	assert.InDelta(t, 35, april.TotalProfit, 1e-9)
	assert.InDelta(t, 22.5, april.MarginPct, 1e-9, "margin is an unweighted mean")
	assert.InDelta(t, 8.5, april.UnitCost, 1e-9)
	assert.InDelta(t, 2.5, april.UnitProfit, 1e-9)
	assert.Equal(t, april.Period.Date(), april.Date)

	assert.Equal(t, ym(2024, 5), monthly[1].Period)
}

func TestAggregate_SortedUniqueAndOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var rows []models.Row
	for _, period := range []models.YearMonth{ym(2025, 2), ym(2024, 4), ym(2024, 11), ym(2025, 1), ym(2024, 7)} {
		for k := 0; k < 3; k++ {
			rows = append(rows, row("A1", "Widget A", period.Year, period.Month,
				float64(rng.Intn(50)), rng.Float64()*500, rng.Float64()*100, rng.Float64()*40, rng.Float64()*10, rng.Float64()*5))
		}
	}

	first := Aggregate(rows)
	require.Len(t, first, 5, "one summary per month present, no back-fill")
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Period.Before(first[i].Period), "summaries must be strictly ascending")
	}

	shuffled := append([]models.Row(nil), rows...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	second := Aggregate(shuffled)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Period, second[i].Period)
		assert.InDelta(t, first[i].TotalSale, second[i].TotalSale, 1e-9)
		assert.InDelta(t, first[i].MarginPct, second[i].MarginPct, 1e-9)
	}
}

func TestSummarizeKPIs_MatchesMonthlyTotals(t *testing.T) {
	rows := widgetRows()
	kpis := SummarizeKPIs(rows)

	assert.InDelta(t, 23, kpis.TotalUnits, 1e-9)
	assert.InDelta(t, 250, kpis.TotalSales, 1e-9)
	assert.InDelta(t, 53, kpis.TotalProfit, 1e-9)
	assert.InDelta(t, 65.0/3, kpis.AvgMargin, 1e-9, "mean across rows, not months")
	assert.Equal(t, 3, kpis.Rows)

	var units, sales, profit, marginSum float64
	var n int
	for _, m := range Aggregate(rows) {
		units += m.AmountSold
		sales += m.TotalSale
		profit += m.TotalProfit
		marginSum += m.MarginPct * float64(m.Rows)
		n += m.Rows
	}
	assert.InDelta(t, kpis.TotalUnits, units, 1e-9)
	assert.InDelta(t, kpis.TotalSales, sales, 1e-9)
	assert.InDelta(t, kpis.TotalProfit, profit, 1e-9)
	assert.InDelta(t, kpis.AvgMargin, marginSum/float64(n), 1e-9)
}
