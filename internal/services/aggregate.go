package services

import (
	"slices"

	"profit-dashboard/internal/models"
)

type monthAccumulator struct {
	rows        int
	amountSold  float64
	totalSale   float64
	totalProfit float64
	marginPct   float64
	unitCost    float64
	unitProfit  float64
}

// Aggregate emits one summary per month present in rows, ascending by month.
// Volume measures are summed; Margin%, Unit_Cost and Unit_Profit are plain
// means over the month's rows.
func Aggregate(rows []models.Row) []models.MonthlySummary {
	groups := make(map[models.YearMonth]*monthAccumulator)
	for _, r := range rows {
		acc := groups[r.Period()]
		if acc == nil {
			acc = &monthAccumulator{}
			groups[r.Period()] = acc
		}
		acc.rows++
		acc.amountSold += r.AmountSold
		acc.totalSale += r.TotalSale
		acc.totalProfit += r.TotalProfit
		acc.marginPct += r.MarginPct
		acc.unitCost += r.UnitCost
		acc.unitProfit += r.UnitProfit
	}

	result := make([]models.MonthlySummary, 0, len(groups))
	for period, acc := range groups {
		n := float64(acc.rows)
		result = append(result, models.MonthlySummary{
			Period:      period,
			Date:        period.Date(),
			Label:       period.Key(),
			Rows:        acc.rows,
			AmountSold:  acc.amountSold,
			TotalSale:   acc.totalSale,
			TotalProfit: acc.totalProfit,
			MarginPct:   acc.marginPct / n,
			UnitCost:    acc.unitCost / n,
			UnitProfit:  acc.unitProfit / n,
		})
	}

	slices.SortFunc(result, func(a, b models.MonthlySummary) int {
		return a.Period.Compare(b.Period)
	})
	return result
}
