package services

import "profit-dashboard/internal/models"

// SummarizeKPIs reduces the filtered rows. AvgMargin is the mean over rows,
// not over months.
func SummarizeKPIs(rows []models.Row) models.KPIs {
	var k models.KPIs
	var margin float64
	for _, r := range rows {
		k.TotalUnits += r.AmountSold
		k.TotalSales += r.TotalSale
		k.TotalProfit += r.TotalProfit
		margin += r.MarginPct
	}
	k.Rows = len(rows)
	if k.Rows > 0 {
		k.AvgMargin = margin / float64(k.Rows)
	}
	return k
}
