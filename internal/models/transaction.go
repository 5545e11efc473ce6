package models

import "time"

// Row is one line of the sales dataset. Rows are never mutated after load.
type Row struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	AmountSold  float64 `json:"amount_sold"`
	TotalSale   float64 `json:"total_sale"`
	TotalProfit float64 `json:"total_profit"`
	MarginPct   float64 `json:"margin_pct"`
	UnitCost    float64 `json:"unit_cost"`
	UnitProfit  float64 `json:"unit_profit"`
}

func (r Row) Period() YearMonth {
	return YearMonth{Year: r.Year, Month: r.Month}
}

type SearchMode string

const (
	ModeDescription SearchMode = "description"
	ModeCode        SearchMode = "code"
)

// Selection is the user's product and month range choice.
type Selection struct {
	Mode    SearchMode `json:"mode"`
	Product string     `json:"product"`
	Start   YearMonth  `json:"start"`
	End     YearMonth  `json:"end"`
}

// Key identifies a selection for request collapsing.
func (s Selection) Key() string {
	return string(s.Mode) + "|" + s.Product + "|" + s.Start.Key() + "|" + s.End.Key()
}

type MonthlySummary struct {
	Period      YearMonth `json:"period"`
	Date        time.Time `json:"date"`
	Label       string    `json:"label"`
	Rows        int       `json:"rows"`
	AmountSold  float64   `json:"amount_sold"`
	TotalSale   float64   `json:"total_sale"`
	TotalProfit float64   `json:"total_profit"`
	MarginPct   float64   `json:"margin_pct"`
	UnitCost    float64   `json:"unit_cost"`
	UnitProfit  float64   `json:"unit_profit"`
}

type KPIs struct {
	TotalUnits  float64 `json:"total_units"`
	TotalSales  float64 `json:"total_sales"`
	TotalProfit float64 `json:"total_profit"`
	AvgMargin   float64 `json:"avg_margin"`
	Rows        int     `json:"rows"`
}

type Coefficient struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

type Prediction struct {
	Period    YearMonth `json:"period"`
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
	Residual  float64   `json:"residual"`
}

// Regression is an in-sample OLS fit of monthly total profit.
type Regression struct {
	Features     []string      `json:"features"`
	Coefficients []Coefficient `json:"coefficients"`
	Intercept    float64       `json:"intercept"`
	Predictions  []Prediction  `json:"predictions"`
	MAE          float64       `json:"mae"`
	R2           float64       `json:"r2"`
	R2Defined    bool          `json:"r2_defined"`
	SSR          float64       `json:"ssr"`
	SST          float64       `json:"sst"`
	Rank         int           `json:"rank"`
	Samples      int           `json:"samples"`
	InSample     bool          `json:"in_sample"`
	Degenerate   bool          `json:"degenerate"`
	Warnings     []string      `json:"warnings,omitempty"`
}

type Report struct {
	Selection    Selection        `json:"selection"`
	ProductLabel string           `json:"product_label"`
	StartLabel   string           `json:"start_label"`
	EndLabel     string           `json:"end_label"`
	KPIs         KPIs             `json:"kpis"`
	Monthly      []MonthlySummary `json:"monthly"`
	Regression   Regression       `json:"regression"`
	Rows         []Row            `json:"rows"`
}
