// Package export writes a report as a downloadable file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"profit-dashboard/internal/models"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

var Formats = []Format{CSV, JSON, PDF, XLSX}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSON:
		return "application/json"
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Filename suggests a download name for report.
func Filename(report *models.Report, f Format) string {
	product := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, report.ProductLabel)
	return fmt.Sprintf("%s_%s_%s.%s", product, report.Selection.Start.Key(), report.Selection.End.Key(), f)
}

func Write(w io.Writer, f Format, report *models.Report) error {
	switch f {
	case CSV:
		return writeCSV(w, report)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case PDF:
		return writePDF(w, report)
	case XLSX:
		return writeXLSX(w, report)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

var rowHeader = []string{
	"Year", "Month", "Code", "Description", "Amount_Sold", "Total_Sale",
	"Total_Profit", "Margin%", "Unit_Cost", "Unit_Profit",
}

var monthlyHeader = []string{
	"Month", "Rows", "Amount_Sold", "Total_Sale", "Total_Profit",
	"Margin%", "Unit_Cost", "Unit_Profit", "Predicted_Profit",
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func rowRecord(r models.Row) []string {
	return []string{
		strconv.Itoa(r.Year), strconv.Itoa(r.Month), r.Code, r.Description,
		num(r.AmountSold), num(r.TotalSale), num(r.TotalProfit),
		num(r.MarginPct), num(r.UnitCost), num(r.UnitProfit),
	}
}

func monthlyRecord(m models.MonthlySummary, predicted float64) []string {
	return []string{
		m.Label, strconv.Itoa(m.Rows), num(m.AmountSold), num(m.TotalSale), num(m.TotalProfit),
		num(m.MarginPct), num(m.UnitCost), num(m.UnitProfit), num(predicted),
	}
}

func predictedFor(report *models.Report, i int) float64 {
	if i < len(report.Regression.Predictions) {
		return report.Regression.Predictions[i].Predicted
	}
	return 0
}

// writeCSV emits the monthly table, a blank line, then the raw rows.
func writeCSV(w io.Writer, report *models.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(monthlyHeader); err != nil {
		return err
	}
	for i, m := range report.Monthly {
		if err := cw.Write(monthlyRecord(m, predictedFor(report, i))); err != nil {
			return err
		}
	}
	if err := cw.Write(nil); err != nil {
		return err
	}
	if err := cw.Write(rowHeader); err != nil {
		return err
	}
	for _, r := range report.Rows {
		if err := cw.Write(rowRecord(r)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, report *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := f.GetSheetName(0)
	if err := f.SetSheetName(summary, "Summary"); err != nil {
		return err
	}

	kpis := [][]any{
		{"Product", report.ProductLabel},
		{"From", report.StartLabel},
		{"To", report.EndLabel},
		{"Total Units Sold", report.KPIs.TotalUnits},
		{"Total Sales ($)", report.KPIs.TotalSales},
		{"Total Profit ($)", report.KPIs.TotalProfit},
		{"Avg Margin %", report.KPIs.AvgMargin},
		{"Mean Absolute Error (in-sample)", report.Regression.MAE},
		{"R2 Score (in-sample)", r2Cell(report.Regression)},
		{"Intercept", report.Regression.Intercept},
	}
	for _, c := range report.Regression.Coefficients {
		kpis = append(kpis, []any{"Coefficient " + c.Feature, c.Value})
	}
	for i, kv := range kpis {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Summary", cell, &kv); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet("Monthly"); err != nil {
		return err
	}
	if err := setHeader(f, "Monthly", monthlyHeader); err != nil {
		return err
	}
	for i, m := range report.Monthly {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{m.Label, m.Rows, m.AmountSold, m.TotalSale, m.TotalProfit, m.MarginPct, m.UnitCost, m.UnitProfit, predictedFor(report, i)}
		if err := f.SetSheetRow("Monthly", cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet("Rows"); err != nil {
		return err
	}
	if err := setHeader(f, "Rows", rowHeader); err != nil {
		return err
	}
	for i, r := range report.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{r.Year, r.Month, r.Code, r.Description, r.AmountSold, r.TotalSale, r.TotalProfit, r.MarginPct, r.UnitCost, r.UnitProfit}
		if err := f.SetSheetRow("Rows", cell, &values); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func setHeader(f *excelize.File, sheet string, header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	return f.SetSheetRow(sheet, "A1", &values)
}

func r2Cell(reg models.Regression) any {
	if !reg.R2Defined {
		return "undefined"
	}
	return reg.R2
}

func writePDF(w io.Writer, report *models.Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Product Sales & Profit Analysis", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Product Sales & Profit Analysis", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s, %s to %s", report.ProductLabel, report.StartLabel, report.EndLabel), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "KPIs")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, kv := range [][2]string{
		{"Total Units Sold", FormatUnits(report.KPIs.TotalUnits)},
		{"Total Sales ($)", FormatMoney(report.KPIs.TotalSales)},
		{"Total Profit ($)", FormatMoney(report.KPIs.TotalProfit)},
		{"Avg Margin %", FormatPercent(report.KPIs.AvgMargin)},
	} {
		pdf.CellFormat(60, 7, kv[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, kv[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Monthly Summary")
	pdf.Ln(8)
	widths := []float64{22, 14, 22, 28, 28, 20, 20, 22}
	headers := []string{"Month", "Rows", "Units", "Sales", "Profit", "Margin%", "Unit Cost", "Predicted"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(220, 230, 241)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for i, m := range report.Monthly {
		cells := []string{
			m.Label, strconv.Itoa(m.Rows), FormatUnits(m.AmountSold), FormatMoney(m.TotalSale),
			FormatMoney(m.TotalProfit), fmt.Sprintf("%.2f", m.MarginPct), fmt.Sprintf("%.2f", m.UnitCost),
			FormatMoney(predictedFor(report, i)),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 6, c, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	reg := report.Regression
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Regression (in-sample)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Mean Absolute Error: %s   R2 Score: %s", FormatMoney(reg.MAE), FormatR2(reg)))
	pdf.Ln(6)
	for _, c := range reg.Coefficients {
		pdf.CellFormat(60, 6, c.Feature, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.6g", c.Value), "1", 1, "R", false, 0, "")
	}
	for _, warning := range reg.Warnings {
		pdf.SetTextColor(180, 0, 0)
		pdf.MultiCell(0, 6, "Low confidence: "+warning, "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)

	return pdf.Output(w)
}
