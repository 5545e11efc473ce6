// Package templates holds the dashboard's page and fragment components.
package templates

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"profit-dashboard/internal/export"
	"profit-dashboard/internal/models"
)

//go:embed *.gohtml
var files embed.FS

var funcs = template.FuncMap{
	"money":   export.FormatMoney,
	"units":   export.FormatUnits,
	"percent": export.FormatPercent,
	"r2":      export.FormatR2,
	"coef":    func(v float64) string { return fmt.Sprintf("%.4f", v) },
	"num":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"export":  ExportURL,
	"formats": func() []export.Format { return export.Formats },
}

var pages = template.Must(template.New("").Funcs(funcs).ParseFS(files, "*.gohtml"))

// DashboardData feeds the full page.
type DashboardData struct {
	Title        string
	Descriptions []string
	Codes        []string
	Months       []models.YearMonth
	Initial      models.Selection
}

// Signals is the initial datastar signal set, JSON encoded.
func (d DashboardData) Signals() string {
	b, _ := json.Marshal(map[string]string{
		"mode":        string(models.ModeDescription),
		"description": d.Initial.Product,
		"code":        first(d.Codes),
		"start":       d.Initial.Start.Key(),
		"end":         d.Initial.End.Key(),
	})
	return string(b)
}

// Chart is one rendered SVG plot.
type Chart struct {
	Title string
	SVG   template.HTML
}

type ReportData struct {
	Report *models.Report
	Charts []Chart
	// Prediction is drawn next to the regression metrics rather than in the trend grid.
	Prediction *Chart
}

func Dashboard(data DashboardData) templ.Component {
	return component("dashboard", data)
}

// Report renders the #report fragment for a successful selection.
func Report(data ReportData) templ.Component {
	return component("report", data)
}

// Warning renders the #report fragment in place of results.
func Warning(message string) templ.Component {
	return component("warning", message)
}

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// InlineSVG strips the XML prologue so the plot can sit inside HTML.
func InlineSVG(svg []byte) template.HTML {
	s := string(svg)
	if i := strings.Index(s, "<svg"); i > 0 {
		s = s[i:]
	}
	return template.HTML(s)
}

// ExportURL links to the download of report in format f.
func ExportURL(report *models.Report, f export.Format) string {
	q := url.Values{}
	q.Set("format", string(f))
	q.Set("mode", string(report.Selection.Mode))
	q.Set("product", report.Selection.Product)
	q.Set("start", report.Selection.Start.Key())
	q.Set("end", report.Selection.End.Key())
	return "/api/report/export?" + q.Encode()
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
