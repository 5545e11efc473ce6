package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"profit-dashboard/internal/charts"
	"profit-dashboard/internal/models"
	"profit-dashboard/internal/services"
	"profit-dashboard/internal/ui/templates"
)

// dashboardCharts are drawn in the trend grid, in this order.
var dashboardCharts = []charts.Name{charts.Sales, charts.Profit, charts.Units, charts.Margin}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleReport reruns the pipeline for the page's current signals and
// replaces #report with either the results or a warning.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var signals dashboardSignals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)

	if readErr != nil {
		h.logger.Warn("read signals", "error", readErr)
		sse.PatchElementTempl(templates.Warning("Could not read the current selection."))
		return
	}

	report, err := h.build(r.Context(), signals)
	if err != nil {
		if err := sse.PatchElementTempl(templates.Warning(warningText(err))); err != nil {
			h.logger.Error("patch warning", "error", err)
		}
		return
	}

	if err := sse.PatchElementTempl(h.renderReport(r.Context(), report)); err != nil {
		h.logger.Error("patch report", "error", err)
		return
	}

	jsonData, err := json.Marshal(map[string]any{
		"monthlyData": report.Monthly,
	})
	if err != nil {
		h.logger.Error("marshal monthly data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) build(ctx context.Context, signals dashboardSignals) (*models.Report, error) {
	sel, err := signals.query().Selection()
	if err != nil {
		return nil, err
	}
	return h.analytics.Report(ctx, sel)
}

func warningText(err error) string {
	if msg := services.HaltMessage(err); msg != "" {
		return msg
	}
	return "Please choose a product and a month range."
}

// renderReport draws every chart and wraps them with the report fragment.
// A chart that fails to render is left out rather than failing the page.
func (h *SSEHandlers) renderReport(ctx context.Context, report *models.Report) templ.Component {
	data := templates.ReportData{Report: report}

	for _, name := range dashboardCharts {
		svg, err := charts.Render(name, report)
		if err != nil {
			h.logger.WarnContext(ctx, "render chart", "chart", name, "error", err)
			continue
		}
		data.Charts = append(data.Charts, templates.Chart{Title: name.Title(), SVG: templates.InlineSVG(svg)})
	}

	if svg, err := charts.Render(charts.Predicted, report); err == nil {
		data.Prediction = &templates.Chart{Title: charts.Predicted.Title(), SVG: templates.InlineSVG(svg)}
	} else {
		h.logger.WarnContext(ctx, "render chart", "chart", charts.Predicted, "error", err)
	}

	return templates.Report(data)
}
