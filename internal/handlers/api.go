package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"profit-dashboard/internal/charts"
	"profit-dashboard/internal/errors"
	"profit-dashboard/internal/export"
	"profit-dashboard/internal/models"
	"profit-dashboard/internal/observability"
	"profit-dashboard/internal/services"
)

const cacheMaxAge = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	mode := models.SearchMode(r.URL.Query().Get("mode"))
	switch mode {
	case "":
		mode = models.ModeDescription
	case models.ModeDescription, models.ModeCode:
	default:
		errors.WriteError(w, h.logger, errors.Validation("mode must be description or code"), observability.GetRequestID(r.Context()))
		return
	}

	headers := map[string]string{
		"Cache-Control": cacheMaxAge,
	}

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"mode":     mode,
		"products": h.analytics.Products(mode),
	}, headers)
}

func (h *APIHandlers) HandleMonths(w http.ResponseWriter, r *http.Request) {
	months := h.analytics.Months()

	type option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	options := make([]option, len(months))
	for i, m := range months {
		options[i] = option{Value: m.Key(), Label: m.Label()}
	}

	headers := map[string]string{
		"Cache-Control": cacheMaxAge,
	}

	errors.WriteSuccessWithHeaders(w, options, headers)
}

// report parses the query and runs the pipeline, writing the error response
// itself when anything fails.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	requestID := observability.GetRequestID(r.Context())

	sel, err := reportQueryFromURL(r).Selection()
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return nil, false
	}

	report, err := h.analytics.Report(r.Context(), sel)
	if err != nil {
		errors.WriteError(w, h.logger, pipelineError(err), requestID)
		return nil, false
	}
	return report, true
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, report)
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		errors.WriteError(w, h.logger, errors.BadRequest(err.Error()), requestID)
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "export failed"), requestID)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(report, format)+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	name, err := charts.ParseName(r.PathValue("name"))
	if err != nil {
		errors.WriteError(w, h.logger, errors.NotFound("unknown chart "+r.PathValue("name")), requestID)
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	svg, err := charts.Render(name, report)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "chart rendering failed"), requestID)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", cacheMaxAge)
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.analytics.RowCount() == 0 {
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("dataset not loaded"), observability.GetRequestID(r.Context()))
		return
	}

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
