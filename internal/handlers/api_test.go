package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"profit-dashboard/internal/models"
	"profit-dashboard/internal/services"
)

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()

	var rows []models.Row
	month := models.DefaultWindow.Start
	for i := 0; i < 12; i++ {
		units := float64(10 + i*3 + (i%4)*2)
		cost := 4 + float64(i%3)
		price := 9 + float64(i%5)*0.5
		rows = append(rows, models.Row{
			Year: month.Year, Month: month.Month, Code: "W1", Description: "Widget",
			AmountSold: units, TotalSale: units * price, TotalProfit: units * (price - cost),
			MarginPct: (price - cost) / price * 100, UnitCost: cost, UnitProfit: price - cost,
		})
		month = month.Next()
	}
	rows = append(rows,
		models.Row{Year: 2024, Month: 4, Code: "G1", Description: "Gadget", AmountSold: 3, TotalSale: 30, TotalProfit: 6, MarginPct: 20, UnitCost: 8, UnitProfit: 2},
		models.Row{Year: 2024, Month: 5, Code: "G1", Description: "Gadget", AmountSold: 4, TotalSale: 40, TotalProfit: 8, MarginPct: 20, UnitCost: 8, UnitProfit: 2},
		models.Row{Year: 2024, Month: 3, Code: "X1", Description: "Outside", AmountSold: 1, TotalSale: 1, TotalProfit: 1, MarginPct: 100, UnitCost: 0, UnitProfit: 1},
	)

	a.SetData(rows)
	return a
}

func reportURL(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleProducts(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	tests := []struct {
		mode       string
		wantStatus int
		want       []string
	}{
		{"", http.StatusOK, []string{"Gadget", "Widget"}},
		{"code", http.StatusOK, []string{"G1", "W1"}},
		{"sku", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run("mode="+tt.mode, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products?mode="+tt.mode, nil)
			w := httptest.NewRecorder()

			handlers.HandleProducts(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.want == nil {
				return
			}

			if got := w.Header().Get("Cache-Control"); got != cacheMaxAge {
				t.Errorf("expected Cache-Control %q, got %q", cacheMaxAge, got)
			}

			var data struct {
				Products []string `json:"products"`
			}
			if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
				t.Fatalf("failed to parse products: %v", err)
			}
			if strings.Join(data.Products, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected products %v, got %v", tt.want, data.Products)
			}
		})
	}
}

func TestAPIHandlers_HandleMonths(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/months", nil)
	w := httptest.NewRecorder()
	handlers.HandleMonths(w, req)

	var months []struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &months); err != nil {
		t.Fatalf("failed to parse months: %v", err)
	}

	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	if months[0].Label != "April 2024" || months[11].Label != "March 2025" {
		t.Errorf("unexpected window labels %q..%q", months[0].Label, months[11].Label)
	}
	if months[0].Value != "2024-04" {
		t.Errorf("expected value 2024-04, got %q", months[0].Value)
	}
}

func TestAPIHandlers_HandleReport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	tests := []struct {
		name        string
		params      map[string]string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:       "full window",
			params:     map[string]string{"product": "Widget", "start": "2024-04", "end": "2025-03"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "by code with month labels",
			params:     map[string]string{"mode": "code", "product": "W1", "start": "June 2024", "end": "June 2024"},
			wantStatus: http.StatusOK,
		},
		{
			name:        "end before start",
			params:      map[string]string{"product": "Nope", "start": "2024-08", "end": "2024-06"},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "End month must be same or after start month.",
		},
		{
			name:        "unknown product",
			params:      map[string]string{"product": "Nope", "start": "2024-04", "end": "2025-03"},
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "No data for selected product.",
		},
		{
			name:        "product absent from range",
			params:      map[string]string{"product": "Gadget", "start": "2024-09", "end": "2024-12"},
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "No data in selected range.",
		},
		{
			name:       "outside window",
			params:     map[string]string{"product": "Widget", "start": "2024-03", "end": "2024-05"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing product",
			params:     map[string]string{"start": "2024-04", "end": "2024-05"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unparseable month",
			params:     map[string]string{"product": "Widget", "start": "spring", "end": "2024-05"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, reportURL("/api/report", tt.params), nil)
			w := httptest.NewRecorder()

			handlers.HandleReport(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			env := decodeEnvelope(t, w)
			if tt.wantCode == "" {
				if !env.Success {
					t.Error("expected success=true")
				}
				return
			}

			if env.Error == nil {
				t.Fatal("expected error body")
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, env.Error.Code)
			}
			if tt.wantMessage != "" && env.Error.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, env.Error.Message)
			}
		})
	}
}

func TestAPIHandlers_HandleReport_Content(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, reportURL("/api/report", map[string]string{
		"product": "Gadget", "start": "2024-04", "end": "2025-03",
	}), nil)
	w := httptest.NewRecorder()
	handlers.HandleReport(w, req)

	var report models.Report
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &report); err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}

	if report.KPIs.TotalUnits != 7 || report.KPIs.TotalSales != 70 || report.KPIs.TotalProfit != 14 {
		t.Errorf("unexpected KPIs %+v", report.KPIs)
	}
	if len(report.Monthly) != 2 {
		t.Fatalf("expected 2 months, got %d", len(report.Monthly))
	}
	if !report.Regression.InSample {
		t.Error("regression must be labelled in-sample")
	}
	if !report.Regression.Degenerate {
		t.Error("a two-month fit should be flagged degenerate")
	}
}

func TestAPIHandlers_HandleExport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	tests := []struct {
		format      string
		wantStatus  int
		contentType string
	}{
		{"csv", http.StatusOK, "text/csv"},
		{"json", http.StatusOK, "application/json"},
		{"pdf", http.StatusOK, "application/pdf"},
		{"xlsx", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"docx", http.StatusBadRequest, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, reportURL("/api/report/export", map[string]string{
				"format": tt.format, "product": "Widget", "start": "2024-04", "end": "2024-09",
			}), nil)
			w := httptest.NewRecorder()

			handlers.HandleExport(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("expected Content-Type %q, got %q", tt.contentType, got)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			want := `attachment; filename="Widget_2024-04_2024-09.` + tt.format + `"`
			if got := w.Header().Get("Content-Disposition"); got != want {
				t.Errorf("expected Content-Disposition %q, got %q", want, got)
			}
			if w.Body.Len() == 0 {
				t.Error("expected a non-empty download")
			}
		})
	}
}

func TestAPIHandlers_HandleChart(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())
	target := reportURL("/charts/sales.svg", map[string]string{"product": "Widget", "start": "2024-04", "end": "2025-03"})

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue("name", "sales.svg")
	w := httptest.NewRecorder()
	handlers.HandleChart(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("expected SVG content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<svg") {
		t.Error("response should contain an SVG document")
	}

	req = httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue("name", "pie.svg")
	w = httptest.NewRecorder()
	handlers.HandleChart(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d for unknown chart, got %d", http.StatusNotFound, w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" || env.Error.Message != "unknown chart pie.svg" {
		t.Errorf("unexpected error envelope for unknown chart: %+v", env.Error)
	}
}

func TestAPIHandlers_HandleExport_UnknownFormat(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())
	req := httptest.NewRequest(http.MethodGet, reportURL("/api/report/export", map[string]string{
		"format": "docx", "product": "Widget", "start": "2024-04", "end": "2024-09",
	}), nil)
	w := httptest.NewRecorder()

	handlers.HandleExport(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST envelope, got %+v", env.Error)
	}
	if !strings.Contains(env.Error.Message, "docx") {
		t.Errorf("message should name the rejected format, got %q", env.Error.Message)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var data map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("failed to parse health data: %v", err)
	}
	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", data["status"])
	}
}

func TestAPIHandlers_HandleHealth_NoData(t *testing.T) {
	handlers := NewAPIHandlers(services.NewAnalytics(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatalf("failed to parse stats: %v", err)
	}
	// 14 in-window rows; the March 2024 row is dropped at load.
	if stats["rows"] != float64(14) {
		t.Errorf("expected 14 rows, got %v", stats["rows"])
	}
}
