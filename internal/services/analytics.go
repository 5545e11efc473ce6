package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"profit-dashboard/internal/models"
	"profit-dashboard/internal/observability"
)

// RowSource supplies the full dataset. dataset.Source implements it.
type RowSource interface {
	Rows(ctx context.Context) ([]models.Row, error)
}

// Analytics serves reports over a dataset that is loaded once and never
// modified afterwards.
type Analytics struct {
	mu       sync.RWMutex
	rows     []models.Row
	loadedAt time.Time
	window   models.Window
	logger   *slog.Logger

	reports  singleflight.Group
	requests atomic.Int64
	halts    atomic.Int64
}

type Option func(*Analytics)

func WithWindow(window models.Window) Option {
	return func(a *Analytics) { a.window = window }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		window: models.DefaultWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load pulls rows from src and keeps those inside the reporting window.
func (a *Analytics) Load(ctx context.Context, src RowSource) error {
	rows, err := src.Rows(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	a.SetData(rows)
	a.logger.Info("dataset ready",
		"rows_total", len(rows),
		"rows_in_window", a.RowCount(),
		"window_start", a.window.Start.Key(),
		"window_end", a.window.End.Key(),
	)
	return nil
}

func (a *Analytics) SetData(rows []models.Row) {
	windowed := InWindow(rows, a.window)

	a.mu.Lock()
	a.rows = windowed
	a.loadedAt = time.Now()
	a.mu.Unlock()

	observability.DatasetRows.Set(float64(len(windowed)))
}

func (a *Analytics) snapshot() []models.Row {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rows
}

func (a *Analytics) RowCount() int {
	return len(a.snapshot())
}

func (a *Analytics) Window() models.Window {
	return a.window
}

// Months lists the selectable months.
func (a *Analytics) Months() []models.YearMonth {
	return a.window.Months()
}

// Products returns the sorted distinct descriptions or codes.
func (a *Analytics) Products(mode models.SearchMode) []string {
	seen := make(map[string]struct{})
	for _, r := range a.snapshot() {
		if mode == models.ModeCode {
			seen[r.Code] = struct{}{}
		} else {
			seen[r.Description] = struct{}{}
		}
	}

	products := make([]string, 0, len(seen))
	for p := range seen {
		products = append(products, p)
	}
	slices.Sort(products)
	return products
}

// Report runs the whole pipeline for sel. Concurrent calls with the same
// selection share one run.
func (a *Analytics) Report(ctx context.Context, sel models.Selection) (*models.Report, error) {
	a.requests.Add(1)

	ctx, span := observability.StartSpan(ctx, "report")
	span.SetTag("selection", sel.Key())
	defer span.Finish(a.logger)

	v, err, shared := a.reports.Do(sel.Key(), func() (any, error) {
		return a.buildReport(sel)
	})
	if shared {
		span.SetTag("shared", "true")
	}
	if err != nil {
		span.SetError(err)
		a.halts.Add(1)
		observability.PipelineRuns.WithLabelValues(outcome(err)).Inc()
		a.logger.DebugContext(ctx, "report halted", "selection", sel.Key(), "reason", err)
		return nil, err
	}

	observability.PipelineRuns.WithLabelValues("ok").Inc()
	return v.(*models.Report), nil
}

func (a *Analytics) buildReport(sel models.Selection) (*models.Report, error) {
	if sel.Mode == "" {
		sel.Mode = models.ModeDescription
	}

	filtered, err := Filter(a.snapshot(), sel, a.window)
	if err != nil {
		return nil, err
	}

	monthly := Aggregate(filtered)
	regression := Regress(monthly)
	if regression.Degenerate {
		observability.DegenerateFits.Inc()
	}

	return &models.Report{
		Selection:    sel,
		ProductLabel: filtered[0].Description,
		StartLabel:   sel.Start.Label(),
		EndLabel:     sel.End.Label(),
		KPIs:         SummarizeKPIs(filtered),
		Monthly:      monthly,
		Regression:   regression,
		Rows:         filtered,
	}, nil
}

func outcome(err error) string {
	switch err {
	case ErrRangeOrder:
		return "range_order"
	case ErrOutsideWindow:
		return "outside_window"
	case ErrNoProductData:
		return "no_product_data"
	case ErrNoRangeData:
		return "no_range_data"
	default:
		return "error"
	}
}

// Stats is used by the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"rows":         len(a.rows),
		"loaded_at":    a.loadedAt,
		"window_start": a.window.Start.Key(),
		"window_end":   a.window.End.Key(),
		"reports":      a.requests.Load(),
		"halts":        a.halts.Load(),
	}
}
