package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"profit-dashboard/internal/config"
	"profit-dashboard/internal/dataset"
	"profit-dashboard/internal/middleware"
	"profit-dashboard/internal/models"
	"profit-dashboard/internal/observability"
	"profit-dashboard/internal/server"
	"profit-dashboard/internal/services"
	"profit-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	datasetTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
	dashboardTitle = "Product Sales & Profit Analysis"
)

// dashboardHandler renders the page shell. The report itself arrives over
// /sse/report once the page loads.
func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		descriptions := analytics.Products(models.ModeDescription)
		window := analytics.Window()

		data := templates.DashboardData{
			Title:        dashboardTitle,
			Descriptions: descriptions,
			Codes:        analytics.Products(models.ModeCode),
			Months:       analytics.Months(),
			Initial: models.Selection{
				Mode:    models.ModeDescription,
				Product: firstOrEmpty(descriptions),
				Start:   window.Start,
				End:     window.End,
			},
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	window, err := cfg.Window()
	if err != nil {
		logger.Error("invalid reporting window", "error", err)
		os.Exit(1)
	}

	analytics := services.NewAnalytics(
		services.WithWindow(window),
		services.WithLogger(logger),
	)
	source := dataset.NewSource(cfg.Dataset.File,
		dataset.WithCacheDir(cfg.Dataset.CacheDir),
		dataset.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), datasetTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.Load(ctx, source); err != nil {
		logger.Error("failed to load dataset", "file", cfg.Dataset.File, "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded successfully", "file", source.Path(), "duration", time.Since(start))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		rateLimiter.Stop()
		return nil
	})
	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
