package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "pipeline_runs_total",
		Help:      "Report pipeline runs by outcome.",
	}, []string{"outcome"})

	DegenerateFits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "regression_degenerate_total",
		Help:      "Regression fits flagged as low confidence.",
	})

	DatasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Name:      "dataset_rows",
		Help:      "Rows available inside the reporting window.",
	})
)
