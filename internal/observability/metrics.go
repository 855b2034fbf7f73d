// Package observability exposes the engine's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the engine updates. Construct once with
// NewMetrics and share; collectors are safe for concurrent use.
type Metrics struct {
	TicksTotal       prometheus.Counter
	EvaluationsTotal prometheus.Counter
	EvalErrorsTotal  *prometheus.CounterVec // label: kind
	VetoesTotal      *prometheus.CounterVec // label: reason
	DecisionsTotal   *prometheus.CounterVec // label: decision
	SubmitTotal      *prometheus.CounterVec // labels: side, outcome
	ForecastPHit     prometheus.Histogram
	EvalDuration     prometheus.Histogram
	BatchSize        prometheus.Gauge
	FeedPointsTotal  prometheus.Counter
	FeedReconnects   prometheus.Counter
}

// NewMetrics registers the engine collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Evaluation ticks started.",
		}),
		EvaluationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_evaluations_total",
			Help: "Per-token evaluations completed.",
		}),
		EvalErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_evaluation_errors_total",
			Help: "Per-token evaluations abandoned, by error kind.",
		}, []string{"kind"}),
		VetoesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_vetoes_total",
			Help: "Safety gate vetoes, by reason.",
		}, []string{"reason"}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Decision writes, by decision value.",
		}, []string{"decision"}),
		SubmitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_submissions_total",
			Help: "Trade submissions, by side and outcome.",
		}, []string{"side", "outcome"}),
		ForecastPHit: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_forecast_p_hit",
			Help:    "Forecasted probability of reaching the target return.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		EvalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_evaluation_duration_seconds",
			Help:    "Wall time of one per-token evaluation.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		BatchSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "engine_batch_size",
			Help: "Candidates selected for the current tick.",
		}),
		FeedPointsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_feed_points_total",
			Help: "Metric points ingested from the feed.",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_feed_reconnects_total",
			Help: "Feed websocket reconnects.",
		}),
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
