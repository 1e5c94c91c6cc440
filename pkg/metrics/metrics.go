package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrument outcomes recorded per recompute call
const (
	OutcomeScored  = "scored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Registry holds the Prometheus collectors of the scoring service
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	BatchDuration       *prometheus.HistogramVec
	Batches             *prometheus.CounterVec
	Instruments         *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	ScoreDistribution   prometheus.Histogram
	SweepsCompleted     prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
}

// New creates a registry with every collector registered
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hotscore_batch_duration_seconds",
				Help:    "Duration of one recompute call in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),

		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotscore_batches_total",
				Help: "Recompute calls by result",
			},
			[]string{"result"},
		),

		Instruments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotscore_instruments_total",
				Help: "Instruments handled by the batch loop by outcome",
			},
			[]string{"outcome"},
		),

		PersistenceFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hotscore_persistence_failures_total",
				Help: "Bulk score writes that failed",
			},
		),

		ScoreDistribution: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hotscore_score_value",
				Help:    "Distribution of persisted hotness scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),

		SweepsCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hotscore_sweeps_completed_total",
				Help: "Full sweeps that reached the end of the collection",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotscore_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}

	r.reg.MustRegister(
		r.BatchDuration,
		r.Batches,
		r.Instruments,
		r.PersistenceFailures,
		r.ScoreDistribution,
		r.SweepsCompleted,
		r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Gatherer exposes the underlying registry (used by tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
