// Package metrics defines the Prometheus collectors for query evaluation and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
)

// Query outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeZeroResults = "zero_results"
	OutcomeError       = "error"
)

// Metrics holds the evaluation collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	QueriesTotal      *prometheus.CounterVec
	QueryErrorsTotal  *prometheus.CounterVec
	EvaluationLatency *prometheus.HistogramVec
	ResultsCount      *prometheus.HistogramVec
	ExpansionsTotal   prometheus.Counter
	QueriesInFlight   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qryeval_queries_total",
				Help: "Queries evaluated by retrieval model and outcome (ok, zero_results, error).",
			},
			[]string{"model", "outcome"},
		),
		QueryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qryeval_query_errors_total",
				Help: "Failed queries by error kind (syntax, config, construction, data, other).",
			},
			[]string{"kind"},
		),
		EvaluationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qryeval_evaluation_seconds",
				Help:    "Time to parse, optimize, evaluate and expand one query.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"model"},
		),
		ResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qryeval_results_count",
				Help:    "Documents matched per query before truncation.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"model"},
		),
		ExpansionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qryeval_expansions_total",
				Help: "Queries expanded with pseudo-relevance feedback.",
			},
		),
		QueriesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qryeval_queries_in_flight",
				Help: "Queries currently being evaluated.",
			},
		),
	}

	m.Registry.MustRegister(
		m.QueriesTotal,
		m.QueryErrorsTotal,
		m.EvaluationLatency,
		m.ResultsCount,
		m.ExpansionsTotal,
		m.QueriesInFlight,
	)
	return m
}

// Observe records one finished query. out may be nil when err is set.
func (m *Metrics) Observe(model search.ModelKind, out *search.Outcome, err error, elapsed time.Duration) {
	label := model.String()
	m.EvaluationLatency.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		m.QueriesTotal.WithLabelValues(label, OutcomeError).Inc()
		m.QueryErrorsTotal.WithLabelValues(errs.KindName(err)).Inc()
		return
	}

	n := out.Results.Len()
	m.ResultsCount.WithLabelValues(label).Observe(float64(n))
	if out.Expansion != "" {
		m.ExpansionsTotal.Inc()
	}
	if n == 0 {
		m.QueriesTotal.WithLabelValues(label, OutcomeZeroResults).Inc()
	} else {
		m.QueriesTotal.WithLabelValues(label, OutcomeOK).Inc()
	}
}

// Handler returns the scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
