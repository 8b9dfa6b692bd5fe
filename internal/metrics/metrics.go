// Package metrics exposes Prometheus instruments for explanation traffic.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal/explain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Modes label which endpoint produced an explanation
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// Metrics holds the explanation instruments on a private registry, so each
// server (and each test) gets independent collectors.
type Metrics struct {
	registry *prometheus.Registry

	ExplanationsTotal *prometheus.CounterVec
	ReasonsTotal      *prometheus.CounterVec
	AnalysisErrors    prometheus.Counter
	Duration          *prometheus.HistogramVec
}

// New registers the explanation instruments plus Go runtime collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ExplanationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anomalyexplain_explanations_total",
				Help: "Total number of explanations produced",
			},
			[]string{"mode"},
		),
		ReasonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anomalyexplain_reasons_total",
				Help: "Primary reasons reported, by rule kind",
			},
			[]string{"kind"},
		),
		AnalysisErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomalyexplain_analysis_errors_total",
			Help: "Explanations that recovered from an internal failure",
		}),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anomalyexplain_explain_duration_seconds",
				Help:    "Time spent producing explanations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"mode"},
		),
	}
}

// Handler serves the scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveExplanations counts explanations and their reasons. Nil-safe.
func (m *Metrics) ObserveExplanations(mode string, exps []*explanation.Explanation, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	for _, exp := range exps {
		if exp == nil {
			continue
		}
		m.ExplanationsTotal.WithLabelValues(mode).Inc()
		for _, reason := range exp.PrimaryReasons {
			if strings.HasPrefix(reason, explain.AnalysisErrorPrefix) {
				m.AnalysisErrors.Inc()
				continue
			}
			m.ReasonsTotal.WithLabelValues(explain.ReasonKind(reason)).Inc()
		}
	}
}
