// Package metrics exposes Prometheus instrumentation for analyses.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gocompare"

// Analysis outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid_input"
	OutcomeError   = "error"
)

// Collector records analysis and per-metric counts on its own registry.
type Collector struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	metricsTotal     *prometheus.CounterVec
	runsPersisted    *prometheus.CounterVec
}

// NewCollector creates a collector with Go runtime and process metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome.",
		}, []string{"outcome"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		metricsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_reports_total",
			Help:      "Per-metric records produced, by selected test and record kind.",
		}, []string{"test", "kind"}),
		runsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_persisted_total",
			Help:      "Run history writes, by result.",
		}, []string{"result"}),
	}
}

// ObserveAnalysis records one finished analysis.
func (c *Collector) ObserveAnalysis(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.analysesTotal.WithLabelValues(outcome).Inc()
	c.analysisDuration.Observe(elapsed.Seconds())
}

// ObserveMetric records one per-metric record. test is empty when no test ran.
func (c *Collector) ObserveMetric(test, kind string) {
	if c == nil {
		return
	}
	if test == "" {
		test = "none"
	}
	c.metricsTotal.WithLabelValues(test, kind).Inc()
}

// ObservePersist records a run history write.
func (c *Collector) ObservePersist(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.runsPersisted.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
