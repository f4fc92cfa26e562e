// Package promcollector adapts the engine's MetricsCollector interface
// to Prometheus.
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tracknova/recgo"
)

// Collector implements recgo.MetricsCollector backed by Prometheus
// counters and histograms.
type Collector struct {
	recommendTotal    *prometheus.CounterVec
	recommendDuration *prometheus.HistogramVec
	compareTotal      prometheus.Counter
	compareModels     prometheus.Counter
	compareFailed     prometheus.Counter
	compareDuration   prometheus.Histogram
	loadTotal         *prometheus.CounterVec
	loadDuration      *prometheus.HistogramVec
	switchTotal       *prometheus.CounterVec
}

var _ recgo.MetricsCollector = (*Collector)(nil)

// New creates a Collector registered on reg. Pass
// prometheus.DefaultRegisterer for the process-global registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		recommendTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recgo_recommendations_total",
				Help: "Total number of recommendation requests",
			},
			[]string{"strategy", "outcome"},
		),
		recommendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recgo_recommendation_duration_seconds",
				Help:    "Duration of recommendation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		compareTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recgo_comparisons_total",
				Help: "Total number of side-by-side comparisons",
			},
		),
		compareModels: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recgo_comparison_models_total",
				Help: "Total number of per-model runs across comparisons",
			},
		),
		compareFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recgo_comparison_failures_total",
				Help: "Total number of per-model failures across comparisons",
			},
		),
		compareDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recgo_comparison_duration_seconds",
				Help:    "Duration of side-by-side comparisons in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		loadTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recgo_model_loads_total",
				Help: "Total number of model bundle load attempts",
			},
			[]string{"model", "outcome"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "recgo_model_load_duration_seconds",
				Help: "Duration of model bundle loads in seconds",
				// Bundle loads run from hundreds of milliseconds to tens
				// of seconds for large embedding matrices.
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		switchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recgo_model_switches_total",
				Help: "Total number of active-model switch attempts",
			},
			[]string{"model", "outcome"},
		),
	}
}

// RecordRecommend implements recgo.MetricsCollector.
func (c *Collector) RecordRecommend(strategy string, duration time.Duration, err error) {
	c.recommendTotal.WithLabelValues(strategy, outcome(err)).Inc()
	c.recommendDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordCompare implements recgo.MetricsCollector.
func (c *Collector) RecordCompare(models, failed int, duration time.Duration) {
	c.compareTotal.Inc()
	c.compareModels.Add(float64(models))
	c.compareFailed.Add(float64(failed))
	c.compareDuration.Observe(duration.Seconds())
}

// RecordModelLoad implements recgo.MetricsCollector.
func (c *Collector) RecordModelLoad(model string, duration time.Duration, err error) {
	c.loadTotal.WithLabelValues(model, outcome(err)).Inc()
	c.loadDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordModelSwitch implements recgo.MetricsCollector.
func (c *Collector) RecordModelSwitch(model string, err error) {
	c.switchTotal.WithLabelValues(model, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
