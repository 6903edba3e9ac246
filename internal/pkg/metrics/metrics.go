// Package metrics exposes pipeline metrics on a private Prometheus registry.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const namespace = "sharpedge"

type PipelineMetrics struct {
	registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec
	SkippedTriggers  prometheus.Counter
	CycleDuration    prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	FetchAttempts    *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	BookFailures     *prometheus.CounterVec
	Drops            *prometheus.CounterVec
	UnresolvedEvents *prometheus.CounterVec
	Comparisons      *prometheus.CounterVec
	EmitFailures     prometheus.Counter
	AliasVersion     prometheus.Gauge
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	m := &PipelineMetrics{
		registry: registry,

		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Finished cycles by outcome (done, degraded, failed)",
			},
			[]string{"outcome"},
		),
		SkippedTriggers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_triggers_total",
				Help:      "Triggers skipped because a cycle was still running",
			},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of a whole cycle",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time per cycle stage",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 17),
			},
			[]string{"stage"},
		),
		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Adapter fetch attempts by book and result kind",
			},
			[]string{"book", "result"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_attempt_duration_seconds",
				Help:      "Duration of a single adapter fetch attempt",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"book"},
		),
		BookFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "book_failures_total",
				Help:      "Books that produced no data for a cycle, by failure kind",
			},
			[]string{"book", "kind"},
		),
		Drops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_dropped_total",
				Help:      "Observations dropped during resolution by reason",
			},
			[]string{"reason"},
		),
		UnresolvedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unresolved_events_total",
				Help:      "Events sent to the curation channel",
			},
			[]string{"kind", "outcome"},
		),
		Comparisons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparisons_total",
				Help:      "Comparison rows produced, by target book and EV sign",
			},
			[]string{"target_book", "ev_sign"},
		),
		EmitFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emit_failures_total",
				Help:      "Cycles whose comparison rows could not be stored",
			},
		),
		AliasVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alias_table_version",
				Help:      "Version of the alias table used by the last cycle",
			},
		),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.SkippedTriggers,
		m.CycleDuration,
		m.StageDuration,
		m.FetchAttempts,
		m.FetchDuration,
		m.BookFailures,
		m.Drops,
		m.UnresolvedEvents,
		m.Comparisons,
		m.EmitFailures,
		m.AliasVersion,
	)
	return m
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FetchAttempt records one adapter call; the result label is "ok" or the failure kind.
func (m *PipelineMetrics) FetchAttempt(book string, attempt int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = string(models.FailureNetwork)
		var ff *models.FetchFailure
		if errors.As(err, &ff) {
			result = string(ff.Kind)
		}
	}
	m.FetchAttempts.WithLabelValues(book, result).Inc()
	m.FetchDuration.WithLabelValues(book).Observe(took.Seconds())
}

func (m *PipelineMetrics) ObserveStage(stage string, took time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(took.Seconds())
}

func (m *PipelineMetrics) ObserveComparison(c models.OddsComparison) {
	sign := "zero"
	switch {
	case c.ExpectedValue.IsPositive():
		sign = "positive"
	case c.ExpectedValue.IsNegative():
		sign = "negative"
	}
	m.Comparisons.WithLabelValues(c.TargetBook, sign).Inc()
}

func (m *PipelineMetrics) SetAliasVersion(v uint64) {
	m.AliasVersion.Set(float64(v))
}
