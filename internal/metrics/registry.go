// Package metrics holds the Prometheus collectors of the analytics and learning pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aurelius"

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailure  = "failure"
)

// Registry owns the collectors and the Prometheus registry they are registered on.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	reportsTotal        *prometheus.CounterVec
	reportDuration      *prometheus.HistogramVec
	recordsSkipped      *prometheus.CounterVec
	reducerDegraded     *prometheus.CounterVec
	learningCycles      *prometheus.CounterVec
	learningDuration    prometheus.Histogram
	insightsGenerated   *prometheus.CounterVec
	rateLimitRemaining  *prometheus.GaugeVec
	contentRequests     *prometheus.CounterVec
	schedulerTaskErrors *prometheus.CounterVec
}

// NewRegistry creates the collectors on a fresh registry, together with the Go and process collectors
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "reports_total",
				Help:      "Total number of analytics reports generated",
			},
			[]string{"period", "outcome"},
		),

		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "report_duration_seconds",
				Help:      "Analytics report generation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"period"},
		),

		recordsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "logstore",
				Name:      "records_skipped_total",
				Help:      "Records skipped because they could not be decoded",
			},
			[]string{"topic"},
		),

		reducerDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "reducer_degraded_total",
				Help:      "Reducer runs that fell back to an empty result",
			},
			[]string{"reducer"},
		),

		learningCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "cycles_total",
				Help:      "Total number of learning cycles",
			},
			[]string{"outcome"},
		),

		learningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "cycle_duration_seconds",
				Help:      "Learning cycle duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
		),

		insightsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "learning",
				Name:      "insights_generated_total",
				Help:      "Insights produced by learning cycles",
			},
			[]string{"type", "priority"},
		),

		rateLimitRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "platform",
				Name:      "rate_limit_remaining",
				Help:      "Calls left in the current hourly window",
			},
			[]string{"platform"},
		),

		contentRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "content",
				Name:      "generation_requests_total",
				Help:      "Content generation requests sent to the language model",
			},
			[]string{"platform", "outcome"},
		),

		schedulerTaskErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_errors_total",
				Help:      "Periodic task runs that ended in an error",
			},
			[]string{"task"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.reportsTotal,
		r.reportDuration,
		r.recordsSkipped,
		r.reducerDegraded,
		r.learningCycles,
		r.learningDuration,
		r.insightsGenerated,
		r.rateLimitRemaining,
		r.contentRequests,
		r.schedulerTaskErrors,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests and custom handlers
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) RecordReport(period, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.reportsTotal.WithLabelValues(period, outcome).Inc()
	r.reportDuration.WithLabelValues(period).Observe(duration.Seconds())
}

func (r *Registry) RecordSkippedRecord(topic string) {
	if r == nil {
		return
	}
	r.recordsSkipped.WithLabelValues(topic).Inc()
}

func (r *Registry) RecordReducerDegraded(reducer string) {
	if r == nil {
		return
	}
	r.reducerDegraded.WithLabelValues(reducer).Inc()
}

func (r *Registry) RecordLearningCycle(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.learningCycles.WithLabelValues(outcome).Inc()
	r.learningDuration.Observe(duration.Seconds())
}

func (r *Registry) RecordInsight(insightType, priority string) {
	if r == nil {
		return
	}
	r.insightsGenerated.WithLabelValues(insightType, priority).Inc()
}

func (r *Registry) SetRateLimitRemaining(platform string, remaining int) {
	if r == nil {
		return
	}
	r.rateLimitRemaining.WithLabelValues(platform).Set(float64(remaining))
}

func (r *Registry) RecordContentRequest(platform, outcome string) {
	if r == nil {
		return
	}
	r.contentRequests.WithLabelValues(platform, outcome).Inc()
}

func (r *Registry) RecordTaskError(task string) {
	if r == nil {
		return
	}
	r.schedulerTaskErrors.WithLabelValues(task).Inc()
}
