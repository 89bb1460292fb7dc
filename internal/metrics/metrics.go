// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codr1/Courtside/internal/events"
)

const namespace = "courtside"

type Metrics struct {
	registry *prometheus.Registry

	facts           *prometheus.CounterVec
	sweeps          prometheus.Counter
	sweepFailures   prometheus.Counter
	noShows         prometheus.Counter
	orphanedMatches prometheus.Counter
	sweepDuration   prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New builds a Metrics with its own registry, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		facts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_total",
			Help:      "Committed state changes by fact type.",
		}, []string{"type"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noshow_sweeps_total",
			Help:      "No-show sweeps run.",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noshow_sweep_failures_total",
			Help:      "No-show sweeps that returned an error.",
		}),
		noShows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noshow_bookings_total",
			Help:      "Bookings transitioned to no_show.",
		}),
		orphanedMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noshow_orphaned_matches_total",
			Help:      "Open or full matches left behind by a no-show booking.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "noshow_sweep_duration_seconds",
			Help:      "No-show sweep duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.facts,
		m.sweeps,
		m.sweepFailures,
		m.noShows,
		m.orphanedMatches,
		m.sweepDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Emit counts a fact. Metrics can be combined with other emitters via events.Multi.
func (m *Metrics) Emit(_ context.Context, fact events.Fact) {
	m.facts.WithLabelValues(string(fact.Type)).Inc()
}

// ObserveSweep records the outcome of one no-show sweep.
func (m *Metrics) ObserveSweep(marked, orphaned int, elapsed time.Duration, err error) {
	m.sweeps.Inc()
	m.sweepDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.sweepFailures.Inc()
	}
	m.noShows.Add(float64(marked))
	m.orphanedMatches.Add(float64(orphaned))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
