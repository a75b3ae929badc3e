package metrics

import (
	"context"
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/poolprobe/internal/probe"
)

// Metrics holds the Prometheus collectors of the service. Each instance owns
// its registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	ProbesTotal   *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	BuildInfo     *prometheus.GaugeVec
}

// New creates and registers all collectors under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		// outcome is "healthy", "unhealthy" or an error kind
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of connection pool pings by outcome",
			},
			[]string{"outcome"},
		),

		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Connection pool ping duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build information",
			},
			[]string{"version", "go_version"},
		),
	}
	reg.MustRegister(
		m.ProbesTotal,
		m.ProbeDuration,
		m.HTTPRequests,
		m.BuildInfo,
		collectors.NewGoCollector(),
	)
	return m
}

// SetBuildInfo publishes the running version.
func (m *Metrics) SetBuildInfo(version string) {
	m.BuildInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Outcome labels a CheckResult for the probe metrics.
func Outcome(res probe.CheckResult) string {
	if !res.Completed {
		return res.ErrorKind
	}
	return res.Verdict.String()
}

// ObservedChecker wraps a probe.Checker and records every result.
type ObservedChecker struct {
	Inner   probe.Checker
	Metrics *Metrics
}

func (o *ObservedChecker) Check(ctx context.Context, req probe.Request) probe.CheckResult {
	res := o.Inner.Check(ctx, req)
	outcome := Outcome(res)
	o.Metrics.ProbesTotal.WithLabelValues(outcome).Inc()
	o.Metrics.ProbeDuration.WithLabelValues(outcome).Observe(res.LatencyMS / 1000)
	return res
}
