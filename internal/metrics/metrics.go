package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "forecastbench"

// Collector exposes Prometheus metrics for calls to the forecasting service
// and for orchestrated runs.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runTotal        *prometheus.CounterVec
	leaderboardSize prometheus.Gauge
}

// NewCollector constructs a collector. An empty namespace falls back to
// "forecastbench".
func NewCollector(namespace string) (*Collector, error) {
	if strings.TrimSpace(namespace) == "" {
		namespace = defaultNamespace
	}
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for forecasting service requests.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "requests_total",
		Help:      "Total number of forecasting service requests.",
	}, []string{"method", "route", "status"})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runs",
		Name:      "total",
		Help:      "Orchestrated operations by kind and outcome.",
	}, []string{"operation", "outcome"})

	leaderboardSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "runs",
		Name:      "leaderboard_entries",
		Help:      "Entries on the current leaderboard.",
	})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, runTotal, leaderboardSize} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runTotal:        runTotal,
		leaderboardSize: leaderboardSize,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentTransport wraps next so every outbound request is recorded.
// A nil next uses http.DefaultTransport.
func (c *Collector) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		route := Route(req.URL.Path)
		c.requestTotal.WithLabelValues(req.Method, route, status).Inc()
		c.requestDuration.WithLabelValues(req.Method, route, status).Observe(time.Since(start).Seconds())
		return resp, err
	})
}

// ObserveRun counts one orchestrated operation.
func (c *Collector) ObserveRun(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.runTotal.WithLabelValues(operation, outcome).Inc()
}

// SetLeaderboardSize records the current leaderboard length.
func (c *Collector) SetLeaderboardSize(n int) {
	c.leaderboardSize.Set(float64(n))
}

// Route collapses identifiers in service paths so label cardinality stays
// bounded.
func Route(path string) string {
	path = "/" + strings.Trim(path, "/")
	for _, prefix := range []string{"/datasets/", "/configs/"} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{id}"
		}
	}
	return path
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
