// Package metrics provides Prometheus collectors for bucket requests and
// metadata cache lookups.
//
// A Metrics value owns its registry, so several storages can be instrumented
// independently. It satisfies transport.Observer and wraps any
// bucketfs.MetadataCache through InstrumentCache.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bucketfs"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	reg          *prometheus.Registry
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "requests_total",
		Help:      "Total number of bucket requests, partitioned by operation and status code.",
	}, []string{"op", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "Histogram of bucket request latencies.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Metadata cache operations, partitioned by operation and result.",
	}, []string{"op", "result"})

	reg.MustRegister(requests, latency, cacheLookups)

	return &Metrics{
		reg:          reg,
		requests:     requests,
		latency:      latency,
		cacheLookups: cacheLookups,
	}
}

// Registry returns the underlying Prometheus registry for advanced usage.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveRequest records one completed bucket request. A status of 0 means the
// request failed before a response arrived and is recorded as code "error".
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(op, code).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteToTextfile writes the current values in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) observeCache(op, result string) {
	m.cacheLookups.WithLabelValues(op, result).Inc()
}
