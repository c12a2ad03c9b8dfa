package obs

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	requestsMetric = "http_requests_total"
	latencyMetric  = "http_request_duration_seconds"
)

// Collector holds the request metrics for the service. Every instance owns its
// registry so tests can run side by side without duplicate-registration panics,
// and so the exposition handler serves exactly this collector's metrics.
//
// Label cardinality is the caller's problem: the pipeline passes route patterns
// rather than raw paths, which keeps the endpoint label bounded. The collector
// itself enforces no cardinality limit.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewCollector creates a collector with a fresh registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      requestsMetric,
			Help:      "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	latency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      latencyMetric,
			Help:      "HTTP request latency",
		},
	)
	registry.MustRegister(requests, latency)

	return &Collector{
		registry: registry,
		requests: requests,
		latency:  latency,
	}
}

// IncRequest counts one completed request under its method, endpoint and status.
func (c *Collector) IncRequest(method, endpoint string, status int) {
	c.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// ObserveLatency appends one request duration to the latency distribution.
func (c *Collector) ObserveLatency(seconds float64) {
	c.latency.Observe(seconds)
}

// Registry exposes the underlying registry for the exposition handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RequestKey identifies one counter bucket in a snapshot.
type RequestKey struct {
	Method   string
	Endpoint string
	Status   string
}

// Snapshot is a point-in-time read of the collector's state.
type Snapshot struct {
	Requests       map[RequestKey]float64
	LatencyCount   uint64
	LatencySum     float64
	LatencyBuckets map[float64]uint64
}

// TotalRequests sums the counter across all label combinations.
func (s Snapshot) TotalRequests() float64 {
	var total float64
	for _, v := range s.Requests {
		total += v
	}
	return total
}

// Snapshot gathers the current counter and histogram values. Two snapshots
// taken with no traffic in between are identical.
func (c *Collector) Snapshot() (Snapshot, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gathering metrics: %w", err)
	}

	snap := Snapshot{
		Requests:       make(map[RequestKey]float64),
		LatencyBuckets: make(map[float64]uint64),
	}
	for _, mf := range families {
		switch {
		case mf.GetType() == dto.MetricType_COUNTER:
			for _, m := range mf.GetMetric() {
				snap.Requests[requestKey(m)] = m.GetCounter().GetValue()
			}
		case mf.GetType() == dto.MetricType_HISTOGRAM:
			for _, m := range mf.GetMetric() {
				h := m.GetHistogram()
				snap.LatencyCount = h.GetSampleCount()
				snap.LatencySum = h.GetSampleSum()
				for _, b := range h.GetBucket() {
					snap.LatencyBuckets[b.GetUpperBound()] = b.GetCumulativeCount()
				}
			}
		}
	}
	return snap, nil
}

func requestKey(m *dto.Metric) RequestKey {
	var key RequestKey
	for _, l := range m.GetLabel() {
		switch l.GetName() {
		case "method":
			key.Method = l.GetValue()
		case "endpoint":
			key.Endpoint = l.GetValue()
		case "status":
			key.Status = l.GetValue()
		}
	}
	return key
}
