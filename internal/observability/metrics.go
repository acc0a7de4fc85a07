package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP admin requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP admin request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	indexRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "relay",
			Name:      "index_requests_total",
			Help:      "Index requests served over the wire protocol.",
		},
		[]string{"node", "status"},
	)
	indexDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayctl",
			Subsystem: "relay",
			Name:      "index_request_duration_seconds",
			Help:      "Index request service duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, indexRequests, indexDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	code := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, code).Inc()
	httpDuration.WithLabelValues(node, method, path, code).Observe(duration.Seconds())
}

func RecordIndexRequest(node string, status uint32, duration time.Duration) {
	RegisterMetrics()
	code := strconv.FormatUint(uint64(status), 10)
	indexRequests.WithLabelValues(node, code).Inc()
	indexDuration.WithLabelValues(node, code).Observe(duration.Seconds())
}
