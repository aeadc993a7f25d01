package observability

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgtctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "serial",
			Name:      "frames_total",
			Help:      "Frames decoded from the board stream by message type.",
		},
		[]string{"type"},
	)
	protocolErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "serial",
			Name:      "protocol_errors_total",
			Help:      "Bytes dropped while resynchronizing the board stream.",
		},
	)
	connects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "connection",
			Name:      "connects_total",
			Help:      "Successful board connections by device path.",
		},
		[]string{"path"},
	)
	openFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "connection",
			Name:      "open_failures_total",
			Help:      "Failed device open attempts by device path.",
		},
		[]string{"path"},
	)
	disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "connection",
			Name:      "disconnects_total",
			Help:      "Board sessions lost after being connected, by reason.",
		},
		[]string{"reason"},
	)
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgtctl",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Board queries by reply tag and result.",
		},
		[]string{"tag", "result"},
	)
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgtctl",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Board query latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"tag", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesDecoded, protocolErrors,
			connects, openFailures, disconnects,
			queries, queryDuration,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(msgType byte) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(fmt.Sprintf("0x%02x", msgType)).Inc()
}

func RecordProtocolErrors(n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	protocolErrors.Add(float64(n))
}

func RecordConnect(path string) {
	RegisterMetrics()
	connects.WithLabelValues(path).Inc()
}

func RecordOpenFailure(path string) {
	RegisterMetrics()
	openFailures.WithLabelValues(path).Inc()
}

// RecordDisconnect counts a lost session; reason is "unplugged" or "error".
func RecordDisconnect(reason string) {
	RegisterMetrics()
	disconnects.WithLabelValues(reason).Inc()
}

func RecordQuery(tag, result string, duration time.Duration) {
	RegisterMetrics()
	queries.WithLabelValues(tag, result).Inc()
	queryDuration.WithLabelValues(tag, result).Observe(duration.Seconds())
}
