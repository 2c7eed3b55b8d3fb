package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acomms",
			Name:      "frames_sent_total",
			Help:      "Total DCCL/CCL frames handed to a driver for transmission.",
		},
		[]string{"driver", "queue"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acomms",
			Name:      "frames_received_total",
			Help:      "Total frames decoded from an inbound packet.",
		},
		[]string{"driver", "queue"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "acomms",
			Name:      "queue_depth",
			Help:      "Current number of messages held by a queue.",
		},
		[]string{"queue"},
	)
	ackRoundTrip = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acomms",
			Name:      "ack_round_trip_seconds",
			Help:      "Time between give_data and the matching ack for one frame.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	sbdBadPacket = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acomms",
			Name:      "sbd_bad_packet_total",
			Help:      "SBD messages that failed pre-header/header/payload decoding.",
		},
		[]string{"remote"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acomms",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total introspection HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acomms",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Introspection HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesSent, framesReceived, queueDepth, ackRoundTrip, sbdBadPacket,
			httpRequests, httpDuration,
		)
	})
}

func RecordFrameSent(driver, queue string) {
	RegisterMetrics()
	framesSent.WithLabelValues(driver, queue).Inc()
}

func RecordFrameReceived(driver, queue string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(driver, queue).Inc()
}

func SetQueueDepth(queue string, depth int) {
	RegisterMetrics()
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}

func RecordAckRoundTrip(queue string, d time.Duration) {
	RegisterMetrics()
	ackRoundTrip.WithLabelValues(queue).Observe(d.Seconds())
}

func RecordSBDBadPacket(remote string) {
	RegisterMetrics()
	sbdBadPacket.WithLabelValues(remote).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
