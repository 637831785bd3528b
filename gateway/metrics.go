package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the counters of one or more sessions. Sessions sharing a
// Metrics value add to the same series.
type Metrics struct {
	registry *prometheus.Registry

	FramesReceived    *prometheus.CounterVec
	FramesSent        *prometheus.CounterVec
	DecodeErrors      prometheus.Counter
	HeartbeatLatency  prometheus.Histogram
	ZombieConnections prometheus.Counter
	Reconnects        *prometheus.CounterVec
	Failures          *prometheus.CounterVec
	State             *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "frames_received_total",
			Help:      "Frames received from the gateway by opcode",
		}, []string{"opcode"}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "frames_sent_total",
			Help:      "Frames sent to the gateway by opcode",
		}, []string{"opcode"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "decode_errors_total",
			Help:      "Inbound blocks that could not be decoded",
		}),
		HeartbeatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "heartbeat_latency_seconds",
			Help:      "Time between a heartbeat and its acknowledgement",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		ZombieConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "zombie_connections_total",
			Help:      "Connections dropped because a heartbeat went unacknowledged",
		}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts by kind (resume, identify)",
		}, []string{"kind"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Failures reported to the application by kind",
		}, []string{"kind"}),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aurora",
			Subsystem: "gateway",
			Name:      "sessions",
			Help:      "Sessions by connection state",
		}, []string{"state"}),
	}
	r.MustRegister(
		m.FramesReceived,
		m.FramesSent,
		m.DecodeErrors,
		m.HeartbeatLatency,
		m.ZombieConnections,
		m.Reconnects,
		m.Failures,
		m.State,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
