// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsSentTotal counts datagrams handed to the sink
	PacketsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtpreplay_packets_sent_total",
			Help: "Total number of RTP datagrams sent",
		},
		[]string{"run"},
	)

	// BytesSentTotal counts datagram payload bytes handed to the sink
	BytesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtpreplay_bytes_sent_total",
			Help: "Total number of RTP bytes sent",
		},
		[]string{"run"},
	)

	// LateSendsTotal counts steps whose computed delay was clamped to zero
	LateSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtpreplay_late_sends_total",
			Help: "Total number of sends that fell behind the captured cadence",
		},
		[]string{"run"},
	)

	// CaptureRestartsTotal counts capture reopens at end of file
	CaptureRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtpreplay_capture_restarts_total",
			Help: "Total number of times the capture was reopened for another loop",
		},
		[]string{"run"},
	)

	// SendLatencySeconds measures the wall-clock cost of one sink send
	SendLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rtpreplay_send_latency_seconds",
			Help:    "Latency of a single datagram send in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"run"},
	)

	// ScheduledDelaySeconds tracks the delays requested from the scheduler
	ScheduledDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rtpreplay_scheduled_delay_seconds",
			Help:    "Delay requested before the next send in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18), // 10µs to ~2.6s
		},
		[]string{"run"},
	)

	// PlayerState tracks the player state (0=terminated, 1=running)
	PlayerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rtpreplay_player_state",
			Help: "Current player state (0=terminated, 1=running)",
		},
		[]string{"run"},
	)
)

// PlayerStateValue represents player state as a numeric value for the gauge
const (
	PlayerStateTerminated = 0
	PlayerStateRunning    = 1
)
