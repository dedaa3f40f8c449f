// Package metrics defines the Prometheus metrics exported by the
// streambench server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveStreams counts the streams currently being served.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streambench_server_active_streams",
			Help: "Number of streams currently being served.",
		},
	)

	// StreamsTotal counts served streams by final state.
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streambench_server_streams_total",
			Help: "Number of streams served, by final state.",
		},
		[]string{"state"},
	)

	// FramesSentTotal counts the frames handed to the transport.
	FramesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streambench_server_frames_sent_total",
			Help: "Number of frames sent.",
		},
	)

	// BytesSentTotal counts the payload bytes handed to the transport.
	BytesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streambench_server_bytes_sent_total",
			Help: "Number of payload bytes sent.",
		},
	)

	// StreamDuration is the wall-clock duration of served streams.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streambench_server_stream_duration_seconds",
			Help:    "Duration of served streams, by final state.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"state"},
	)

	// PayloadBytes is the size of the payload generated at startup.
	PayloadBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streambench_server_payload_bytes",
			Help: "Size of the payload served to every stream.",
		},
	)
)
