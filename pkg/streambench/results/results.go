// Package results contains the data types produced by streambench senders,
// receivers and benchmark runs. They are serialized as JSON when archived.
package results

import (
	"errors"
	"time"

	"github.com/m-lab/tcp-info/inetdiag"
	"github.com/m-lab/tcp-info/tcp"
)

// ErrZeroElapsed is returned by Throughput when the elapsed time is zero.
var ErrZeroElapsed = errors.New("elapsed time is zero")

// GiB is the number of bytes in a gibibyte.
const GiB = 1 << 30

// Throughput returns bytes/elapsed in GiB/s.
func Throughput(bytes int64, elapsed time.Duration) (float64, error) {
	if elapsed <= 0 {
		return 0, ErrZeroElapsed
	}
	return float64(bytes) / GiB / elapsed.Seconds(), nil
}

// AppInfo contains an application level measurement.
type AppInfo struct {
	NumBytes int64
	// ElapsedTime is in microseconds.
	ElapsedTime int64
}

// The BBRInfo struct contains information measured using BBR. Variables
// here have the same measurement unit that is used by the Linux kernel.
type BBRInfo struct {
	inetdiag.BBRInfo
	ElapsedTime int64
}

// The TCPInfo struct contains information measured using TCP_INFO.
type TCPInfo struct {
	tcp.LinuxTCPInfo
	ElapsedTime int64
}

// Measurement is a progress sample taken while a stream is drained.
type Measurement struct {
	AppInfo *AppInfo `json:",omitempty"`
	// Trial is the index of the trial this measurement belongs to.
	Trial int
}

// Trial is the outcome of draining one stream to completion.
type Trial struct {
	// Index is the position of this trial in the benchmark run.
	Index int
	// BytesReceived is the sum of the lengths of all frames received.
	BytesReceived int64
	// Frames is the number of frames received.
	Frames int64
	// Elapsed is the time between issuing the request and observing the
	// end of the stream.
	Elapsed time.Duration
	// StartTime is when the request was issued.
	StartTime time.Time
	// EndTime is when the end of the stream was observed.
	EndTime time.Time
	// Throughput is BytesReceived/Elapsed in GiB/s, or zero if Elapsed is
	// zero.
	Throughput float64
}

// BenchmarkResult aggregates all the trials of a benchmark run.
type BenchmarkResult struct {
	// GitShortCommit is the Git commit (short form) of the running client code.
	GitShortCommit string `json:",omitempty"`
	// MeasurementID identifies this run on the server side.
	MeasurementID string `json:",omitempty"`
	// Server is the address of the server.
	Server string `json:",omitempty"`
	// Mode is the transport security mode.
	Mode string `json:",omitempty"`

	StartTime time.Time
	EndTime   time.Time

	// TotalBytes is the sum of BytesReceived over all trials.
	TotalBytes int64
	// TotalTime is the sum of Elapsed over all trials.
	TotalTime time.Duration
	// TrialCount is the number of completed trials.
	TrialCount uint32

	// Throughput is (TotalBytes / 2^30) / TotalTime, in GiB/s.
	Throughput float64

	// MeanTrialThroughput is the arithmetic mean of the per-trial throughput.
	MeanTrialThroughput float64
	// MinTrialThroughput is the lowest per-trial throughput.
	MinTrialThroughput float64
	// MaxTrialThroughput is the highest per-trial throughput.
	MaxTrialThroughput float64

	Trials []Trial
}

// StreamResult is the archival record of one stream served by the server.
type StreamResult struct {
	// GitShortCommit is the Git commit (short form) of the running server code.
	GitShortCommit string `json:",omitempty"`
	// ID identifies this stream. Several streams may share a flow.
	ID string
	// UUID identifies the TCP flow the stream was served on.
	UUID string
	// MeasurementID is the measurement ID sent by the client, if any.
	MeasurementID string `json:",omitempty"`
	// Client is the client's endpoint (ip:port).
	Client string `json:",omitempty"`
	// Kind is the stream kind.
	Kind string

	StartTime time.Time
	EndTime   time.Time

	// PayloadSize is the size of the payload being served.
	PayloadSize int
	// ChunkSize is the maximum frame size.
	ChunkSize int
	// FramesSent is the number of frames handed to the transport.
	FramesSent int64
	// BytesSent is the sum of the lengths of the frames sent.
	BytesSent int64
	// State is the final state of the stream ("done" or "aborted").
	State string
	// Error is the reason the stream was aborted, if any.
	Error string `json:",omitempty"`

	// CongestionControl is the congestion control algorithm of the flow.
	CongestionControl string `json:",omitempty"`
	// TCPInfo is a snapshot of the flow taken when the stream ended.
	TCPInfo *TCPInfo `json:",omitempty"`
	// BBRInfo is taken with TCPInfo when the flow uses BBR.
	BBRInfo *BBRInfo `json:",omitempty"`
}
