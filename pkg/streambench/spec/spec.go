// Package spec contains constants for the streambench protocol.
package spec

import "time"

const (
	// ChunkSize is the default size of a frame. It stays just below the
	// 4 MiB default message limit of most gRPC implementations.
	ChunkSize = 4 * 1000 * 1000

	// MaxMessageSize is the largest frame a client accepts. Servers refuse
	// to start with a chunk size above this value.
	MaxMessageSize = 1 << 24

	// DefaultPayloadSize is the default size of the payload generated by the
	// server at startup.
	DefaultPayloadSize = 1 << 30

	// WordSize is the generation unit of the payload. Payload sizes must be
	// a multiple of WordSize.
	WordSize = 8

	// MinMeasureInterval is the minimum interval between progress
	// measurements taken while draining a stream.
	MinMeasureInterval = 100 * time.Millisecond

	// AvgMeasureInterval is the average interval between progress
	// measurements.
	AvgMeasureInterval = 250 * time.Millisecond

	// MaxMeasureInterval is the maximum interval between progress
	// measurements.
	MaxMeasureInterval = 400 * time.Millisecond

	// ServiceName is the fully qualified name of the gRPC service.
	ServiceName = "grpc_bench.DataService"

	// GiveMeDataMethod is the full method name of the streaming call.
	GiveMeDataMethod = "/" + ServiceName + "/GiveMeData"

	// MeasurementIDKey is the gRPC metadata key carrying the client's
	// measurement ID.
	MeasurementIDKey = "mid"

	// DefaultServerName is the name the test certificates are issued for.
	DefaultServerName = "x.test.example.com"
)

// StreamKind indicates the kind of stream being archived.
type StreamKind string

const (
	// StreamDownload is a server-to-client data stream.
	StreamDownload = StreamKind("download")
)
