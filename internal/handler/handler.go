// Package handler implements the DataService streaming endpoint.
package handler

import (
	"context"
	"errors"
	"net"

	"github.com/google/uuid"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/warnonerror"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/robertodauria/streambench/internal/congestion"
	"github.com/robertodauria/streambench/internal/metrics"
	"github.com/robertodauria/streambench/internal/netx"
	"github.com/robertodauria/streambench/internal/persistence"
	"github.com/robertodauria/streambench/internal/tcpinfox"
	"github.com/robertodauria/streambench/pkg/streambench"
	"github.com/robertodauria/streambench/pkg/streambench/dataservice"
	"github.com/robertodauria/streambench/pkg/streambench/payload"
	"github.com/robertodauria/streambench/pkg/streambench/results"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// FlowLookup returns the flow of a connection given its remote address.
type FlowLookup interface {
	Flow(addr net.Addr) (*netx.Flow, bool)
}

// Handler serves the same read-only payload to every stream.
type Handler struct {
	payload   *payload.Payload
	chunkSize int
	dataDir   string
	flows     FlowLookup
}

// New creates a new Handler. If dataDir is empty, stream results are not
// archived. flows may be nil.
func New(p *payload.Payload, chunkSize int, dataDir string, flows FlowLookup) *Handler {
	return &Handler{
		payload:   p,
		chunkSize: chunkSize,
		dataDir:   dataDir,
		flows:     flows,
	}
}

// GiveMeData streams the whole payload in frames of at most chunkSize bytes.
func (h *Handler) GiveMeData(req *dataservice.DataRequest,
	stream grpc.ServerStreamingServer[dataservice.DataResponse]) error {
	ctx := stream.Context()
	flow, client := h.connInfo(ctx)
	id := flow.ID
	mid := measurementID(ctx)

	zap.L().Sugar().Infow("Streaming payload",
		"uuid", id,
		"mid", mid,
		"client", client,
		"bytes", h.payload.Len(),
		"chunk_size", h.chunkSize)

	metrics.ActiveStreams.Inc()
	res, err := streambench.Sender(ctx, stream, h.payload, h.chunkSize)
	metrics.ActiveStreams.Dec()

	res.GitShortCommit = prometheusx.GitShortCommit
	res.ID = uuid.NewString()
	res.UUID = id
	res.MeasurementID = mid
	res.Client = client
	res.CongestionControl = flow.CC
	snapshot(res, flow)

	metrics.FramesSentTotal.Add(float64(res.FramesSent))
	metrics.BytesSentTotal.Add(float64(res.BytesSent))
	metrics.StreamsTotal.WithLabelValues(res.State).Inc()
	metrics.StreamDuration.WithLabelValues(res.State).Observe(res.EndTime.Sub(res.StartTime).Seconds())

	if err != nil {
		res.Error = err.Error()
		zap.L().Sugar().Warnw("Stream aborted",
			"uuid", id,
			"mid", mid,
			"offset", res.BytesSent,
			"frames", res.FramesSent,
			"error", err)
	} else {
		zap.L().Sugar().Debugw("Stream completed",
			"uuid", id,
			"frames", res.FramesSent,
			"elapsed", res.EndTime.Sub(res.StartTime))
	}

	if h.dataDir != "" {
		h.writeResult(res)
	}
	return toStatus(ctx, err)
}

// connInfo returns the flow and the remote address of the stream's
// connection. Unknown flows get a random UUID and no connection.
func (h *Handler) connInfo(ctx context.Context) (*netx.Flow, string) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return &netx.Flow{ID: uuid.NewString()}, ""
	}
	if h.flows != nil {
		if flow, ok := h.flows.Flow(p.Addr); ok {
			return flow, p.Addr.String()
		}
	}
	return &netx.Flow{ID: uuid.NewString()}, p.Addr.String()
}

// snapshot records the kernel's view of the flow at the end of the stream.
func snapshot(res *results.StreamResult, flow *netx.Flow) {
	if flow.Conn == nil {
		return
	}
	elapsed := res.EndTime.Sub(res.StartTime).Microseconds()
	tcpInfo, err := tcpinfox.GetTCPInfo(flow.Conn)
	if err != nil {
		if !errors.Is(err, tcpinfox.ErrNoSupport) {
			zap.L().Sugar().Debugw("Cannot read TCP_INFO", "uuid", flow.ID, "error", err)
		}
		return
	}
	res.TCPInfo = &results.TCPInfo{LinuxTCPInfo: *tcpInfo, ElapsedTime: elapsed}
	if flow.CC != "bbr" {
		return
	}
	// Errors are not critical here.
	if bbrInfo, err := congestion.GetBBRInfo(flow.Conn); err == nil {
		res.BBRInfo = &results.BBRInfo{BBRInfo: bbrInfo, ElapsedTime: elapsed}
	}
}

func measurementID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(spec.MeasurementIDKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

// toStatus converts a Sender error into a gRPC status error.
func toStatus(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return status.FromContextError(ctx.Err()).Err()
	case errors.Is(err, streambench.ErrInvalidChunkSize):
		return status.Error(codes.Internal, err.Error())
	}
	if s, ok := status.FromError(err); ok {
		return s.Err()
	}
	return status.Error(codes.Unavailable, err.Error())
}

func (h *Handler) writeResult(res *results.StreamResult) {
	// Streams are multiplexed over a flow, so files are named by stream.
	fp, err := persistence.New(h.dataDir, res.Kind, res.ID)
	if err != nil {
		zap.L().Sugar().Errorw("persistence.New failed", "uuid", res.UUID, "id", res.ID, "error", err)
		return
	}
	if err := fp.Write(res); err != nil {
		zap.L().Sugar().Errorw("failed to write result", "uuid", res.UUID, "id", res.ID, "error", err)
	}
	warnonerror.Close(fp, res.Kind+": ignoring fp.Close error")
}
