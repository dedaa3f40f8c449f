package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/robertodauria/streambench/internal/metrics"
	"github.com/robertodauria/streambench/internal/netx"
	"github.com/robertodauria/streambench/pkg/streambench"
	"github.com/robertodauria/streambench/pkg/streambench/dataservice"
	"github.com/robertodauria/streambench/pkg/streambench/payload"
	"github.com/robertodauria/streambench/pkg/streambench/results"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

type staticFlows netx.Flow

func (f staticFlows) Flow(net.Addr) (*netx.Flow, bool) {
	flow := netx.Flow(f)
	return &flow, flow.ID != ""
}

// start serves h over an in-memory listener and returns a connected client.
func start(t *testing.T, h *Handler) dataservice.DataServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	dataservice.RegisterDataServiceServer(srv, h)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return dataservice.NewDataServiceClient(conn)
}

func drain(t *testing.T, ctx context.Context, c dataservice.DataServiceClient) ([]byte, [][]byte) {
	t.Helper()
	stream, err := c.GiveMeData(ctx, &dataservice.DataRequest{},
		grpc.MaxCallRecvMsgSize(spec.MaxMessageSize))
	require.NoError(t, err)
	var all bytes.Buffer
	var frames [][]byte
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			return all.Bytes(), frames
		}
		require.NoError(t, err)
		all.Write(f.GetValue())
		frames = append(frames, f.GetValue())
	}
}

func genPayload(t *testing.T, size uint64) *payload.Payload {
	t.Helper()
	p, err := payload.Generate(size)
	require.NoError(t, err)
	return p
}

func TestGiveMeData_Frames(t *testing.T) {
	p := genPayload(t, 16)
	c := start(t, New(p, 4, "", nil))

	all, frames := drain(t, context.Background(), c)
	require.Len(t, frames, 4)
	for _, f := range frames {
		assert.Len(t, f, 4)
	}
	assert.Equal(t, p.Slice(0, 16), all)
}

func TestGiveMeData_ShortLastFrame(t *testing.T) {
	p := payload.FromBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	c := start(t, New(p, 4, "", nil))

	all, frames := drain(t, context.Background(), c)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte{8, 9}, frames[2])
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)
}

func TestGiveMeData_IdenticalDrains(t *testing.T) {
	p := genPayload(t, 1<<20)
	c := start(t, New(p, 1000, "", nil))

	first, _ := drain(t, context.Background(), c)
	second, _ := drain(t, context.Background(), c)
	assert.Len(t, first, 1<<20)
	assert.Equal(t, first, second)
}

func TestGiveMeData_ConcurrentStreams(t *testing.T) {
	p := genPayload(t, 1<<20)
	c := start(t, New(p, 4096, "", nil))

	const n = 8
	var wg sync.WaitGroup
	got := make([][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stream, err := c.GiveMeData(context.Background(), &dataservice.DataRequest{})
			if err != nil {
				return
			}
			var buf bytes.Buffer
			for {
				f, err := stream.Recv()
				if err != nil {
					break
				}
				buf.Write(f.GetValue())
			}
			got[i] = buf.Bytes()
		}(i)
	}
	wg.Wait()
	want := p.Slice(0, p.Len())
	for i := range got {
		assert.Equal(t, want, got[i], "stream %d", i)
	}
}

func TestGiveMeData_Receiver(t *testing.T) {
	p := genPayload(t, 1<<22)
	c := start(t, New(p, spec.ChunkSize, "", nil))

	trial, err := streambench.Receiver(context.Background(), c, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<22), trial.BytesReceived)
	assert.Equal(t, int64(2), trial.Frames)
}

func readResults(t *testing.T, dir string) []results.StreamResult {
	t.Helper()
	var out []results.StreamResult
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var r results.StreamResult
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestGiveMeData_Archive(t *testing.T) {
	dir := t.TempDir()
	p := genPayload(t, 64)
	c := start(t, New(p, 16, dir, staticFlows{ID: "flow-1", CC: "reno"}))

	ctx := metadata.AppendToOutgoingContext(context.Background(),
		spec.MeasurementIDKey, "test-mid")
	drain(t, ctx, c)

	// The result is written after the last frame, so it may land after
	// the client has seen the end of the stream.
	require.Eventually(t, func() bool {
		return len(readResults(t, dir)) == 1
	}, timeout, tick)

	r := readResults(t, dir)[0]
	assert.Equal(t, "flow-1", r.UUID)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "reno", r.CongestionControl)
	// Without a TCP connection there is nothing to snapshot.
	assert.Nil(t, r.TCPInfo)
	assert.Nil(t, r.BBRInfo)
	assert.Equal(t, "test-mid", r.MeasurementID)
	assert.Equal(t, string(spec.StreamDownload), r.Kind)
	assert.Equal(t, "done", r.State)
	assert.Equal(t, int64(64), r.BytesSent)
	assert.Equal(t, int64(4), r.FramesSent)
	assert.Equal(t, 16, r.ChunkSize)
	assert.Empty(t, r.Error)
	_, err := os.Stat(filepath.Join(dir, string(spec.StreamDownload)))
	assert.NoError(t, err)
}

func TestGiveMeData_ClientCancel(t *testing.T) {
	dir := t.TempDir()
	p := genPayload(t, 16<<20)
	c := start(t, New(p, 512, dir, nil))
	aborted := testutil.ToFloat64(metrics.StreamsTotal.WithLabelValues("aborted"))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.GiveMeData(ctx, &dataservice.DataRequest{})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)
	cancel()

	_, err = stream.Recv()
	for err == nil {
		_, err = stream.Recv()
	}
	assert.Equal(t, codes.Canceled, status.Code(err))

	require.Eventually(t, func() bool {
		return len(readResults(t, dir)) == 1
	}, timeout, tick)
	r := readResults(t, dir)[0]
	assert.Equal(t, "aborted", r.State)
	assert.NotEmpty(t, r.Error)
	assert.NotEmpty(t, r.UUID)
	assert.Less(t, r.BytesSent, int64(16<<20))
	assert.Greater(t,
		testutil.ToFloat64(metrics.StreamsTotal.WithLabelValues("aborted")), aborted)
}

func TestGiveMeData_InvalidChunkSize(t *testing.T) {
	p := genPayload(t, 16)
	c := start(t, New(p, 0, "", nil))

	stream, err := c.GiveMeData(context.Background(), &dataservice.DataRequest{})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Internal, status.Code(err))
}

const (
	timeout = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func TestGiveMeData_FlowSnapshot(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("congestion control and TCP_INFO are Linux only")
	}
	dir := t.TempDir()
	tcp, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	lis := netx.NewListener(tcp)
	lis.CC = "reno"
	srv := grpc.NewServer()
	dataservice.RegisterDataServiceServer(srv, New(genPayload(t, 1<<20), 64*1024, dir, lis))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	all, _ := drain(t, context.Background(), dataservice.NewDataServiceClient(conn))
	require.Len(t, all, 1<<20)

	require.Eventually(t, func() bool {
		return len(readResults(t, dir)) == 1
	}, timeout, tick)
	r := readResults(t, dir)[0]
	assert.Equal(t, "reno", r.CongestionControl)
	assert.NotEmpty(t, r.UUID)
	assert.Nil(t, r.BBRInfo)
	if r.TCPInfo == nil {
		// TCP_INFO is only read on some architectures.
		return
	}
	assert.Equal(t, uint8(1), r.TCPInfo.State)
	assert.Positive(t, r.TCPInfo.BytesAcked)
}
