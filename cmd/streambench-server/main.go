package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/go/warnonerror"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/robertodauria/streambench/internal/handler"
	"github.com/robertodauria/streambench/internal/metrics"
	"github.com/robertodauria/streambench/internal/netx"
	"github.com/robertodauria/streambench/internal/transport"
	"github.com/robertodauria/streambench/pkg/streambench"
	"github.com/robertodauria/streambench/pkg/streambench/dataservice"
	"github.com/robertodauria/streambench/pkg/streambench/payload"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

var (
	flagListen    = flag.String("listen", ":5000", "Listen address/port for gRPC connections")
	flagSize      = flag.Uint64("size", spec.DefaultPayloadSize, "Payload size in bytes (multiple of 8)")
	flagChunkSize = flag.Int("chunk-size", spec.ChunkSize, "Maximum frame size in bytes")
	flagTLSDir    = flag.String("tls-dir", "../tls", "Directory containing the credential files")
	flagDataDir   = flag.String("datadir", "", "Directory to archive stream results to (disabled if empty)")
	flagCC        = flag.String("cc", "", "TCP congestion control algorithm for accepted connections (kernel default if empty)")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagMode      = flagx.Enum{
		Options: transport.Modes(),
		Value:   string(transport.ModeMTLS),
	}
)

func init() {
	flag.Var(&flagMode, "mode", "Transport security mode (none, tls, mtls)")
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from env")

	logger, err := newLogger(*flagDebug)
	rtx.Must(err, "Could not initialize logger")
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	mode, err := transport.ParseMode(flagMode.Value)
	rtx.Must(err, "Invalid -mode")
	rtx.Must(streambench.ValidateChunkSize(*flagChunkSize), "Invalid -chunk-size")

	promServer := prometheusx.MustServeMetrics()
	defer warnonerror.Close(promServer, "Could not close the metrics server")

	bundle, err := transport.LoadServerBundle(mode, *flagTLSDir)
	rtx.Must(err, "Could not load server credentials from %s", *flagTLSDir)

	zap.L().Sugar().Infow("Generating payload", "bytes", *flagSize)
	p, err := payload.Generate(*flagSize)
	rtx.Must(err, "Could not generate payload")
	metrics.PayloadBytes.Set(float64(p.Len()))

	tcp, err := net.Listen("tcp", *flagListen)
	rtx.Must(err, "Could not listen on %s", *flagListen)
	lis := netx.NewListener(tcp)
	lis.CC = *flagCC

	srv := grpc.NewServer(bundle.ServerOptions()...)
	dataservice.RegisterDataServiceServer(srv,
		handler.New(p, *flagChunkSize, *flagDataDir, lis))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go shutdown(ctx, srv)

	zap.L().Sugar().Infow("About to listen for streambench tests",
		"addr", lis.Addr().String(),
		"mode", mode,
		"chunk_size", *flagChunkSize)
	rtx.Must(srv.Serve(lis), "Could not serve on %s", *flagListen)
	zap.L().Sugar().Info("Server stopped")
}

// shutdown stops srv gracefully once ctx is done. A second signal aborts
// in-flight streams.
func shutdown(ctx context.Context, srv *grpc.Server) {
	<-ctx.Done()
	zap.L().Sugar().Info("Received signal, shutting down gracefully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		zap.L().Sugar().Warn("Received second signal, aborting in-flight streams")
		srv.Stop()
	}()
	srv.GracefulStop()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
