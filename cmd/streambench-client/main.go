package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/go/warnonerror"
	"go.uber.org/zap"

	"github.com/robertodauria/streambench/client"
	"github.com/robertodauria/streambench/client/config"
	"github.com/robertodauria/streambench/internal/transport"
)

var (
	flagServer     = flag.String("server", config.DefaultServer, "Server address")
	flagTrials     = flag.Uint64("trials", config.DefaultTrials, "Number of sequential trials")
	flagTLSDir     = flag.String("tls-dir", config.DefaultCredentialsDir, "Directory containing the credential files")
	flagServerName = flag.String("server-name", config.DefaultServerName, "Name expected in the server certificate")
	flagTimeout    = flag.Duration("timeout", config.DefaultTimeout, "Connection timeout")
	flagMID        = flag.String("mid", "", "Measurement ID (generated if empty)")
	flagOutput     = flag.String("output", "", "Path of the JSON result file (disabled if empty)")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagMode       = flagx.Enum{
		Options: transport.Modes(),
		Value:   string(config.DefaultMode),
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

	trials, err := config.ParseTrials(*flagTrials)
	rtx.Must(err, "Invalid -trials")

	cfg := config.New(*flagServer, mode, trials, *flagTimeout)
	cfg.CredentialsDir = *flagTLSDir
	cfg.ServerName = *flagServerName
	cfg.MeasurementID = *flagMID
	cfg.OutputPath = *flagOutput

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := client.Dial(ctx, cfg)
	rtx.Must(err, "Could not connect to %s", cfg.Server)
	defer warnonerror.Close(conn, "Could not close the connection")

	res, err := client.New(conn, cfg).Run(ctx)
	rtx.Must(err, "Benchmark failed")
	fmt.Printf("%.4f GiB/s\n", res.Throughput)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
