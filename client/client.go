package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/m-lab/go/prometheusx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/robertodauria/streambench/client/config"
	"github.com/robertodauria/streambench/client/emitter"
	"github.com/robertodauria/streambench/internal/persistence"
	"github.com/robertodauria/streambench/internal/transport"
	"github.com/robertodauria/streambench/pkg/streambench"
	"github.com/robertodauria/streambench/pkg/streambench/benchmark"
	"github.com/robertodauria/streambench/pkg/streambench/dataservice"
	"github.com/robertodauria/streambench/pkg/streambench/results"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// measurementsBuffer lets the emitter lag behind the receiver a little
// before measurements start being discarded.
const measurementsBuffer = 16

type Client struct {
	svc     dataservice.DataServiceClient
	config  *config.ClientConfig
	emitter emitter.Emitter
}

// Dial loads the credentials described by cfg and connects to cfg.Server,
// waiting at most cfg.Timeout for the connection to become ready.
func Dial(ctx context.Context, cfg *config.ClientConfig) (*grpc.ClientConn, error) {
	b, err := transport.LoadClientBundle(cfg.Mode, cfg.CredentialsDir, cfg.ServerName)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return transport.Dial(ctx, cfg.Server, b)
}

func New(conn grpc.ClientConnInterface, cfg *config.ClientConfig) *Client {
	return NewWithEmitter(conn, cfg, &emitter.LogEmitter{})
}

func NewWithEmitter(conn grpc.ClientConnInterface, cfg *config.ClientConfig,
	e emitter.Emitter) *Client {
	return &Client{
		svc:     dataservice.NewDataServiceClient(conn),
		config:  cfg,
		emitter: e,
	}
}

// Run drains config.Trials streams one after the other and returns the
// aggregated result. If config.OutputPath is set, the result is also
// written there as JSON.
func (c *Client) Run(ctx context.Context) (*results.BenchmarkResult, error) {
	mid := c.config.MeasurementID
	if mid == "" {
		mid = uuid.NewString()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, spec.MeasurementIDKey, mid)

	res, err := benchmark.Run(ctx, c.config.Trials, c.runTrial, c.emitter.OnTrial)
	if err != nil {
		c.emitter.OnError(err)
		return nil, err
	}
	res.GitShortCommit = prometheusx.GitShortCommit
	res.MeasurementID = mid
	res.Server = c.config.Server
	res.Mode = string(c.config.Mode)
	c.emitter.OnSummary(res)

	if c.config.OutputPath != "" {
		if err := persistence.WriteJSON(c.config.OutputPath, res); err != nil {
			c.emitter.OnError(err)
			return res, err
		}
	}
	return res, nil
}

func (c *Client) runTrial(ctx context.Context, i int) (*results.Trial, error) {
	wg := &sync.WaitGroup{}
	// Make channel to handle measurements from this trial.
	measurements := make(chan results.Measurement, measurementsBuffer)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Receiver closes the channel when the trial is over.
		for m := range measurements {
			c.emitter.OnMeasurement(i, m)
		}
	}()
	c.emitter.OnStart(i)
	t, err := streambench.Receiver(ctx, c.svc, i, measurements)
	wg.Wait()
	return t, err
}
