package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robertodauria/streambench/internal/transport"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

const (
	DefaultServer         = "localhost:5000"
	DefaultMode           = transport.ModeMTLS
	DefaultTrials         = 10
	DefaultTimeout        = 10 * time.Second
	DefaultCredentialsDir = "tls"
	DefaultServerName     = spec.DefaultServerName
)

// ErrInvalidTrials is returned for a trial count that does not fit in a
// uint32.
var ErrInvalidTrials = errors.New("invalid number of trials")

type ClientConfig struct {
	// The server address (host:port).
	Server string

	// The transport security mode.
	Mode transport.Mode

	// The directory containing the credential files.
	CredentialsDir string

	// The name expected in the server's certificate.
	ServerName string

	// The number of sequential trials to run.
	Trials uint32

	// The connection Timeout.
	Timeout time.Duration

	// The measurement ID sent to the server. Generated if empty.
	MeasurementID string

	// Where to write the JSON result. Nothing is written if empty.
	OutputPath string
}

func New(server string, mode transport.Mode, trials uint32, timeout time.Duration) *ClientConfig {
	return &ClientConfig{
		Server:         server,
		Mode:           mode,
		CredentialsDir: DefaultCredentialsDir,
		ServerName:     DefaultServerName,
		Trials:         trials,
		Timeout:        timeout,
	}
}

func NewDefault() *ClientConfig {
	return New(DefaultServer, DefaultMode, DefaultTrials, DefaultTimeout)
}

// ParseTrials converts a trial count read from the command line, rejecting
// values that would be truncated.
func ParseTrials(n uint64) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d (max %d)", ErrInvalidTrials, n, uint32(math.MaxUint32))
	}
	return uint32(n), nil
}
