// Package transport selects the gRPC transport credentials for the
// streambench server and client, loading certificate material from a
// directory with a fixed layout.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// ErrCredentialLoadFailed is returned when certificate material is missing
// or malformed.
var ErrCredentialLoadFailed = errors.New("credential load failed")

// File names inside the credentials directory.
const (
	CACertFile       = "ca_cert.pem"
	ServerCertFile   = "server_cert.pem"
	ServerKeyFile    = "server_key.pem"
	ClientCertFile   = "client_cert.pem"
	ClientKeyFile    = "client_key.pem"
	ClientCACertFile = "client_ca_cert.pem"
)

// ServerBundle is the server side credential bundle.
type ServerBundle struct {
	Mode Mode
	// Certificate is the server certificate (tls and mtls).
	Certificate *tls.Certificate
	// ClientCAs verifies client certificates (mtls only).
	ClientCAs *x509.CertPool
}

// ClientBundle is the client side credential bundle.
type ClientBundle struct {
	Mode Mode
	// ServerName is the name expected in the server certificate.
	ServerName string
	// RootCAs verifies the server certificate (tls and mtls).
	RootCAs *x509.CertPool
	// Certificate is the client certificate (mtls only).
	Certificate *tls.Certificate
}

// LoadServerBundle loads the server credentials for mode from dir.
func LoadServerBundle(mode Mode, dir string) (*ServerBundle, error) {
	b := &ServerBundle{Mode: mode}
	switch mode {
	case ModeNone:
		return b, nil
	case ModeTLS, ModeMTLS:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	cert, err := loadKeyPair(dir, ServerCertFile, ServerKeyFile)
	if err != nil {
		return nil, err
	}
	b.Certificate = cert
	if mode == ModeMTLS {
		if b.ClientCAs, err = loadCertPool(filepath.Join(dir, ClientCACertFile)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// LoadClientBundle loads the client credentials for mode from dir.
func LoadClientBundle(mode Mode, dir, serverName string) (*ClientBundle, error) {
	b := &ClientBundle{Mode: mode, ServerName: serverName}
	switch mode {
	case ModeNone:
		return b, nil
	case ModeTLS, ModeMTLS:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	var err error
	if b.RootCAs, err = loadCertPool(filepath.Join(dir, CACertFile)); err != nil {
		return nil, err
	}
	if mode == ModeMTLS {
		if b.Certificate, err = loadKeyPair(dir, ClientCertFile, ClientKeyFile); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func loadKeyPair(dir, certFile, keyFile string) (*tls.Certificate, error) {
	certPath := filepath.Join(dir, certFile)
	keyPath := filepath.Join(dir, keyFile)
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: key pair (%s, %s): %w", ErrCredentialLoadFailed, certPath, keyPath, err)
	}
	return &cert, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoadFailed, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificate found in %s", ErrCredentialLoadFailed, path)
	}
	return pool, nil
}

// TLSConfig returns the server TLS configuration, or nil in ModeNone.
func (b *ServerBundle) TLSConfig() *tls.Config {
	if b.Mode == ModeNone {
		return nil
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{*b.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
	if b.Mode == ModeMTLS {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = b.ClientCAs
	}
	return cfg
}

// ServerOptions returns the gRPC server options for this bundle.
func (b *ServerBundle) ServerOptions() []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if cfg := b.TLSConfig(); cfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(cfg)))
	}
	zap.L().Sugar().Debugw("Server transport configured", "mode", b.Mode)
	return opts
}

// TLSConfig returns the client TLS configuration, or nil in ModeNone.
func (b *ClientBundle) TLSConfig() *tls.Config {
	if b.Mode == ModeNone {
		return nil
	}
	cfg := &tls.Config{
		ServerName: b.ServerName,
		RootCAs:    b.RootCAs,
		MinVersion: tls.VersionTLS12,
	}
	if b.Mode == ModeMTLS {
		cfg.Certificates = []tls.Certificate{*b.Certificate}
	}
	return cfg
}

// DialOptions returns the gRPC dial options for this bundle.
func (b *ClientBundle) DialOptions() []grpc.DialOption {
	if cfg := b.TLSConfig(); cfg != nil {
		return []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(cfg))}
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}
