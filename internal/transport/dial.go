package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-lab/go/warnonerror"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// ErrHandshakeFailed is returned when a connection cannot be established,
// including when the TLS handshake is rejected by either side.
var ErrHandshakeFailed = errors.New("handshake failed")

// DefaultConnectTimeout bounds Dial when the context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// Dial connects to addr using the credentials in b and waits until the
// connection is ready, so that handshake failures are reported here rather
// than on the first call.
func Dial(ctx context.Context, addr string, b *ClientBundle, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}
	conn, err := grpc.NewClient(addr, append(b.DialOptions(), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrHandshakeFailed, addr, err)
	}
	if err := waitReady(ctx, conn); err != nil {
		warnonerror.Close(conn, "ignoring conn.Close error after failed dial")
		return nil, fmt.Errorf("%w: %s (mode %s): %w", ErrHandshakeFailed, addr, b.Mode, err)
	}
	zap.L().Sugar().Debugw("Connected", "server", addr, "mode", b.Mode)
	return conn, nil
}

func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		s := conn.GetState()
		switch s {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return errors.New("connection failed")
		case connectivity.Shutdown:
			return errors.New("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, s) {
			return ctx.Err()
		}
	}
}
