// Package netx wraps a net.Listener so that every accepted TCP connection is
// assigned a flow UUID that handlers can look up by remote address.
package netx

import (
	"net"
	"sync"

	guuid "github.com/google/uuid"
	"github.com/m-lab/uuid"
	"go.uber.org/zap"

	"github.com/robertodauria/streambench/internal/congestion"
)

// Flow is an accepted connection.
type Flow struct {
	// ID is the flow UUID.
	ID string
	// Conn is the underlying TCP connection, or nil for other transports.
	Conn *net.TCPConn
	// CC is the congestion control algorithm in use, if known.
	CC string
}

// Listener assigns a UUID to every accepted connection.
type Listener struct {
	net.Listener
	// CC is the congestion control algorithm set on accepted connections.
	// The kernel default is used if empty.
	CC string

	flows sync.Map // remote address -> *Flow
}

// NewListener wraps l.
func NewListener(l net.Listener) *Listener {
	return &Listener{Listener: l}
}

// Accept accepts the next connection and records its flow UUID. The UUID
// comes from the kernel socket cookie when available, and is random
// otherwise.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	flow := &Flow{}
	if tcpconn, ok := conn.(*net.TCPConn); ok {
		flow.Conn = tcpconn
		if l.CC != "" {
			if err := congestion.Set(tcpconn, l.CC); err != nil {
				zap.L().Sugar().Warnw("Cannot set congestion control",
					"client", conn.RemoteAddr().String(), "cc", l.CC, "error", err)
			}
		}
		// Record what the kernel actually uses.
		flow.CC, _ = congestion.Get(tcpconn)
		if flow.ID, err = uuid.FromTCPConn(tcpconn); err != nil {
			zap.L().Sugar().Debugw("Cannot get UUID from socket, using a random one",
				"client", conn.RemoteAddr().String(), "error", err)
			flow.ID = ""
		}
	}
	if flow.ID == "" {
		flow.ID = guuid.NewString()
	}
	key := conn.RemoteAddr().String()
	l.flows.Store(key, flow)
	return &flowConn{Conn: conn, key: key, flows: &l.flows}, nil
}

// Flow returns the connection whose remote address is addr.
func (l *Listener) Flow(addr net.Addr) (*Flow, bool) {
	if addr == nil {
		return nil, false
	}
	v, ok := l.flows.Load(addr.String())
	if !ok {
		return nil, false
	}
	return v.(*Flow), true
}

type flowConn struct {
	net.Conn
	key   string
	flows *sync.Map
	once  sync.Once
}

// Close forgets the flow UUID and closes the connection.
func (c *flowConn) Close() error {
	c.once.Do(func() {
		c.flows.Delete(c.key)
	})
	return c.Conn.Close()
}
