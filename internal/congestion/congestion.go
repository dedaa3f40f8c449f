// Package congestion selects the TCP congestion control algorithm of
// accepted connections.
package congestion

import (
	"errors"
	"net"
)

// ErrNoSupport is returned on platforms where the congestion control
// algorithm cannot be changed.
var ErrNoSupport = errors.New("TCP congestion control selection not supported")

// Set switches conn to the named congestion control algorithm, e.g. "bbr"
// or "cubic". The algorithm must be available in the running kernel.
func Set(conn *net.TCPConn, cc string) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	return set(raw, cc)
}

// Get returns the congestion control algorithm currently used by conn.
func Get(conn *net.TCPConn) (string, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return "", err
	}
	return get(raw)
}
