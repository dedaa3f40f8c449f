// Package tcpinfox reads TCP_INFO from live TCP connections.
package tcpinfox

import (
	"errors"
	"net"

	"github.com/m-lab/tcp-info/tcp"
)

// ErrNoSupport is returned on platforms where TCP_INFO cannot be read.
var ErrNoSupport = errors.New("TCP_INFO not supported")

// GetTCPInfo returns a TCP_INFO snapshot of conn.
func GetTCPInfo(conn *net.TCPConn) (*tcp.LinuxTCPInfo, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	return getTCPInfo(raw)
}
