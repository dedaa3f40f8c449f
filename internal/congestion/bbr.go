package congestion

import (
	"errors"
	"net"

	"github.com/m-lab/tcp-info/inetdiag"
)

// ErrNoBBR is returned by GetBBRInfo when conn is not using BBR.
var ErrNoBBR = errors.New("connection is not using BBR")

// GetBBRInfo returns the BBR bandwidth and min RTT estimates of conn.
// Units are those used by the kernel (bytes/s, µs).
func GetBBRInfo(conn *net.TCPConn) (inetdiag.BBRInfo, error) {
	cc, err := Get(conn)
	if err != nil {
		return inetdiag.BBRInfo{}, err
	}
	if cc != "bbr" {
		return inetdiag.BBRInfo{}, ErrNoBBR
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return inetdiag.BBRInfo{}, err
	}
	return getBBRInfo(raw)
}
