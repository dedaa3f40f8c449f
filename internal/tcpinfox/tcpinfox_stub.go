//go:build !linux || !(amd64 || arm64)

package tcpinfox

import (
	"syscall"

	"github.com/m-lab/tcp-info/tcp"
)

func getTCPInfo(syscall.RawConn) (*tcp.LinuxTCPInfo, error) {
	return nil, ErrNoSupport
}
