//go:build !linux || !(amd64 || arm64)

package congestion

import (
	"syscall"

	"github.com/m-lab/tcp-info/inetdiag"
)

func getBBRInfo(syscall.RawConn) (inetdiag.BBRInfo, error) {
	return inetdiag.BBRInfo{}, ErrNoSupport
}
