//go:build linux && (amd64 || arm64)

package congestion

import (
	"syscall"
	"unsafe"

	"github.com/m-lab/tcp-info/inetdiag"
)

// tcpCCInfo is TCP_CC_INFO from linux/tcp.h.
const tcpCCInfo = 26

// tcpBBRInfo mirrors struct tcp_bbr_info from linux/inet_diag.h.
type tcpBBRInfo struct {
	bwLo       uint32
	bwHi       uint32
	minRTT     uint32
	pacingGain uint32
	cwndGain   uint32
}

func getBBRInfo(raw syscall.RawConn) (inetdiag.BBRInfo, error) {
	var info tcpBBRInfo
	size := uint32(unsafe.Sizeof(info))
	want := size
	var errno syscall.Errno
	err := raw.Control(func(fd uintptr) {
		_, _, errno = syscall.Syscall6(syscall.SYS_GETSOCKOPT, fd,
			uintptr(syscall.SOL_TCP), tcpCCInfo,
			uintptr(unsafe.Pointer(&info)), uintptr(unsafe.Pointer(&size)), 0)
	})
	if err != nil {
		return inetdiag.BBRInfo{}, err
	}
	if errno != 0 {
		return inetdiag.BBRInfo{}, errno
	}
	if size < want {
		return inetdiag.BBRInfo{}, ErrNoBBR
	}
	return inetdiag.BBRInfo{
		BW:         int64(info.bwHi)<<32 | int64(info.bwLo),
		MinRTT:     info.minRTT,
		PacingGain: info.pacingGain,
		CwndGain:   info.cwndGain,
	}, nil
}
