//go:build linux && (amd64 || arm64)

package tcpinfox

import (
	"syscall"
	"unsafe"

	"github.com/m-lab/tcp-info/tcp"
)

func getTCPInfo(raw syscall.RawConn) (*tcp.LinuxTCPInfo, error) {
	info := &tcp.LinuxTCPInfo{}
	size := uint32(unsafe.Sizeof(*info))
	var errno syscall.Errno
	err := raw.Control(func(fd uintptr) {
		_, _, errno = syscall.Syscall6(syscall.SYS_GETSOCKOPT, fd,
			uintptr(syscall.SOL_TCP), uintptr(syscall.TCP_INFO),
			uintptr(unsafe.Pointer(info)), uintptr(unsafe.Pointer(&size)), 0)
	})
	if err != nil {
		return nil, err
	}
	if errno != 0 {
		return nil, errno
	}
	return info, nil
}
