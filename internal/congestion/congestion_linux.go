package congestion

import (
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func set(raw syscall.RawConn, cc string) error {
	var serr error
	err := raw.Control(func(fd uintptr) {
		// Note: Fd() returns uintptr but on Unix we can safely use int for sockets.
		serr = syscall.SetsockoptString(int(fd), syscall.IPPROTO_TCP,
			syscall.TCP_CONGESTION, cc)
	})
	if err != nil {
		return err
	}
	return serr
}

func get(raw syscall.RawConn) (string, error) {
	var (
		cc   string
		serr error
	)
	err := raw.Control(func(fd uintptr) {
		cc, serr = unix.GetsockoptString(int(fd), syscall.IPPROTO_TCP,
			syscall.TCP_CONGESTION)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(cc, "\x00"), serr
}
