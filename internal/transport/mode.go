package transport

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMode is returned for an unknown transport mode.
var ErrUnsupportedMode = errors.New("unsupported transport mode")

// Mode is the transport security mode.
type Mode string

const (
	// ModeNone is plaintext HTTP/2.
	ModeNone = Mode("none")
	// ModeTLS authenticates the server.
	ModeTLS = Mode("tls")
	// ModeMTLS authenticates both the server and the client.
	ModeMTLS = Mode("mtls")
)

// Modes returns the names of all supported modes, e.g. for flagx.Enum.
func Modes() []string {
	return []string{string(ModeNone), string(ModeTLS), string(ModeMTLS)}
}

// ParseMode returns the Mode named by s. "plaintext" is accepted as an alias
// of "none".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none", "plaintext":
		return ModeNone, nil
	case "tls":
		return ModeTLS, nil
	case "mtls":
		return ModeMTLS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}
