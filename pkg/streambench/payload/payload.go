// Package payload generates the data served by a streambench server.
//
// A Payload is generated once at startup and shared read-only by every
// stream served by the process. Its size is the dominant steady-state
// memory cost of the server: a payload of N bytes keeps N bytes allocated
// for the lifetime of the process.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// ErrInvalidSize is returned when the requested size is not a positive
// multiple of spec.WordSize.
var ErrInvalidSize = errors.New("invalid payload size")

// Payload is an immutable byte sequence. The zero value is an empty payload.
type Payload struct {
	data []byte
}

type options struct {
	seed uint64
}

// Option configures Generate.
type Option func(*options)

// Seed makes the generated content depend only on s.
func Seed(s uint64) Option {
	return func(o *options) {
		o.seed = s
	}
}

// Generate returns a Payload of size bytes filled with pseudo-random 64-bit
// words.
func Generate(size uint64, opts ...Option) (*Payload, error) {
	if size == 0 || size%spec.WordSize != 0 {
		return nil, fmt.Errorf("%w: %d is not a positive multiple of %d",
			ErrInvalidSize, size, spec.WordSize)
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("%w: %d exceeds the addressable size", ErrInvalidSize, size)
	}
	o := &options{seed: uint64(time.Now().UnixNano())}
	for _, opt := range opts {
		opt(o)
	}
	r := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	data := make([]byte, size)
	for i := 0; i < len(data); i += spec.WordSize {
		binary.LittleEndian.PutUint64(data[i:], r.Uint64())
	}
	return &Payload{data: data}, nil
}

// FromBytes wraps b in a Payload. The caller must not modify b afterwards.
func FromBytes(b []byte) *Payload {
	return &Payload{data: b}
}

// Len returns the size of the payload in bytes.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.data)
}

// Slice returns the bytes in [from, to). The returned slice aliases the
// payload and must not be modified.
func (p *Payload) Slice(from, to int) []byte {
	return p.data[from:to:to]
}
