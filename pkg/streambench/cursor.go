package streambench

import (
	"errors"
	"fmt"

	"github.com/robertodauria/streambench/pkg/streambench/payload"
	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// ErrInvalidChunkSize is returned when the chunk size is not in
// (0, spec.MaxMessageSize].
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// State is the state of a Cursor.
type State int

const (
	// NotStarted means no frame has been requested yet.
	NotStarted State = iota
	// Emitting means at least one frame has been returned and the cursor
	// has not reached the end of the payload.
	Emitting
	// Done means every frame has been returned.
	Done
	// Aborted means the cursor was abandoned before reaching the end.
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Emitting:
		return "emitting"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Cursor walks a shared Payload in frames of at most chunkSize bytes.
// Frames partition the payload in ascending offset order. Each stream owns
// its own Cursor; the payload itself is never modified.
type Cursor struct {
	p         *payload.Payload
	chunkSize int
	offset    int
	state     State
}

// ValidateChunkSize returns ErrInvalidChunkSize if chunkSize cannot be
// used to build frames.
func ValidateChunkSize(chunkSize int) error {
	if chunkSize <= 0 || chunkSize > spec.MaxMessageSize {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}
	return nil
}

// NewCursor returns a Cursor positioned at the start of p.
func NewCursor(p *payload.Payload, chunkSize int) (*Cursor, error) {
	if err := ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}
	return &Cursor{p: p, chunkSize: chunkSize}, nil
}

// Next returns the next frame. It returns false once the payload is
// exhausted, at which point the cursor is Done, or if the cursor was
// aborted.
func (c *Cursor) Next() ([]byte, bool) {
	if c.state == Done || c.state == Aborted {
		return nil, false
	}
	if c.offset >= c.p.Len() {
		c.state = Done
		return nil, false
	}
	end := min(c.offset+c.chunkSize, c.p.Len())
	frame := c.p.Slice(c.offset, end)
	c.offset = end
	c.state = Emitting
	return frame, true
}

// Abort moves the cursor to Aborted. Done cursors stay Done.
func (c *Cursor) Abort() {
	if c.state != Done {
		c.state = Aborted
	}
}

// Offset returns the offset of the next frame.
func (c *Cursor) Offset() int {
	return c.offset
}

// State returns the current state.
func (c *Cursor) State() State {
	return c.state
}
