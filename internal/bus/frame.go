// Package bus defines the fixed-size frame exchanged with the arm and the
// transport interfaces the pipeline consumes. The byte-level meaning of a
// frame payload belongs to the codec package; bus only moves frames.
package bus

import (
	"fmt"
	"time"
)

// MaxPayload is the maximum payload size of a single bus frame.
const MaxPayload = 8

// Direction records which way a frame crossed the transport.
type Direction uint8

const (
	// DirReceive marks a frame read from the bus.
	DirReceive Direction = iota
	// DirTransmit marks a frame written to the bus.
	DirTransmit
)

// String returns "rx" or "tx".
func (d Direction) String() string {
	if d == DirTransmit {
		return "tx"
	}
	return "rx"
}

// Frame is a single fixed-size message exchanged over the physical
// transport. Frames are value types and treated as immutable once built;
// Timestamp is a monotonic reading (duration since the process anchor),
// never wall-clock time.
type Frame struct {
	ID        uint32
	Len       uint8
	Data      [MaxPayload]byte
	Dir       Direction
	Timestamp time.Duration
}

// NewFrame builds a frame from id and payload. It fails if the payload
// exceeds MaxPayload bytes.
func NewFrame(id uint32, payload []byte) (Frame, error) {
	if len(payload) > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	f := Frame{ID: id, Len: uint8(len(payload))}
	copy(f.Data[:], payload)
	return f, nil
}

// Payload returns the valid portion of the frame data. The returned slice
// aliases the frame value; callers must not retain it past the frame.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// String renders the frame for diagnostics.
func (f Frame) String() string {
	return fmt.Sprintf("%s 0x%03X [%d] % X", f.Dir, f.ID, f.Len, f.Data[:f.Len])
}
