package serialbus

import (
	"github.com/tetra-robotics/armlink/internal/bus"
)

// Record layout on the wire:
//
//	byte 0    start marker (0xA5)
//	byte 1-2  frame id, big endian
//	byte 3    payload length (0-8)
//	byte 4+   payload
//	last      XOR checksum over bytes 1..n-1
//
// recordOverhead is everything except the payload.
const (
	startMarker    = 0xA5
	recordOverhead = 5
	maxRecordSize  = recordOverhead + bus.MaxPayload
)

// appendRecord serialises f onto dst and returns the extended slice.
func appendRecord(dst []byte, f bus.Frame) []byte {
	start := len(dst)
	dst = append(dst, startMarker, byte(f.ID>>8), byte(f.ID), f.Len)
	dst = append(dst, f.Data[:f.Len]...)

	var sum byte
	for _, b := range dst[start+1:] {
		sum ^= b
	}
	return append(dst, sum)
}

// scanRecord finds the first valid record in buf. It returns the decoded
// frame, the number of bytes consumed up to and including the record, and
// whether a record was found. Corrupt bytes before a valid record are
// consumed; a partial record at the tail consumes nothing so the caller
// can retry once more bytes arrive.
func scanRecord(buf []byte) (bus.Frame, int, bool) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != startMarker {
			continue
		}
		rest := buf[i:]
		if len(rest) < 4 {
			// Possible record start; wait for the header.
			return bus.Frame{}, i, false
		}
		payloadLen := int(rest[3])
		if payloadLen > bus.MaxPayload {
			continue // corrupt header, keep scanning
		}
		total := recordOverhead + payloadLen
		if len(rest) < total {
			return bus.Frame{}, i, false
		}

		var sum byte
		for _, b := range rest[1 : total-1] {
			sum ^= b
		}
		if sum != rest[total-1] {
			continue // bad checksum, treat marker as noise
		}

		f := bus.Frame{
			ID:  uint32(rest[1])<<8 | uint32(rest[2]),
			Len: uint8(payloadLen),
		}
		copy(f.Data[:], rest[4:4+payloadLen])
		return f, i + total, true
	}
	return bus.Frame{}, len(buf), false
}
