// Package core defines core data structures with zero external dependencies.
package core

import "time"

// Packet is one captured frame, owned by the player for exactly one step.
type Packet struct {
	Data       []byte    // Raw frame data as read from the capture
	Timestamp  time.Time // Capture timestamp, monotonic within one traversal
	CaptureLen uint32    // Captured length
	OrigLen    uint32    // Original frame length on the wire

	// PayloadLocated is set when the source decoded the frame itself and
	// PayloadOffset holds the RTP header position, zero included. Otherwise
	// the configured fixed offset applies.
	PayloadLocated bool
	PayloadOffset  int
	// PayloadLen bounds the datagram when the source knows the UDP length.
	// Zero means the datagram runs to the end of Data.
	PayloadLen int
}

// Offset returns the RTP header position: the located one if any, else fixed.
func (p *Packet) Offset(fixed int) int {
	if p.PayloadLocated {
		return p.PayloadOffset
	}
	return fixed
}

// Payload returns the datagram to transmit given the effective offset.
func (p *Packet) Payload(offset int) ([]byte, bool) {
	if offset < 0 || offset > len(p.Data) {
		return nil, false
	}
	end := len(p.Data)
	if p.PayloadLen > 0 && offset+p.PayloadLen <= end {
		end = offset + p.PayloadLen
	}
	return p.Data[offset:end], true
}
