// Package rtp gives offset-based access to the RTP fixed header inside a raw
// captured frame.
//
// Only the sequence number and timestamp are ever read or rewritten. Both are
// encoded big-endian on the wire (RFC 3550 §5.1), independent of host order:
//
//	bytes 0-1:  V P X CC | M PT
//	bytes 2-3:  sequence number
//	bytes 4-7:  timestamp
//	bytes 8-11: SSRC
package rtp

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/rtpreplay/internal/core"
)

// HeaderSize is the fixed RTP header size.
const HeaderSize = 12

const (
	seqOffset = 2
	tsOffset  = 4
)

// Fields is the logical view of the two rewritable header fields.
type Fields struct {
	SequenceNumber uint16
	Timestamp      uint32
}

// View is a zero-copy window over the 12-byte fixed header.
type View []byte

// NewView returns the header window located at offset inside buf.
func NewView(buf []byte, offset int) (View, error) {
	if offset < 0 || len(buf) < offset+HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d for header at offset %d",
			core.ErrMalformedPacket, len(buf), offset+HeaderSize, offset)
	}
	return View(buf[offset : offset+HeaderSize]), nil
}

func (v View) SequenceNumber() uint16 { return binary.BigEndian.Uint16(v[seqOffset:]) }
func (v View) Timestamp() uint32      { return binary.BigEndian.Uint32(v[tsOffset:]) }

func (v View) SetSequenceNumber(seq uint16) { binary.BigEndian.PutUint16(v[seqOffset:], seq) }
func (v View) SetTimestamp(ts uint32)       { binary.BigEndian.PutUint32(v[tsOffset:], ts) }

// Fields reads both rewritable fields.
func (v View) Fields() Fields {
	return Fields{SequenceNumber: v.SequenceNumber(), Timestamp: v.Timestamp()}
}

// Read returns the sequence number and timestamp of the header at offset.
func Read(buf []byte, offset int) (Fields, error) {
	v, err := NewView(buf, offset)
	if err != nil {
		return Fields{}, err
	}
	return v.Fields(), nil
}

// WriteSequenceNumber encodes seq in place. Only bytes 2-3 of the header change.
func WriteSequenceNumber(buf []byte, offset int, seq uint16) error {
	v, err := NewView(buf, offset)
	if err != nil {
		return err
	}
	v.SetSequenceNumber(seq)
	return nil
}

// WriteTimestamp encodes ts in place. Only bytes 4-7 of the header change.
func WriteTimestamp(buf []byte, offset int, ts uint32) error {
	v, err := NewView(buf, offset)
	if err != nil {
		return err
	}
	v.SetTimestamp(ts)
	return nil
}
