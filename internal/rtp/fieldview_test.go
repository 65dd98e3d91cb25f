package rtp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/rtpreplay/internal/core"
)

// makeFrame builds prefix bytes of link-layer filler followed by a 12-byte RTP
// header and a short payload.
//
//	byte 0: V=2  P=0  X=0  CC=0  →  0x80
//	byte 1: M=marker  PT=pt
func makeFrame(prefix int, pt uint8, seq uint16, ts uint32, ssrc uint32, marker bool) []byte {
	b := make([]byte, prefix+HeaderSize+4)
	for i := 0; i < prefix; i++ {
		b[i] = 0xEE
	}
	h := b[prefix:]
	h[0] = 0x80
	h[1] = pt & 0x7F
	if marker {
		h[1] |= 0x80
	}
	binary.BigEndian.PutUint16(h[2:4], seq)
	binary.BigEndian.PutUint32(h[4:8], ts)
	binary.BigEndian.PutUint32(h[8:12], ssrc)
	copy(h[12:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	return b
}

func TestRead(t *testing.T) {
	buf := makeFrame(44, 96, 0x1234, 0xA1B2C3D4, 0xCAFEBABE, false)

	f, err := Read(buf, 44)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), f.SequenceNumber)
	assert.Equal(t, uint32(0xA1B2C3D4), f.Timestamp)
}

func TestReadBounds(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		offset int
		ok     bool
	}{
		{"exact", 56, 44, true},
		{"one short", 55, 44, false},
		{"zero offset", 12, 0, true},
		{"empty", 0, 0, false},
		{"negative offset", 56, -1, false},
		{"offset past end", 20, 44, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(make([]byte, tt.size), tt.offset)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrMalformedPacket)
			}
		})
	}
}

func TestWriteIsBigEndianAndLocal(t *testing.T) {
	buf := makeFrame(44, 0, 1, 2, 0x11223344, true)
	orig := append([]byte(nil), buf...)

	require.NoError(t, WriteSequenceNumber(buf, 44, 0xBEEF))
	require.NoError(t, WriteTimestamp(buf, 44, 0x01020304))

	assert.Equal(t, []byte{0xBE, 0xEF}, buf[46:48])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf[48:52])

	// Everything outside bytes 2-7 of the header is untouched.
	assert.True(t, bytes.Equal(orig[:46], buf[:46]))
	assert.True(t, bytes.Equal(orig[52:], buf[52:]))
}

func TestWriteOutOfBounds(t *testing.T) {
	buf := make([]byte, 10)
	assert.ErrorIs(t, WriteSequenceNumber(buf, 0, 1), core.ErrMalformedPacket)
	assert.ErrorIs(t, WriteTimestamp(buf, 0, 1), core.ErrMalformedPacket)
	assert.Equal(t, make([]byte, 10), buf)
}

func TestViewAliasesBuffer(t *testing.T) {
	buf := makeFrame(4, 8, 100, 160, 1, false)
	v, err := NewView(buf, 4)
	require.NoError(t, err)

	v.SetSequenceNumber(101)
	v.SetTimestamp(320)

	f, err := Read(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, Fields{SequenceNumber: 101, Timestamp: 320}, f)
	assert.Equal(t, f, v.Fields())
}

func TestParseHeader(t *testing.T) {
	buf := makeFrame(0, 96, 7, 90000, 0xCAFEBABE, true)

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(96), h.PayloadType)
	assert.Equal(t, uint16(7), h.SequenceNumber)
	assert.Equal(t, uint32(90000), h.Timestamp)
	assert.Equal(t, uint32(0xCAFEBABE), h.SSRC)
	assert.True(t, h.Marker)
	assert.Contains(t, Describe(h), "seq=7")
}

func TestParseHeaderRejects(t *testing.T) {
	_, err := ParseHeader([]byte{0x80, 0x00})
	assert.Error(t, err)

	buf := makeFrame(0, 0, 1, 1, 1, false)
	buf[0] = 0x40 // version 1
	_, err = ParseHeader(buf)
	assert.Error(t, err)
}
