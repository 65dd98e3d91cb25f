package rtp

import (
	"fmt"

	pionrtp "github.com/pion/rtp"
)

// ParseHeader decodes the full RTP header (CSRCs and extensions included).
// Used for diagnostics only; rewriting never depends on these bits.
func ParseHeader(payload []byte) (*pionrtp.Header, error) {
	h := &pionrtp.Header{}
	if _, err := h.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("rtp: decode header: %w", err)
	}
	if h.Version != 2 {
		return nil, fmt.Errorf("rtp: unexpected RTP version %d", h.Version)
	}
	return h, nil
}

// Describe renders the header fields relevant when watching a stream go by.
func Describe(h *pionrtp.Header) string {
	return fmt.Sprintf("ssrc=%#08x pt=%d seq=%d ts=%d marker=%t",
		h.SSRC, h.PayloadType, h.SequenceNumber, h.Timestamp, h.Marker)
}
