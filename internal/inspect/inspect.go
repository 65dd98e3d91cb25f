// Package inspect summarises the RTP stream held in a capture, answering the
// questions that matter before looping it: how many frames, which SSRCs, and
// which timestamp step the loop rewriter is going to learn.
package inspect

import (
	"errors"
	"io"
	"sort"
	"time"

	"firestige.xyz/rtpreplay/internal/core"
	"firestige.xyz/rtpreplay/internal/rtp"
)

// Source is the subset of the capture source Summarize needs.
type Source interface {
	Next() (core.Packet, error)
}

// Summary describes the RTP stream found in a capture.
type Summary struct {
	Packets            int           `yaml:"packets"`
	RTPPackets         int           `yaml:"rtp_packets"`
	NonRTPPackets      int           `yaml:"non_rtp_packets"`
	Bytes              int           `yaml:"bytes"`
	SSRCs              []uint32      `yaml:"ssrcs"`
	PayloadTypes       []uint8       `yaml:"payload_types"`
	FirstSequence      uint16        `yaml:"first_sequence"`
	LastSequence       uint16        `yaml:"last_sequence"`
	SequenceGaps       int           `yaml:"sequence_gaps"`
	DistinctTimestamps int           `yaml:"distinct_timestamps"`
	FirstIncrement     uint32        `yaml:"first_timestamp_increment"`
	Markers            int           `yaml:"markers"`
	Duration           time.Duration `yaml:"duration"`
	First              time.Time     `yaml:"first_packet"`
	Last               time.Time     `yaml:"last_packet"`
}

// Summarize reads src to the end. offset is the configured RTP header
// position, overridden per packet when the source located the payload.
func Summarize(src Source, offset int) (*Summary, error) {
	s := &Summary{}
	ssrcs := map[uint32]struct{}{}
	pts := map[uint8]struct{}{}
	timestamps := map[uint32]struct{}{}

	var (
		haveTS  bool
		lastTS  uint32
		haveSeq bool
		lastSeq uint16
	)

	for {
		pkt, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		s.Packets++
		if s.Packets == 1 {
			s.First = pkt.Timestamp
		}
		s.Last = pkt.Timestamp

		payload, ok := pkt.Payload(pkt.Offset(offset))
		if !ok {
			s.NonRTPPackets++
			continue
		}
		h, err := rtp.ParseHeader(payload)
		if err != nil {
			s.NonRTPPackets++
			continue
		}

		s.RTPPackets++
		s.Bytes += len(payload)
		ssrcs[h.SSRC] = struct{}{}
		pts[h.PayloadType] = struct{}{}
		if h.Marker {
			s.Markers++
		}

		if !haveSeq {
			s.FirstSequence = h.SequenceNumber
			haveSeq = true
		} else if h.SequenceNumber != lastSeq+1 {
			s.SequenceGaps++
		}
		lastSeq = h.SequenceNumber
		s.LastSequence = lastSeq

		timestamps[h.Timestamp] = struct{}{}
		if haveTS && h.Timestamp != lastTS && s.FirstIncrement == 0 {
			if d := int32(h.Timestamp - lastTS); d > 0 {
				s.FirstIncrement = uint32(d)
			}
		}
		lastTS = h.Timestamp
		haveTS = true
	}

	s.DistinctTimestamps = len(timestamps)
	s.Duration = s.Last.Sub(s.First)
	for ssrc := range ssrcs {
		s.SSRCs = append(s.SSRCs, ssrc)
	}
	sort.Slice(s.SSRCs, func(i, j int) bool { return s.SSRCs[i] < s.SSRCs[j] })
	for pt := range pts {
		s.PayloadTypes = append(s.PayloadTypes, pt)
	}
	sort.Slice(s.PayloadTypes, func(i, j int) bool { return s.PayloadTypes[i] < s.PayloadTypes[j] })

	return s, nil
}
