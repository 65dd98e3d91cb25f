// Package console is a dry-run sink: datagrams are logged instead of sent.
package console

import (
	"firestige.xyz/rtpreplay/internal/log"
	"firestige.xyz/rtpreplay/internal/rtp"
)

type Sink struct {
	logger  log.Logger
	packets uint64
	bytes   uint64
}

func NewSink(logger log.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) Send(b []byte) error {
	s.packets++
	s.bytes += uint64(len(b))

	h, err := rtp.ParseHeader(b)
	if err != nil {
		s.logger.WithField("len", len(b)).Infof("datagram #%d: not RTP: %v", s.packets, err)
		return nil
	}
	s.logger.WithField("len", len(b)).Infof("datagram #%d: %s", s.packets, rtp.Describe(h))
	return nil
}

// Packets returns the number of datagrams seen.
func (s *Sink) Packets() uint64 { return s.packets }

// Bytes returns the number of bytes seen.
func (s *Sink) Bytes() uint64 { return s.bytes }

func (s *Sink) Close() error {
	s.logger.Infof("dry run finished: %d datagrams, %d bytes", s.packets, s.bytes)
	return nil
}
