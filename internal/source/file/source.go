// Package file implements the capture source: ordered packets read from an
// offline capture, with an optional filter, reopenable from the start.
package file

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/bpf"

	"firestige.xyz/rtpreplay/internal/core"
)

const (
	EnginePcap   = "pcap"   // libpcap, filter installed in the handle
	EnginePcapgo = "pcapgo" // pure Go reader, filter run in a BPF interpreter
)

const filterSnapLen = 65535

type Config struct {
	Path       string `mapstructure:"file"`
	Filter     string `mapstructure:"filter"`
	Engine     string `mapstructure:"engine"`
	AutoOffset bool   `mapstructure:"auto_offset"`
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

type Source struct {
	cfg      Config
	reader   packetReader
	close    func()
	vm       *bpf.VM
	linkType layers.LinkType
	skipped  uint64
}

// Open opens the capture and installs the filter. Any failure here is a
// configuration error.
func Open(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: capture file path is required", core.ErrConfigInvalid)
	}
	if cfg.Engine == "" {
		cfg.Engine = EnginePcap
	}
	s := &Source{cfg: cfg}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) open() error {
	var err error
	switch s.cfg.Engine {
	case EnginePcap:
		err = s.openPcap()
	case EnginePcapgo:
		err = s.openPcapgo()
	default:
		err = fmt.Errorf("unknown capture engine %q", s.cfg.Engine)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	s.linkType = s.reader.LinkType()
	return nil
}

// Next returns the next packet passing the filter, io.EOF at a clean end of
// file, or an error wrapping core.ErrCaptureRead.
func (s *Source) Next() (core.Packet, error) {
	if s.reader == nil {
		return core.Packet{}, fmt.Errorf("%w: source is closed", core.ErrCaptureRead)
	}
	for {
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.Packet{}, io.EOF
			}
			return core.Packet{}, fmt.Errorf("%w: %s: %v", core.ErrCaptureRead, s.cfg.Path, err)
		}

		if s.vm != nil {
			n, err := s.vm.Run(data)
			if err != nil {
				return core.Packet{}, fmt.Errorf("%w: filter: %v", core.ErrCaptureRead, err)
			}
			if n == 0 {
				continue
			}
		}

		pkt := core.Packet{
			Data:       data,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
		}
		if s.cfg.AutoOffset {
			offset, length, ok := udpPayload(data, s.linkType)
			if !ok {
				s.skipped++
				continue
			}
			pkt.PayloadLocated = true
			pkt.PayloadOffset = offset
			pkt.PayloadLen = length
		}
		return pkt, nil
	}
}

// Reopen restarts the capture from its first packet with the same filter.
func (s *Source) Reopen() error {
	s.closeReader()
	return s.open()
}

// LinkType returns the link-layer type of the capture.
func (s *Source) LinkType() layers.LinkType { return s.linkType }

// Skipped returns how many frames auto offset discarded for lacking a UDP layer.
func (s *Source) Skipped() uint64 { return s.skipped }

func (s *Source) Close() error {
	s.closeReader()
	return nil
}

func (s *Source) closeReader() {
	if s.close != nil {
		s.close()
	}
	s.reader = nil
	s.close = nil
	s.vm = nil
}
