package file

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/rtpreplay/internal/utils"
)

var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

func (s *Source) openPcap() error {
	h, err := pcap.OpenOffline(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("unable to open the file %q: %w", s.cfg.Path, err)
	}
	if s.cfg.Filter != "" {
		if err := h.SetBPFFilter(s.cfg.Filter); err != nil {
			h.Close()
			return fmt.Errorf("unable to install filter %q: %w", s.cfg.Filter, err)
		}
	}
	s.reader = h
	s.close = h.Close
	return nil
}

func (s *Source) openPcapgo() error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("unable to open the file %q: %w", s.cfg.Path, err)
	}
	br := bufio.NewReader(f)

	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		f.Close()
		return fmt.Errorf("unable to read header of %q: %w", s.cfg.Path, err)
	}

	var r packetReader
	if bytes.Equal(magic, pcapngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("unable to parse %q: %w", s.cfg.Path, err)
	}

	if s.cfg.Filter != "" {
		vm, err := utils.NewBpfVM(r.LinkType(), filterSnapLen, s.cfg.Filter)
		if err != nil {
			f.Close()
			return err
		}
		s.vm = vm
	}

	s.reader = r
	s.close = func() { f.Close() }
	return nil
}
