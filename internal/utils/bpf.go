package utils

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// CompileBpf compiles a tcpdump-style expression for frames of the given link type.
func CompileBpf(linkType layers.LinkType, snapLen int, filter string) ([]bpf.RawInstruction, error) {
	pcapBpf, err := pcap.CompileBPFFilter(linkType, snapLen, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter %q: %w", filter, err)
	}

	rawBpf := make([]bpf.RawInstruction, len(pcapBpf))
	for i, ins := range pcapBpf {
		rawBpf[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return rawBpf, nil
}

// NewBpfVM compiles filter and loads it into an in-process BPF interpreter.
func NewBpfVM(linkType layers.LinkType, snapLen int, filter string) (*bpf.VM, error) {
	raw, err := CompileBpf(linkType, snapLen, filter)
	if err != nil {
		return nil, err
	}
	insts, ok := bpf.Disassemble(raw)
	if !ok {
		return nil, fmt.Errorf("filter %q uses instructions the BPF interpreter cannot decode", filter)
	}
	vm, err := bpf.NewVM(insts)
	if err != nil {
		return nil, fmt.Errorf("failed to load BPF filter %q: %w", filter, err)
	}
	return vm, nil
}
