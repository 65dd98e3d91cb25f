// Package pcaptest writes small RTP capture files for tests.
package pcaptest

import (
	"encoding/binary"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

// EthernetUDPOffset is where the UDP payload starts in frames built by EthernetUDP.
const EthernetUDPOffset = 14 + 20 + 8

// Frame describes one RTP datagram of a fixture capture.
type Frame struct {
	At      time.Time
	Seq     uint16
	TS      uint32
	SSRC    uint32
	PT      uint8
	Marker  bool
	DstPort uint16 // 5004 when zero
	Body    []byte // RTP payload after the header, 4 bytes when nil
}

// Record is one raw frame to write.
type Record struct {
	At   time.Time
	Data []byte
}

// RTP encodes the fixed header followed by the body.
func RTP(f Frame) []byte {
	body := f.Body
	if body == nil {
		body = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	}
	b := make([]byte, 12+len(body))
	b[0] = 0x80
	b[1] = f.PT & 0x7F
	if f.Marker {
		b[1] |= 0x80
	}
	binary.BigEndian.PutUint16(b[2:4], f.Seq)
	binary.BigEndian.PutUint32(b[4:8], f.TS)
	binary.BigEndian.PutUint32(b[8:12], f.SSRC)
	copy(b[12:], body)
	return b
}

// EthernetUDP wraps payload in Ethernet/IPv4/UDP headers.
func EthernetUDP(t testing.TB, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x01, 0, 0x5e, 0, 1, 1},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      4,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{232, 0, 1, 1},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return append([]byte(nil), buf.Bytes()...)
}

// EthernetARP builds a frame without an IP/UDP layer.
func EthernetARP(t testing.TB) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x02, 0, 0, 0, 0, 1},
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{10, 0, 0, 2},
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp))
	return append([]byte(nil), buf.Bytes()...)
}

// Records turns RTP frames into Ethernet records.
func Records(t testing.TB, frames []Frame) []Record {
	t.Helper()
	out := make([]Record, 0, len(frames))
	for _, f := range frames {
		port := f.DstPort
		if port == 0 {
			port = 5004
		}
		out = append(out, Record{At: f.At, Data: EthernetUDP(t, port, RTP(f))})
	}
	return out
}

// WriteFile writes records as a classic pcap file with Ethernet link type.
func WriteFile(t testing.TB, path string, records []Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, r := range records {
		ci := gopacket.CaptureInfo{
			Timestamp:     r.At,
			CaptureLength: len(r.Data),
			Length:        len(r.Data),
		}
		require.NoError(t, w.WritePacket(ci, r.Data))
	}
}

// WriteRTP writes RTP frames as a pcap file and returns its path.
func WriteRTP(t testing.TB, dir string, frames []Frame) string {
	t.Helper()
	path := dir + "/rtp.pcap"
	WriteFile(t, path, Records(t, frames))
	return path
}
