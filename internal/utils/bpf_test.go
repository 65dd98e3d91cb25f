package utils

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpFrame(t *testing.T, dstPort uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(make([]byte, 20))))
	return buf.Bytes()
}

func TestCompileBpf(t *testing.T) {
	raw, err := CompileBpf(layers.LinkTypeEthernet, 65535, "udp port 5004")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestCompileBpfInvalid(t *testing.T) {
	_, err := CompileBpf(layers.LinkTypeEthernet, 65535, "not a filter (")
	assert.Error(t, err)
}

func TestBpfVMMatches(t *testing.T) {
	vm, err := NewBpfVM(layers.LinkTypeEthernet, 65535, "udp dst port 5004")
	require.NoError(t, err)

	n, err := vm.Run(udpFrame(t, 5004))
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	n, err = vm.Run(udpFrame(t, 6000))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
