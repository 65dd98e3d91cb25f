package file

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// udpPayload decodes the frame down to UDP and returns where the UDP payload
// starts and how long it is. Link-layer trailers are excluded from length.
func udpPayload(data []byte, linkType layers.LinkType) (offset, length int, ok bool) {
	pkt := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	for _, l := range pkt.Layers() {
		offset += len(l.LayerContents())
		if udp, isUDP := l.(*layers.UDP); isUDP {
			return offset, len(udp.Payload), true
		}
	}
	return 0, 0, false
}
