package udp

import "golang.org/x/net/ipv4"

func ipv4TTL(s *Sink) (int, error) {
	return ipv4.NewPacketConn(s.conn).MulticastTTL()
}
