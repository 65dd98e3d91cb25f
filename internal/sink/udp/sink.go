// Package udp sends replayed datagrams to a unicast or multicast destination.
package udp

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"firestige.xyz/rtpreplay/internal/core"
)

type Config struct {
	Address   string `mapstructure:"address"`
	Port      int    `mapstructure:"port"`
	TTL       int    `mapstructure:"ttl"`
	Loopback  bool   `mapstructure:"loopback"`
	Interface string `mapstructure:"interface"`
}

// Sink owns one connected UDP socket. Multicast destinations are send-only:
// the socket never joins the group.
type Sink struct {
	conn      *net.UDPConn
	dst       *net.UDPAddr
	multicast bool
}

func New(cfg Config) (*Sink, error) {
	dst, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%w: destination %s:%d: %v", core.ErrConfigInvalid, cfg.Address, cfg.Port, err)
	}

	conn, err := net.DialUDP("udp", nil, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create send socket to %s: %w", dst, err)
	}

	s := &Sink{conn: conn, dst: dst, multicast: dst.IP.IsMulticast()}
	if err := s.configure(cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) configure(cfg Config) error {
	var ifi *net.Interface
	if cfg.Interface != "" {
		var err error
		ifi, err = net.InterfaceByName(cfg.Interface)
		if err != nil {
			return fmt.Errorf("%w: interface %q: %v", core.ErrConfigInvalid, cfg.Interface, err)
		}
	}

	if s.dst.IP.To4() != nil {
		if !s.multicast {
			if err := ipv4.NewConn(s.conn).SetTTL(cfg.TTL); err != nil {
				return fmt.Errorf("failed to set TTL %d: %w", cfg.TTL, err)
			}
			return nil
		}
		p := ipv4.NewPacketConn(s.conn)
		if err := p.SetMulticastTTL(cfg.TTL); err != nil {
			return fmt.Errorf("failed to set multicast TTL %d: %w", cfg.TTL, err)
		}
		if err := p.SetMulticastLoopback(cfg.Loopback); err != nil {
			return fmt.Errorf("failed to set multicast loopback: %w", err)
		}
		if ifi != nil {
			if err := p.SetMulticastInterface(ifi); err != nil {
				return fmt.Errorf("failed to set multicast interface %s: %w", ifi.Name, err)
			}
		}
		return nil
	}

	if !s.multicast {
		if err := ipv6.NewConn(s.conn).SetHopLimit(cfg.TTL); err != nil {
			return fmt.Errorf("failed to set hop limit %d: %w", cfg.TTL, err)
		}
		return nil
	}
	p := ipv6.NewPacketConn(s.conn)
	if err := p.SetMulticastHopLimit(cfg.TTL); err != nil {
		return fmt.Errorf("failed to set multicast hop limit %d: %w", cfg.TTL, err)
	}
	if err := p.SetMulticastLoopback(cfg.Loopback); err != nil {
		return fmt.Errorf("failed to set multicast loopback: %w", err)
	}
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("failed to set multicast interface %s: %w", ifi.Name, err)
		}
	}
	return nil
}

// Send writes one datagram.
func (s *Sink) Send(b []byte) error {
	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrSinkSend, s.dst, err)
	}
	return nil
}

// Destination returns the resolved destination address.
func (s *Sink) Destination() *net.UDPAddr { return s.dst }

// Multicast reports whether the destination is a multicast group.
func (s *Sink) Multicast() bool { return s.multicast }

func (s *Sink) Close() error {
	return s.conn.Close()
}
