package file

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/rtpreplay/internal/core"
	"firestige.xyz/rtpreplay/internal/pcaptest"
	"firestige.xyz/rtpreplay/internal/rtp"
)

var engines = []string{EnginePcap, EnginePcapgo}

func fixture(t *testing.T) (string, []pcaptest.Frame) {
	t.Helper()
	base := time.Unix(1700000000, 0)
	frames := []pcaptest.Frame{
		{At: base, Seq: 5, TS: 1000, SSRC: 1, PT: 96},
		{At: base.Add(20 * time.Millisecond), Seq: 6, TS: 1000, SSRC: 1, PT: 96, DstPort: 6000},
		{At: base.Add(40 * time.Millisecond), Seq: 7, TS: 1500, SSRC: 1, PT: 96, Marker: true},
	}
	return pcaptest.WriteRTP(t, t.TempDir(), frames), frames
}

func readAll(t *testing.T, s *Source) []core.Packet {
	t.Helper()
	var out []core.Packet
	for {
		pkt, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, pkt)
	}
}

func TestOpenAndRead(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			path, frames := fixture(t)
			s, err := Open(Config{Path: path, Engine: engine})
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, layers.LinkTypeEthernet, s.LinkType())

			pkts := readAll(t, s)
			require.Len(t, pkts, len(frames))
			for i, pkt := range pkts {
				assert.True(t, frames[i].At.Equal(pkt.Timestamp), "timestamp %d", i)
				f, err := rtp.Read(pkt.Data, pcaptest.EthernetUDPOffset)
				require.NoError(t, err)
				assert.Equal(t, frames[i].Seq, f.SequenceNumber)
				assert.Equal(t, frames[i].TS, f.Timestamp)
				assert.Equal(t, uint32(len(pkt.Data)), pkt.CaptureLen)
				assert.False(t, pkt.PayloadLocated)
				assert.Zero(t, pkt.PayloadOffset)
			}
		})
	}
}

func TestEOFIsStable(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			path, _ := fixture(t)
			s, err := Open(Config{Path: path, Engine: engine})
			require.NoError(t, err)
			defer s.Close()

			readAll(t, s)
			_, err = s.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReopenStartsOver(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			path, frames := fixture(t)
			s, err := Open(Config{Path: path, Engine: engine, Filter: "udp dst port 5004"})
			require.NoError(t, err)
			defer s.Close()

			first := readAll(t, s)
			require.NoError(t, s.Reopen())
			second := readAll(t, s)

			// frame 1 goes to port 6000 and is filtered out on both passes
			require.Len(t, first, len(frames)-1)
			require.Len(t, second, len(first))
			for i := range first {
				assert.Equal(t, first[i].Data, second[i].Data)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			path, _ := fixture(t)
			s, err := Open(Config{Path: path, Engine: engine, Filter: "udp dst port 6000"})
			require.NoError(t, err)
			defer s.Close()

			pkts := readAll(t, s)
			require.Len(t, pkts, 1)
			f, err := rtp.Read(pkts[0].Data, pcaptest.EthernetUDPOffset)
			require.NoError(t, err)
			assert.Equal(t, uint16(6), f.SequenceNumber)
		})
	}
}

func TestOpenErrorsAreConfigurationErrors(t *testing.T) {
	path, _ := fixture(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing path", Config{}},
		{"missing file pcap", Config{Path: filepath.Join(t.TempDir(), "nope.pcap"), Engine: EnginePcap}},
		{"missing file pcapgo", Config{Path: filepath.Join(t.TempDir(), "nope.pcap"), Engine: EnginePcapgo}},
		{"bad filter pcap", Config{Path: path, Engine: EnginePcap, Filter: "udp port ("}},
		{"bad filter pcapgo", Config{Path: path, Engine: EnginePcapgo, Filter: "udp port ("}},
		{"unknown engine", Config{Path: path, Engine: "afpacket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestNotACapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a pcap file"), 0o644))

	_, err := Open(Config{Path: path, Engine: EnginePcapgo})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestTruncatedCaptureIsReadError(t *testing.T) {
	path, _ := fixture(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-10], 0o644))

	s, err := Open(Config{Path: path, Engine: EnginePcapgo})
	require.NoError(t, err)
	defer s.Close()

	var readErr error
	for i := 0; i < 5; i++ {
		if _, readErr = s.Next(); readErr != nil {
			break
		}
	}
	assert.ErrorIs(t, readErr, core.ErrCaptureRead)
	assert.NotErrorIs(t, readErr, io.EOF)
}

func TestAutoOffset(t *testing.T) {
	base := time.Unix(1700000000, 0)
	records := pcaptest.Records(t, []pcaptest.Frame{
		{At: base, Seq: 1, TS: 10},
		{At: base.Add(time.Millisecond), Seq: 2, TS: 20},
	})
	// an ARP frame in between has no UDP payload and is skipped
	records = append(records[:1], append([]pcaptest.Record{{At: base, Data: pcaptest.EthernetARP(t)}}, records[1:]...)...)
	// Ethernet padding after the datagram must not leak into the payload
	records[2].Data = append(records[2].Data, 0, 0, 0, 0)

	path := filepath.Join(t.TempDir(), "auto.pcap")
	pcaptest.WriteFile(t, path, records)

	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			s, err := Open(Config{Path: path, Engine: engine, AutoOffset: true})
			require.NoError(t, err)
			defer s.Close()

			pkts := readAll(t, s)
			require.Len(t, pkts, 2)
			assert.Equal(t, uint64(1), s.Skipped())

			for i, pkt := range pkts {
				assert.True(t, pkt.PayloadLocated)
				assert.Equal(t, pcaptest.EthernetUDPOffset, pkt.Offset(0))
				assert.Equal(t, 16, pkt.PayloadLen)
				payload, ok := pkt.Payload(pkt.PayloadOffset)
				require.True(t, ok)
				assert.Len(t, payload, 16)
				f, err := rtp.Read(payload, 0)
				require.NoError(t, err)
				assert.Equal(t, uint16(i+1), f.SequenceNumber)
			}
		})
	}
}

func TestNextAfterClose(t *testing.T) {
	path, _ := fixture(t)
	s, err := Open(Config{Path: path, Engine: EnginePcapgo})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Next()
	assert.ErrorIs(t, err, core.ErrCaptureRead)
}
