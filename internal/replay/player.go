package replay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"firestige.xyz/rtpreplay/internal/core"
	"firestige.xyz/rtpreplay/internal/log"
	"firestige.xyz/rtpreplay/internal/metrics"
	"firestige.xyz/rtpreplay/internal/rtp"
	"firestige.xyz/rtpreplay/internal/scheduler"
)

// DefaultPayloadOffset skips a Linux cooked header plus IPv4 and UDP.
const DefaultPayloadOffset = 44

const progressEvery = 100

// Source yields captured packets in order. Next returns io.EOF at a clean
// end of capture; Reopen restarts it from the first packet.
type Source interface {
	Next() (core.Packet, error)
	Reopen() error
}

// Sink transmits one datagram.
type Sink interface {
	Send(b []byte) error
}

// State is the lifecycle of a Player.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "terminated"
}

// Options configures one replay run.
type Options struct {
	// PayloadOffset is the position of the RTP header in each frame, used
	// when the source did not locate it itself.
	PayloadOffset int
	// PlayCount is how many times the capture is played; zero loops forever.
	PlayCount int
	// RunID labels logs and metrics.
	RunID string
}

// Stats summarises a run so far.
type Stats struct {
	Packets   uint64
	Bytes     uint64
	LateSends uint64
	Restarts  uint64
}

// PlayerOption customises a Player built by NewPlayer.
type PlayerOption func(*Player)

// WithClock replaces the wall clock used to measure send cost.
func WithClock(c Clock) PlayerOption {
	return func(p *Player) { p.clock = c }
}

// WithLogger replaces the process-wide logger.
func WithLogger(l log.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// Player replays a capture one packet per step. Each step sends the current
// packet, reads the next one and re-arms itself through the scheduler after
// the pacing delay. The scheduler guarantees steps never overlap.
type Player struct {
	opts    Options
	source  Source
	sink    Sink
	sched   scheduler.Scheduler
	clock   Clock
	logger  log.Logger
	looping bool

	loop   *LoopState
	pacing PacingState

	current          *core.Packet
	traversalPackets uint64

	state State
	err   error
	done  chan struct{}
	stats Stats
}

// NewPlayer builds a Running player over src and sink. Nothing is read or
// sent until Start; every step then runs on sched. Looping, and with it the
// header rewrite, is enabled whenever opts.PlayCount is not 1.
func NewPlayer(src Source, sink Sink, sched scheduler.Scheduler, opts Options, options ...PlayerOption) *Player {
	p := &Player{
		opts:    opts,
		source:  src,
		sink:    sink,
		sched:   sched,
		clock:   SystemClock,
		looping: opts.PlayCount != 1,
		loop:    NewLoopState(opts.PlayCount),
		done:    make(chan struct{}),
	}
	for _, o := range options {
		o(p)
	}
	if p.logger == nil {
		p.logger = log.GetLogger()
	}
	if opts.RunID != "" {
		p.logger = p.logger.WithField("run", opts.RunID)
	}
	return p
}

// Start arms the first step immediately.
func (p *Player) Start() {
	metrics.PlayerState.WithLabelValues(p.opts.RunID).Set(metrics.PlayerStateRunning)
	p.sched.ScheduleAfter(0, p.Step)
}

// Step runs one replay step. It is a no-op once terminated.
func (p *Player) Step() {
	if p.state == Terminated {
		return
	}

	if p.current == nil {
		pkt, err := p.fetch()
		if err != nil {
			p.terminate(err)
			return
		}
		p.current = pkt
	}
	pkt := p.current

	offset := pkt.Offset(p.opts.PayloadOffset)
	payload, ok := pkt.Payload(offset)
	if !ok {
		p.terminate(fmt.Errorf("%w: %d byte frame, payload offset %d", core.ErrMalformedPacket, len(pkt.Data), offset))
		return
	}

	if p.looping {
		if err := p.rewrite(payload); err != nil {
			p.terminate(err)
			return
		}
	}

	before := p.clock.Now()
	if err := p.sink.Send(payload); err != nil {
		p.terminate(err)
		return
	}
	sendDuration := p.clock.Now().Sub(before)
	p.account(len(payload), sendDuration)

	next, err := p.fetch()
	if err != nil {
		p.current = nil
		p.terminate(err)
		return
	}

	d := p.pacing.NextDelay(pkt.Timestamp, next.Timestamp, sendDuration, p.looping)
	if d.Late > 0 {
		p.stats.LateSends++
		metrics.LateSendsTotal.WithLabelValues(p.opts.RunID).Inc()
		p.logger.Debugf("being late (%d usec)", d.Late.Microseconds())
	}
	metrics.ScheduledDelaySeconds.WithLabelValues(p.opts.RunID).Observe(d.Delay.Seconds())

	p.current = next
	p.sched.ScheduleAfter(d.Delay, p.Step)
}

func (p *Player) rewrite(payload []byte) error {
	v, err := rtp.NewView(payload, 0)
	if err != nil {
		return err
	}
	ts, seq := p.loop.Rewrite(v.Timestamp(), v.SequenceNumber())
	v.SetTimestamp(ts)
	v.SetSequenceNumber(seq)
	return nil
}

func (p *Player) account(n int, sendDuration time.Duration) {
	p.stats.Packets++
	p.stats.Bytes += uint64(n)
	metrics.PacketsSentTotal.WithLabelValues(p.opts.RunID).Inc()
	metrics.BytesSentTotal.WithLabelValues(p.opts.RunID).Add(float64(n))
	metrics.SendLatencySeconds.WithLabelValues(p.opts.RunID).Observe(sendDuration.Seconds())

	if p.stats.Packets%progressEvery == 0 {
		p.logger.Debugf("Processing packets # %d TS: %d rtptsinc: %d seq: %d",
			p.stats.Packets, p.loop.SyntheticTimestamp(), p.loop.Increment(), p.loop.SyntheticSequenceNumber())
	}
}

// fetch reads the next packet, reopening the capture while traversals remain.
func (p *Player) fetch() (*core.Packet, error) {
	for {
		pkt, err := p.source.Next()
		if err == nil {
			p.traversalPackets++
			return &pkt, nil
		}
		if !errors.Is(err, io.EOF) {
			if errors.Is(err, core.ErrCaptureRead) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", core.ErrCaptureRead, err)
		}
		if p.traversalPackets == 0 {
			return nil, core.ErrEmptyCapture
		}
		if !p.loop.NextTraversal() {
			return nil, core.ErrStreamExhausted
		}
		if err := p.source.Reopen(); err != nil {
			return nil, fmt.Errorf("reopen capture: %w", err)
		}
		p.traversalPackets = 0
		p.loop.Restarted()
		p.stats.Restarts++
		metrics.CaptureRestartsTotal.WithLabelValues(p.opts.RunID).Inc()
		p.logger.Debug("Capture file reopened.")
	}
}

func (p *Player) terminate(err error) {
	if errors.Is(err, core.ErrStreamExhausted) {
		err = nil
	}
	p.state = Terminated
	p.err = err
	metrics.PlayerState.WithLabelValues(p.opts.RunID).Set(metrics.PlayerStateTerminated)

	if err != nil {
		p.logger.WithError(err).Error("replay stopped")
	} else {
		p.logger.Infof("replay finished: %d packets, %d bytes, %d restarts, %d late sends",
			p.stats.Packets, p.stats.Bytes, p.stats.Restarts, p.stats.LateSends)
	}
	close(p.done)
}

// State returns Running until the capture is exhausted or a fatal error occurs.
func (p *Player) State() State { return p.state }

// Done is closed on termination.
func (p *Player) Done() <-chan struct{} { return p.done }

// Err returns the fatal error, nil after a clean end of stream.
func (p *Player) Err() error { return p.err }

// Stats returns counters for the run so far.
func (p *Player) Stats() Stats { return p.stats }

// Loop exposes the continuity state for inspection.
func (p *Player) Loop() *LoopState { return p.loop }

// Pacing exposes the pacing state for inspection.
func (p *Player) Pacing() PacingState { return p.pacing }
