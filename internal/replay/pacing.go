package replay

import "time"

const usecPerSec = 1_000_000

// PacingState is remembered between steps by the pacing engine.
type PacingState struct {
	LastSendDuration time.Duration
	LastDelay        time.Duration
}

// Decision is the outcome of one pacing computation.
type Decision struct {
	// Delay to request from the scheduler. Never negative.
	Delay time.Duration
	// Late is how far behind the captured cadence the computation fell when
	// it had to clamp to zero.
	Late time.Duration
	// Reused is set when the previous delay was carried over across a
	// capture restart.
	Reused bool
}

// NextDelay computes how long to wait before sending the packet captured at
// next, the packet captured at current having just been sent in sendDuration.
//
// The captured gap minus the send cost is normalised to seconds and
// non-negative microseconds. Whenever the seconds part is zero, or the run
// does not loop, that value is used, clamped at zero. Otherwise, when looping,
// the capture has restarted and the previous delay is reused.
func (s *PacingState) NextDelay(current, next time.Time, sendDuration time.Duration, looping bool) Decision {
	s.LastSendDuration = sendDuration

	elapsed := next.UnixMicro() - current.UnixMicro()
	target := elapsed - sendDuration.Microseconds()

	if floorDiv(target, usecPerSec) != 0 && looping {
		return Decision{Delay: s.LastDelay, Reused: true}
	}

	var d Decision
	if target < 0 {
		d.Late = time.Duration(-target) * time.Microsecond
		target = 0
	}
	s.LastDelay = time.Duration(target) * time.Microsecond
	d.Delay = s.LastDelay
	return d
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
