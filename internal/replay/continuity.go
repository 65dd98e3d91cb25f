// Package replay implements real-time playback of a captured RTP stream: the
// pacing engine that reproduces captured inter-packet gaps, the loop
// continuity rewriter that keeps sequence numbers and timestamps continuous
// across traversals of the capture, and the self-rescheduling player that
// drives both.
package replay

// Infinite is the remaining-loops sentinel for endless playback.
const Infinite = -1

// LoopState carries the loop bookkeeping and the synthetic RTP clock across
// steps. It is owned by one Player and only touched from its step.
type LoopState struct {
	remaining int

	lastNative     uint32
	haveLastNative bool

	syntheticTS     uint32
	haveSyntheticTS bool

	increment uint32
	restarted bool

	syntheticSeq     uint16
	haveSyntheticSeq bool
}

// NewLoopState builds the state for a run that plays the capture playCount
// times. Zero means forever.
func NewLoopState(playCount int) *LoopState {
	remaining := Infinite
	if playCount > 0 {
		remaining = playCount - 1
	}
	return &LoopState{remaining: remaining}
}

// Remaining returns the number of traversals left after the current one, or
// Infinite.
func (s *LoopState) Remaining() int { return s.remaining }

// Increment returns the learned per-frame timestamp step, zero until learned.
func (s *LoopState) Increment() uint32 { return s.increment }

// SyntheticTimestamp returns the last timestamp handed out by Rewrite.
func (s *LoopState) SyntheticTimestamp() uint32 { return s.syntheticTS }

// SyntheticSequenceNumber returns the last sequence number handed out by Rewrite.
func (s *LoopState) SyntheticSequenceNumber() uint16 { return s.syntheticSeq }

// NextTraversal is called at end of capture. It reports whether another
// traversal is allowed and consumes one when the count is finite.
func (s *LoopState) NextTraversal() bool {
	switch {
	case s.remaining == 0:
		return false
	case s.remaining > 0:
		s.remaining--
	}
	return true
}

// Restarted marks the next packet as the first of a new traversal.
func (s *LoopState) Restarted() { s.restarted = true }

// Rewrite maps the native timestamp and sequence number of one packet to the
// values to transmit.
//
// The synthetic timestamp moves once per native timestamp change, never once
// per packet, so fragments of one frame keep sharing a timestamp. The step
// is learned from the first forward change observed and kept for the rest of
// the run. Any other change, backward ones included, advances by that step.
// On the first packet after Restarted the synthetic clock holds and the
// native clock is re-anchored. The sequence number advances by one on every
// call, wrapping at 65536.
func (s *LoopState) Rewrite(nativeTS uint32, nativeSeq uint16) (uint32, uint16) {
	restarted := s.restarted
	s.restarted = false

	if !s.haveLastNative || nativeTS != s.lastNative {
		switch {
		case !s.haveSyntheticTS:
			s.syntheticTS = nativeTS
			s.haveSyntheticTS = true
		case restarted:
		default:
			if delta := int32(nativeTS - s.lastNative); delta > 0 && s.increment == 0 {
				s.increment = uint32(delta)
			}
			s.syntheticTS += s.increment
		}
		s.lastNative = nativeTS
		s.haveLastNative = true
	}

	if !s.haveSyntheticSeq {
		s.syntheticSeq = nativeSeq
		s.haveSyntheticSeq = true
	} else {
		s.syntheticSeq++
	}

	return s.syntheticTS, s.syntheticSeq
}
