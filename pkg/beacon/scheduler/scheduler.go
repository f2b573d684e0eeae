// Package scheduler implements the mode machine (TEST / EXERCISE) and the
// three-phase ELT transmission cadence, deciding when a frame is due
// without ever touching the RF front end itself.
package scheduler

import (
	"math/rand"

	"github.com/bramburn/t018beacon/pkg/beacon"
)

// Phase is the three-phase ELT cadence state.
type Phase int

const (
	Phase1 Phase = iota
	Phase2
	Phase3
)

func (p Phase) String() string {
	switch p {
	case Phase1:
		return "Phase1"
	case Phase2:
		return "Phase2"
	case Phase3:
		return "Phase3"
	default:
		return "Unknown"
	}
}

const (
	testIntervalMs   = uint64(10_000)
	phase1IntervalMs = uint64(5_000)
	phase1Count      = 24
	phase2IntervalMs = uint64(10_000)
	phase2Count      = 18
	phase3BaseMs     = int64(28_500)
	phase3JitterMs   = int64(1_500)
)

// Scheduler tracks operating mode and ELT cadence state, deciding whether a
// frame should be launched at a given millisecond timestamp.
type Scheduler struct {
	mode   beacon.Mode
	phase  Phase
	txCountInPhase int
	phaseStartMs   uint64
	lastTxMs       uint64
	nextIntervalMs uint64
	rng            *rand.Rand
}

// New constructs a Scheduler in the given mode. rngSeed controls the
// Phase3 dwell-time jitter and should come from a real entropy source in
// production, a fixed seed in tests.
func New(mode beacon.Mode, rngSeed int64) *Scheduler {
	s := &Scheduler{mode: mode, rng: rand.New(rand.NewSource(rngSeed))}
	s.resetElt()
	s.recomputeInterval()
	return s
}

func (s *Scheduler) resetElt() {
	s.phase = Phase1
	s.txCountInPhase = 0
	s.phaseStartMs = 0
}

func (s *Scheduler) recomputeInterval() {
	if s.mode == beacon.ModeTest {
		s.nextIntervalMs = testIntervalMs
		return
	}
	switch s.phase {
	case Phase1:
		s.nextIntervalMs = phase1IntervalMs
	case Phase2:
		s.nextIntervalMs = phase2IntervalMs
	case Phase3:
		jitter := s.rng.Int63n(2*phase3JitterMs+1) - phase3JitterMs
		s.nextIntervalMs = uint64(phase3BaseMs + jitter)
	}
}

// SetMode switches operating mode. Entering EXERCISE always starts at
// Phase1; TEST mode has no phase concept.
func (s *Scheduler) SetMode(mode beacon.Mode) {
	s.mode = mode
	if mode == beacon.ModeExercise {
		s.resetElt()
	}
	s.recomputeInterval()
}

// Mode reports the current operating mode.
func (s *Scheduler) Mode() beacon.Mode { return s.mode }

// Phase reports the current ELT phase (meaningless in TEST mode).
func (s *Scheduler) Phase() Phase { return s.phase }

// TxCountInPhase reports how many frames have been sent in the current
// phase.
func (s *Scheduler) TxCountInPhase() int { return s.txCountInPhase }

// LastTxMs reports the millisecond timestamp of the last transmission
// start.
func (s *Scheduler) LastTxMs() uint64 { return s.lastTxMs }

// ShouldTransmit reports whether a frame is due at nowMs, given whether the
// modulator is currently transmitting.
func (s *Scheduler) ShouldTransmit(nowMs uint64, modulatorBusy bool) bool {
	if modulatorBusy {
		return false
	}
	return nowMs-s.lastTxMs >= s.nextIntervalMs
}

// OnTransmissionStarted records the start time of a just-launched frame.
func (s *Scheduler) OnTransmissionStarted(nowMs uint64) {
	s.lastTxMs = nowMs
}

// OnTransmissionComplete advances phase counters after a successful
// transmission and recomputes the interval until the next one is due.
// Phase3 is terminal: it never advances further on its own.
func (s *Scheduler) OnTransmissionComplete() {
	if s.mode == beacon.ModeExercise {
		s.txCountInPhase++
		switch s.phase {
		case Phase1:
			if s.txCountInPhase >= phase1Count {
				s.phase = Phase2
				s.txCountInPhase = 0
				s.phaseStartMs = s.lastTxMs
			}
		case Phase2:
			if s.txCountInPhase >= phase2Count {
				s.phase = Phase3
				s.txCountInPhase = 0
				s.phaseStartMs = s.lastTxMs
			}
		case Phase3:
			// terminal
		}
	}
	s.recomputeInterval()
}

// StopElt ends the exercise cadence, resetting phase state so a future
// EXERCISE entry starts again from Phase1.
func (s *Scheduler) StopElt() {
	s.resetElt()
	s.recomputeInterval()
}
