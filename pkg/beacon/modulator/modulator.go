// Package modulator implements the DSSS/OQPSK chip scheduler: a state
// machine advanced one chip at a time by an external 38.400 kHz chip-tick
// source, spreading each of the frame's 300 symbols into 256 chips per arm
// with a half-chip Q-arm delay.
package modulator

import (
	"fmt"
	"sync/atomic"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/frame"
	"github.com/bramburn/t018beacon/pkg/beacon/prn"
)

const (
	ChipsPerSymbol = 256
	PreambleSymbols = 50
	TotalSymbols    = PreambleSymbols + frame.InfoBits + frame.ParityBits // 300
	TotalChips      = TotalSymbols * ChipsPerSymbol                      // 76,800
)

// State is the modulator's coarse transmit state.
type State int

const (
	Idle State = iota
	Transmitting
)

// Modulator drives an RfDriver one chip at a time. Start/OnChipTick are the
// only two entry points; OnChipTick is meant to be called from the
// chip-tick ISR context and must stay bounded-time and allocation-free.
type Modulator struct {
	rf         beacon.RfDriver
	onComplete func()

	state   State
	frame   frame.Frame
	bitIdx  int
	chipIdx int

	lfsrI *prn.LFSR
	lfsrQ *prn.LFSR

	prevQChip int8

	stopRequested atomic.Bool
}

// New constructs a Modulator driving rf, invoking onComplete (if non-nil)
// exactly once per transmission when the frame has fully drained.
func New(rf beacon.RfDriver, onComplete func()) *Modulator {
	return &Modulator{
		rf:         rf,
		onComplete: onComplete,
		lfsrI:      prn.NewLFSR(prn.IArmSeed),
		lfsrQ:      prn.NewLFSR(prn.QArmSeed),
	}
}

// Transmitting reports whether a frame is currently being spread.
func (m *Modulator) Transmitting() bool {
	return m.state == Transmitting
}

// Start snapshots fr, resets the PRN LFSRs and bit/chip counters, and
// enables the RF amplifier. It returns beacon.ErrBusy without disturbing
// the ongoing transmission if one is already in progress. The actual
// chip-0 emission happens on the first subsequent OnChipTick call, so that
// exactly TotalChips calls to OnChipTick drain one frame (Invariant 10),
// rather than TotalChips-1.
func (m *Modulator) Start(fr frame.Frame) error {
	if m.state == Transmitting {
		return fmt.Errorf("%w: modulator already transmitting", beacon.ErrBusy)
	}
	m.frame = fr
	m.lfsrI.Reset(prn.IArmSeed)
	m.lfsrQ.Reset(prn.QArmSeed)
	m.bitIdx = 0
	m.chipIdx = 0
	m.prevQChip = 0
	m.state = Transmitting
	m.stopRequested.Store(false)
	m.rf.EnableAmplifier(true)
	return nil
}

// Stop requests a deterministic transition to Idle at the next tick
// boundary: the chip already committed this tick completes, then the
// transition takes effect before any further chip is spread. No partial
// chip is ever emitted.
func (m *Modulator) Stop() {
	m.stopRequested.Store(true)
}

// OnChipTick advances the modulator by exactly one chip. Ticks arriving
// while Idle are silently ignored, matching the RF driver's indifference to
// a spurious chip clock edge with nothing to send.
func (m *Modulator) OnChipTick() {
	if m.state != Transmitting {
		return
	}
	if m.stopRequested.Load() {
		m.rf.EmitChip(0, 0)
		m.rf.EnableAmplifier(false)
		m.state = Idle
		m.stopRequested.Store(false)
		return
	}

	bit := m.frame.Bit(m.bitIdx)

	iRaw := m.lfsrI.Chip()
	qRaw := m.lfsrQ.Chip()
	if bit == 0 {
		iRaw = -iRaw
		qRaw = -qRaw
	}

	// OQPSK half-chip Q delay: emit this tick's I chip alongside the
	// previous tick's raw Q chip, then remember this tick's Q chip for
	// the next emission.
	m.rf.EmitChip(iRaw, m.prevQChip)
	m.prevQChip = qRaw

	m.lfsrI.Step()
	m.lfsrQ.Step()

	m.chipIdx++
	if m.chipIdx == ChipsPerSymbol {
		m.chipIdx = 0
		m.bitIdx++
	}

	if m.bitIdx == TotalSymbols {
		// Flush the final half-chip's worth of Q energy with a zero I
		// arm, then go idle. No extra external tick is consumed for this.
		m.rf.EmitChip(0, m.prevQChip)
		m.rf.EnableAmplifier(false)
		m.state = Idle
		if m.onComplete != nil {
			m.onComplete()
		}
	}
}
