// Package prn implements the dual 23-bit Fibonacci LFSR chip generator used
// to spread each information bit into 256 chips per arm.
package prn

import "github.com/bramburn/t018beacon/pkg/beacon"

const (
	// IArmSeed is the I-arm LFSR's initial state.
	IArmSeed = uint32(0x000001)
	// QArmSeed is the Q-arm LFSR's initial state, giving the Q arm a fixed
	// offset from the I arm: under Step it is the state the I-arm register
	// reaches 4,531,890 steps after IArmSeed.
	QArmSeed = uint32(0x000041)

	// Period is the LFSR's full cycle length, 2^23 - 1.
	Period = (1 << 23) - 1

	mask23 = uint32(1<<23) - 1
)

// LFSR is a 23-bit Fibonacci register with polynomial x^23 + x^18 + 1.
//
// The register is stored with bit 0 as the output/oldest bit and bit 22 as
// the slot the feedback bit shifts into. The polynomial's recurrence is
// s[k+23] = s[k+18] XOR s[k]: each step XORs the bit about to shift out
// (the constant term) with the tap at lag 18, and injects the result at the
// vacated top. Reading the tap description as a literal bit22-XOR-bit17
// rewiring collapses the sequence to period 2 instead of the required
// 2^23-1, so this recurrence form is the one implemented.
type LFSR struct {
	reg uint32
}

// NewLFSR constructs an LFSR with the given 23-bit seed.
func NewLFSR(seed uint32) *LFSR {
	return &LFSR{reg: seed & mask23}
}

// Reset reinitializes the register to seed; called once per frame at
// modulator start, never mid-frame.
func (l *LFSR) Reset(seed uint32) {
	l.reg = seed & mask23
}

// Chip returns the current output chip: +1 when bit 0 is set, else -1.
func (l *LFSR) Chip() int8 {
	if l.reg&1 == 1 {
		return 1
	}
	return -1
}

// Step advances the register by one chip.
func (l *LFSR) Step() {
	b0 := l.reg & 1
	b18 := (l.reg >> 18) & 1
	feedback := b0 ^ b18
	l.reg = (l.reg >> 1) | (feedback << 22)
	l.reg &= mask23
}

// SelfTest verifies the required startup property: the first three I-arm
// chips from the initial state must be (+1, -1, -1), and the first Q-arm
// chip must be +1. This rejects a tap-order mistake before any frame is
// ever modulated.
func SelfTest() error {
	i := NewLFSR(IArmSeed)
	got := [3]int8{i.Chip(), 0, 0}
	i.Step()
	got[1] = i.Chip()
	i.Step()
	got[2] = i.Chip()
	want := [3]int8{1, -1, -1}
	if got != want {
		return beacon.NewSelfTestFailure(beacon.PrnTestVector)
	}

	q := NewLFSR(QArmSeed)
	if q.Chip() != 1 {
		return beacon.NewSelfTestFailure(beacon.PrnTestVector)
	}
	return nil
}
