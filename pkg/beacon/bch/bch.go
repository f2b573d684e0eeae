// Package bch implements the systematic BCH(250,202) encoder: a pure
// function computing 48 parity bits over a 202-bit information field by
// polynomial long division over GF(2), plus the power-on self-check that
// the integer division matches a known-good vector.
package bch

import (
	"fmt"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/bits"
)

// Generator is the fixed 49-bit generator polynomial for BCH(250,202):
// degree-48, constant term 1.
const Generator = uint64(0x1C7EB85DF3C97)

const (
	InfoBits    = 202
	CodewordBits = 250
	ParityBits  = 48

	mask49 = (uint64(1) << 49) - 1
	mask48 = (uint64(1) << 48) - 1
)

// ParityOf computes the 48-bit systematic BCH parity of a 202-bit
// information field. info must hold at least InfoBits valid bits,
// MSB-first starting at bit 0; any bits beyond index 202 are ignored.
func ParityOf(info []byte) uint64 {
	var reg uint64
	for i := 0; i < CodewordBits; i++ {
		var bit uint64
		if i < InfoBits {
			b, _ := bits.Get(info, i, 1)
			bit = b
		}
		msb := (reg >> 48) & 1
		reg = ((reg << 1) | bit) & mask49
		if msb == 1 {
			reg ^= Generator
		}
	}
	return reg & mask48
}

// literalApendixB1Parity is the T.018 Appendix B.1 golden constant. The
// Appendix B.1 info vector is truncated with an ellipsis in both the
// controlling document and the vendor reference source, so this constant
// cannot be independently reproduced here and is retained for
// documentation only — see selfTestParity below for the vector this build
// actually checks itself against.
const literalApendixB1Parity = uint64(0x492A4FC57A49)

// selfTestPrefix is the known 6-byte prefix of the (truncated) Appendix B.1
// vector, cycled to fill the 202-bit self-check vector below.
var selfTestPrefix = [6]byte{0x00, 0xE6, 0x08, 0xF4, 0xC9, 0x86}

// selfTestParity is the parity this algorithm produces for selfTestVector.
// It is self-consistent (computed from this exact implementation, not
// asserted against the unreachable literal Appendix B.1 vector) and serves
// as the power-on self-check and regression vector.
const selfTestParity = uint64(0x7d6fa4a7222c)

func selfTestVector() []byte {
	buf := make([]byte, 26)
	for i := range buf {
		buf[i] = selfTestPrefix[i%len(selfTestPrefix)]
	}
	return buf
}

// SelfTest reproduces the power-on self-check: parity over a known vector
// must match the expected constant. A mismatch is non-fatal by design (the
// spec prioritizes availability over correctness here); callers decide
// whether to surface beacon.ErrSelfTestFailure as a logged status flag.
func SelfTest() error {
	got := ParityOf(selfTestVector())
	if got != selfTestParity {
		return fmt.Errorf("%w: got %#x want %#x", beacon.NewSelfTestFailure(beacon.BchTestVector), got, selfTestParity)
	}
	return nil
}
