// Package frame assembles the 202-bit information field and the full
// 252-bit frame from a BeaconIdentity, a resolved GpsFix, and a rotating
// field choice, and derives the 23-HEX beacon identifier both from an
// assembled info field and directly from an identity (the two must agree).
package frame

import (
	"fmt"
	"strings"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/bits"
)

const (
	InfoBits   = 202
	FrameBits  = 252
	ParityBits = 48

	infoBytes  = 26 // ceil(202/8), room to spare
	frameBytes = 32 // ceil(252/8)
	hexBytes   = 12 // ceil(92/8)
)

// Info is the fixed-size 202-bit information field.
type Info [infoBytes]byte

// Frame is the fixed-size 252-bit coded frame: [header(2) | info(202) | parity(48)].
type Frame [frameBytes]byte

func wrapConfig(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", beacon.ErrConfig, err)
}

// BuildInfo assembles the 202-bit information field per the T.018 bit
// layout: identity packet (1-43), latitude (44-66), longitude (67-90),
// vessel id (91-137), beacon type (138-140), spare (141-154), rotating
// field type id (155-158) and payload (159-202). fix must already reflect
// any fallback substitution; BuildInfo does not consult fix.Valid.
func BuildInfo(id beacon.BeaconIdentity, fix beacon.GpsFix, rotating beacon.RotatingField) (Info, error) {
	var info Info
	buf := info[:]

	if err := bits.Set(buf, 0, 16, uint64(id.TAC)); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 16, 14, uint64(id.Serial)); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 30, 10, uint64(id.Country)); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 40, 3, uint64(id.ProtocolCode)); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 43, 23, uint64(EncodeLat(fix.LatDeg))); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 66, 24, uint64(EncodeLon(fix.LonDeg))); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 90, 47, id.VesselID); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 137, 3, uint64(id.BeaconType)); err != nil {
		return info, wrapConfig(err)
	}

	var spare uint64
	if rotating.Kind() == beacon.KindCancel {
		spare = 0x3FFF
	}
	if err := bits.Set(buf, 140, 14, spare); err != nil {
		return info, wrapConfig(err)
	}
	if err := bits.Set(buf, 154, 4, uint64(rotating.Kind())); err != nil {
		return info, wrapConfig(err)
	}

	payload, err := rotatingPayload(rotating)
	if err != nil {
		return info, err
	}
	if err := bits.Set(buf, 158, 44, payload); err != nil {
		return info, wrapConfig(err)
	}

	return info, nil
}

// rotatingPayload packs the 44-bit rotating-field payload for the given
// variant.
func rotatingPayload(rotating beacon.RotatingField) (uint64, error) {
	switch v := rotating.(type) {
	case beacon.G008Field:
		return packTimeAltitude(v.TimeValue, v.AltitudeCode), nil
	case beacon.EltDtField:
		return packTimeAltitude(v.TimeValue, v.AltitudeCode), nil
	case beacon.RlsField:
		data := v.Data & ((uint64(1) << 36) - 1)
		return (uint64(v.Provider) << 36) | data, nil
	case beacon.CancelField:
		method := uint64(v.DeactivationMethod) & 0x3
		return (method << 42) | 0x3FFFFFFFFFF, nil
	default:
		return 0, fmt.Errorf("%w: unknown rotating field variant %T", beacon.ErrConfig, rotating)
	}
}

func packTimeAltitude(timeValue, altitudeCode uint16) uint64 {
	return (uint64(timeValue) << (10 + 18)) | (uint64(altitudeCode&0x3FF) << 18)
}

// EncodeTimeValue packs a UTC (day, hour, minute) triple into the 16-bit
// rotating-field time_value used by G008 and ELT-DT.
func EncodeTimeValue(day, hour, minute uint8) uint16 {
	return (uint16(day&0x1F) << 11) | (uint16(hour&0x1F) << 6) | uint16(minute&0x3F)
}

// EncodeLat converts a latitude in degrees to the 23-bit position code:
// ((lat+90) * 2^23 / 180) mod 2^23.
func EncodeLat(latDeg float64) uint32 {
	const span = float64(uint32(1) << 23)
	v := roundMod((latDeg+90.0)*span/180.0, 1<<23)
	return uint32(v)
}

// EncodeLon converts a longitude in degrees to the 24-bit position code:
// ((lon+180) * 2^24 / 360) mod 2^24.
func EncodeLon(lonDeg float64) uint32 {
	const span = float64(uint32(1) << 24)
	v := roundMod((lonDeg+180.0)*span/360.0, 1<<24)
	return uint32(v)
}

func roundMod(x float64, modulus int64) int64 {
	v := int64(x + 0.5)
	if x < 0 {
		v = int64(x - 0.5)
	}
	r := v % modulus
	if r < 0 {
		r += modulus
	}
	return r
}

// EncodeAltitude clamps altM to [-1500, +17000] m and returns the 10-bit
// altitude code round((alt+1500) * 1023 / 18500).
func EncodeAltitude(altM float64) uint16 {
	clamped := altM
	if clamped < -1500 {
		clamped = -1500
	}
	if clamped > 17000 {
		clamped = 17000
	}
	v := int64((clamped+1500)*1023/18500 + 0.5)
	return uint16(v)
}

// BuildFullFrame assembles the 252-bit frame: a 2-bit header (bit 0 = 1 iff
// TEST mode, bit 1 = 0), the 202-bit info field, and the 48-bit parity,
// MSB-first throughout.
func BuildFullFrame(info Info, parity uint64, testMode bool) (Frame, error) {
	var frame Frame
	buf := frame[:]
	var header0 uint64
	if testMode {
		header0 = 1
	}
	if err := bits.Set(buf, 0, 1, header0); err != nil {
		return frame, wrapConfig(err)
	}
	if err := bits.Set(buf, 1, 1, 0); err != nil {
		return frame, wrapConfig(err)
	}
	if err := bits.Copy(buf, 2, info[:], 0, InfoBits); err != nil {
		return frame, wrapConfig(err)
	}
	if err := bits.Set(buf, 2+InfoBits, ParityBits, parity); err != nil {
		return frame, wrapConfig(err)
	}
	return frame, nil
}

// Bit returns the value of a single bit of the 300-symbol transmitted
// stream: the first 50 symbols are the alternating preamble 0,1,0,1,...
// (not stored in the frame buffer at all); the remaining 250 symbols are
// the frame's info+parity bits, skipping the 2-bit header.
func (f Frame) Bit(symbolIdx int) int {
	if symbolIdx < 50 {
		return symbolIdx % 2
	}
	b, _ := bits.Get(f[:], 2+(symbolIdx-50), 1)
	return int(b)
}

// hexString renders totalBits/4 nibbles of buf as uppercase hex, MSB-first.
func hexString(buf []byte, totalBits int) string {
	nibbles := totalBits / 4
	var sb strings.Builder
	for i := 0; i < nibbles; i++ {
		v, _ := bits.Get(buf, i*4, 4)
		fmt.Fprintf(&sb, "%X", v)
	}
	return sb.String()
}

// HexFromInfo derives the 23-HEX beacon identifier from an assembled
// 202-bit info field by concatenating, in order: a fixed '1', the country
// code (info bits 31-40), fixed '101', the TAC (bits 1-16), the serial
// (bits 17-30), the test-protocol flag (bit 43), the beacon type (bits
// 138-140), and the first 44 bits of the vessel id (bits 91-134) — 92 bits
// total, rendered as 23 hex nibbles.
func HexFromInfo(info Info) (string, error) {
	var buf [hexBytes]byte
	dst := buf[:]
	src := info[:]
	pos := 0

	if err := bits.Set(dst, pos, 1, 1); err != nil {
		return "", wrapConfig(err)
	}
	pos++
	if err := bits.Copy(dst, pos, src, 30, 10); err != nil {
		return "", wrapConfig(err)
	}
	pos += 10
	if err := bits.Set(dst, pos, 3, 0b101); err != nil {
		return "", wrapConfig(err)
	}
	pos += 3
	if err := bits.Copy(dst, pos, src, 0, 16); err != nil {
		return "", wrapConfig(err)
	}
	pos += 16
	if err := bits.Copy(dst, pos, src, 16, 14); err != nil {
		return "", wrapConfig(err)
	}
	pos += 14
	if err := bits.Copy(dst, pos, src, 42, 1); err != nil {
		return "", wrapConfig(err)
	}
	pos++
	if err := bits.Copy(dst, pos, src, 137, 3); err != nil {
		return "", wrapConfig(err)
	}
	pos += 3
	if err := bits.Copy(dst, pos, src, 90, 44); err != nil {
		return "", wrapConfig(err)
	}
	pos += 44

	return hexString(dst, pos), nil
}

// HexFromIdentity derives the same 23-HEX identifier directly from a
// BeaconIdentity, independent of any assembled info field. It must agree
// with HexFromInfo(BuildInfo(id, fix, rotating)) for any fix/rotating,
// since both draw the same identity fields from the same bit positions.
func HexFromIdentity(id beacon.BeaconIdentity) (string, error) {
	var buf [hexBytes]byte
	dst := buf[:]
	pos := 0

	set := func(n int, v uint64) error {
		if err := bits.Set(dst, pos, n, v); err != nil {
			return err
		}
		pos += n
		return nil
	}

	if err := set(1, 1); err != nil {
		return "", wrapConfig(err)
	}
	if err := set(10, uint64(id.Country)); err != nil {
		return "", wrapConfig(err)
	}
	if err := set(3, 0b101); err != nil {
		return "", wrapConfig(err)
	}
	if err := set(16, uint64(id.TAC)); err != nil {
		return "", wrapConfig(err)
	}
	if err := set(14, uint64(id.Serial)); err != nil {
		return "", wrapConfig(err)
	}
	testFlag := uint64(id.ProtocolCode) & 0x1
	if err := set(1, testFlag); err != nil {
		return "", wrapConfig(err)
	}
	if err := set(3, uint64(id.BeaconType)); err != nil {
		return "", wrapConfig(err)
	}
	vesselHigh44 := id.VesselID >> 3
	if err := set(44, vesselHigh44); err != nil {
		return "", wrapConfig(err)
	}

	return hexString(dst, pos), nil
}
