// Package beacon holds the domain types and collaborator interfaces shared
// across the T.018 second-generation beacon transmit core: beacon identity,
// GPS fix snapshots, rotating-field variants, operating mode, the error
// taxonomy, and the interfaces the core consumes from its surrounding
// hardware (RF driver, clock, GPS source, mode switch).
package beacon

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the core's error taxonomy. None of them are fatal
// except ErrConfig at init; every other error is logged and the beacon keeps
// trying on the next scheduled slot.
var (
	ErrConfig          = errors.New("beacon: configuration error")
	ErrBusy            = errors.New("beacon: modulator busy")
	ErrFixUnavailable  = errors.New("beacon: gps fix unavailable")
	ErrSelfTestFailure = errors.New("beacon: self-test failure")
	ErrRfFault         = errors.New("beacon: rf fault")
)

// SelfTestTarget names which power-on self-check produced ErrSelfTestFailure.
type SelfTestTarget string

const (
	BchTestVector SelfTestTarget = "bch"
	PrnTestVector SelfTestTarget = "prn"
)

// NewSelfTestFailure wraps ErrSelfTestFailure with the failing target so
// callers can still match it with errors.Is(err, ErrSelfTestFailure).
func NewSelfTestFailure(target SelfTestTarget) error {
	return fmt.Errorf("%w: %s", ErrSelfTestFailure, target)
}

// Mode selects which cadence the scheduler runs: a fixed 10-second TEST
// cadence, or the three-phase EXERCISE (ELT) cadence.
type Mode int

const (
	ModeTest Mode = iota
	ModeExercise
)

func (m Mode) String() string {
	if m == ModeExercise {
		return "EXERCISE"
	}
	return "TEST"
}

// BeaconIdentity is the immutable-per-boot identity assembled into every
// transmitted frame.
type BeaconIdentity struct {
	TAC          uint16 `yaml:"tac"`           // type-approval code, 0..65535
	Serial       uint16 `yaml:"serial"`        // 14 bits, 0..16383
	Country      uint16 `yaml:"country"`       // 10 bits, 0..1023
	ProtocolCode uint8  `yaml:"protocol_code"` // 3 bits, 0..7
	BeaconType   uint8  `yaml:"beacon_type"`   // 3 bits, 0..7
	VesselID     uint64 `yaml:"vessel_id"`     // 47 bits
}

// Validate checks field widths and the TAC/mode invariant: tac > 10000 iff
// the system is not in TEST mode; in TEST, tac must equal 9999.
func (id BeaconIdentity) Validate(testMode bool) error {
	if id.Serial > 0x3FFF {
		return fmt.Errorf("%w: serial %d exceeds 14 bits", ErrConfig, id.Serial)
	}
	if id.Country > 0x3FF {
		return fmt.Errorf("%w: country %d exceeds 10 bits", ErrConfig, id.Country)
	}
	if id.ProtocolCode > 0x7 {
		return fmt.Errorf("%w: protocol_code %d exceeds 3 bits", ErrConfig, id.ProtocolCode)
	}
	if id.BeaconType > 0x7 {
		return fmt.Errorf("%w: beacon_type %d exceeds 3 bits", ErrConfig, id.BeaconType)
	}
	if id.VesselID > (uint64(1)<<47)-1 {
		return fmt.Errorf("%w: vessel_id %d exceeds 47 bits", ErrConfig, id.VesselID)
	}
	if testMode && id.TAC != 9999 {
		return fmt.Errorf("%w: tac must be 9999 in TEST mode, got %d", ErrConfig, id.TAC)
	}
	if !testMode && id.TAC <= 10000 {
		return fmt.Errorf("%w: tac must be > 10000 outside TEST mode, got %d", ErrConfig, id.TAC)
	}
	return nil
}

// GpsFix is a snapshot passed by reference, never owned by the core. If
// Valid is false the core substitutes a configured fallback fix.
type GpsFix struct {
	LatDeg     float64 `yaml:"lat_deg"` // [-90, +90]
	LonDeg     float64 `yaml:"lon_deg"` // [-180, +180]
	AltM       float64 `yaml:"alt_m"`   // [-1500, +17000]
	Valid      bool    `yaml:"-"`
	Day        uint8   `yaml:"day"`    // 1..31
	Hour       uint8   `yaml:"hour"`   // 0..23
	Minute     uint8   `yaml:"minute"` // 0..59
	Satellites int     `yaml:"-"`
	FixQuality int     `yaml:"-"`
}

// RotatingFieldKind identifies which of the four rotating-field payloads a
// RotatingField carries. It doubles as the 4-bit type id stored in the
// assembled info field, so it is never stored redundantly on the variant.
type RotatingFieldKind int

const (
	KindG008 RotatingFieldKind = iota
	KindEltDt
	KindRls
	KindCancel
)

func (k RotatingFieldKind) String() string {
	switch k {
	case KindG008:
		return "G008"
	case KindEltDt:
		return "ELT_DT"
	case KindRls:
		return "RLS"
	case KindCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// RotatingField is the tagged variant replacing the source's C union of
// rotating-field payloads.
type RotatingField interface {
	Kind() RotatingFieldKind
}

// G008Field carries the T.018 "G.008" rotating-field payload: a UTC
// time-of-last-fix value and an altitude code.
type G008Field struct {
	TimeValue    uint16 // 16 bits
	AltitudeCode uint16 // 10 bits
}

func (G008Field) Kind() RotatingFieldKind { return KindG008 }

// EltDtField carries the ELT-DT rotating-field payload; bit-identical in
// shape to G008Field but distinguished by type id.
type EltDtField struct {
	TimeValue    uint16 // 16 bits
	AltitudeCode uint16 // 10 bits
}

func (EltDtField) Kind() RotatingFieldKind { return KindEltDt }

// RlsField carries a return-link-service provider id and opaque data; the
// core places these bits but never interprets the RLS payload semantics.
type RlsField struct {
	Provider uint8  // 8 bits
	Data     uint64 // 36 bits
}

func (RlsField) Kind() RotatingFieldKind { return KindRls }

// CancelField carries a cancellation message; the frame assembler also sets
// the 14-bit spare field to all-ones whenever this variant is active.
type CancelField struct {
	DeactivationMethod uint8 // 2 bits
}

func (CancelField) Kind() RotatingFieldKind { return KindCancel }

// Status is a point-in-time snapshot of the core, suitable for logging or
// telemetry publishing.
type Status struct {
	Transmitting bool
	Phase        string
	TxCount      int
	LastTxMs     uint64
	LastHexID    string
}

// RfDriver is the collaborator interface for the I/Q DAC and PLL
// synthesizer. The core emits chip pairs and power-level commands; the
// driver owns DAC scaling and calibration.
type RfDriver interface {
	EmitChip(i, q int8)
	SetPower(level int)
	EnableAmplifier(on bool)
	SetFrequencyHz(hz uint32)
}

// Clock is the collaborator interface for the monotonic millisecond counter
// and the 38.400 kHz chip-tick source.
type Clock interface {
	NowMs() uint64
	RegisterChipTick(cb func())
}

// GpsSource is the collaborator interface for a validated GPS fix. The bool
// result mirrors Option<GpsFix>: false means no current fix is available.
type GpsSource interface {
	CurrentFix() (GpsFix, bool)
}

// ModeInput is the collaborator interface for the mode-switch GPIO read,
// consulted once at boot.
type ModeInput interface {
	Read() Mode
}
