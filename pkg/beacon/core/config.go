package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/frame"
)

// RotatingConfig selects which rotating-field variant a Core transmits and
// carries the parameters static variants (RLS, CANCEL) need. G008/ELT-DT
// time_value and altitude_code are never configured statically: they are
// recomputed from the resolved GpsFix on every transmission, the way the
// vendor firmware's frame builder derives them from the last fix rather
// than from persisted configuration.
type RotatingConfig struct {
	Kind         beacon.RotatingFieldKind `yaml:"-"`
	RlsProvider  uint8                    `yaml:"rls_provider"`
	RlsData      uint64                   `yaml:"rls_data"`
	CancelMethod uint8                    `yaml:"cancel_method"`
}

// Resolve builds the concrete RotatingField to embed in the next frame.
func (rc RotatingConfig) Resolve(fix beacon.GpsFix) beacon.RotatingField {
	switch rc.Kind {
	case beacon.KindEltDt:
		return beacon.EltDtField{
			TimeValue:    frame.EncodeTimeValue(fix.Day, fix.Hour, fix.Minute),
			AltitudeCode: frame.EncodeAltitude(fix.AltM),
		}
	case beacon.KindRls:
		return beacon.RlsField{Provider: rc.RlsProvider, Data: rc.RlsData}
	case beacon.KindCancel:
		return beacon.CancelField{DeactivationMethod: rc.CancelMethod}
	case beacon.KindG008:
		fallthrough
	default:
		return beacon.G008Field{
			TimeValue:    frame.EncodeTimeValue(fix.Day, fix.Hour, fix.Minute),
			AltitudeCode: frame.EncodeAltitude(fix.AltM),
		}
	}
}

// Config is the fully-resolved, validated configuration a Core is built
// from.
type Config struct {
	Identity    beacon.BeaconIdentity
	Mode        beacon.Mode
	FallbackFix beacon.GpsFix
	Rotating    RotatingConfig
	RandomSeed  int64
}

// fileConfig is the YAML-shaped DTO; Mode and RotatingConfig.Kind need
// string parsing that doesn't map onto yaml.v3's struct tags directly.
type fileConfig struct {
	Mode        string                `yaml:"mode"`
	Identity    beacon.BeaconIdentity `yaml:"identity"`
	FallbackFix beacon.GpsFix         `yaml:"fallback_fix"`
	RandomSeed  int64                 `yaml:"random_seed"`
	Rotating    struct {
		Type         string `yaml:"type"`
		RlsProvider  uint8  `yaml:"rls_provider"`
		RlsData      uint64 `yaml:"rls_data"`
		CancelMethod uint8  `yaml:"cancel_method"`
	} `yaml:"rotating_field"`
}

// LoadConfig reads and validates a beacon configuration from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %v", beacon.ErrConfig, path, err)
	}
	return ParseConfig(data)
}

// ParseConfig validates and decodes YAML configuration bytes.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: invalid yaml: %v", beacon.ErrConfig, err)
	}

	mode, err := parseMode(fc.Mode)
	if err != nil {
		return Config{}, err
	}
	kind, err := parseRotatingKind(fc.Rotating.Type)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Identity:    fc.Identity,
		Mode:        mode,
		FallbackFix: fc.FallbackFix,
		RandomSeed:  fc.RandomSeed,
		Rotating: RotatingConfig{
			Kind:         kind,
			RlsProvider:  fc.Rotating.RlsProvider,
			RlsData:      fc.Rotating.RlsData,
			CancelMethod: fc.Rotating.CancelMethod,
		},
	}
	cfg.FallbackFix.Valid = true

	if err := cfg.Identity.Validate(mode == beacon.ModeTest); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseMode(s string) (beacon.Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TEST":
		return beacon.ModeTest, nil
	case "EXERCISE":
		return beacon.ModeExercise, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q (want TEST or EXERCISE)", beacon.ErrConfig, s)
	}
}

func parseRotatingKind(s string) (beacon.RotatingFieldKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "G008":
		return beacon.KindG008, nil
	case "ELT_DT", "ELTDT":
		return beacon.KindEltDt, nil
	case "RLS":
		return beacon.KindRls, nil
	case "CANCEL":
		return beacon.KindCancel, nil
	default:
		return 0, fmt.Errorf("%w: unknown rotating_field.type %q", beacon.ErrConfig, s)
	}
}
