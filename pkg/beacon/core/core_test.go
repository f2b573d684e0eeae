package core_test

import (
	"testing"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/core"
	"github.com/bramburn/t018beacon/pkg/beacon/frame"
	"github.com/bramburn/t018beacon/pkg/beacon/modulator"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRf struct {
	amplifierOn bool
	chipCount   int
}

func (f *fakeRf) EmitChip(i, q int8)      { f.chipCount++ }
func (f *fakeRf) SetPower(int)            {}
func (f *fakeRf) EnableAmplifier(on bool) { f.amplifierOn = on }
func (f *fakeRf) SetFrequencyHz(uint32)   {}

type fakeGps struct {
	fix   beacon.GpsFix
	valid bool
}

func (g *fakeGps) CurrentFix() (beacon.GpsFix, bool) { return g.fix, g.valid }

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(testDiscard{})
	return l
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

func testConfig(t *testing.T, mode beacon.Mode) core.Config {
	t.Helper()
	tac := uint16(12345)
	if mode == beacon.ModeTest {
		tac = 9999
	}
	return core.Config{
		Identity: beacon.BeaconIdentity{
			TAC: tac, Serial: 1, Country: 228, ProtocolCode: 2, BeaconType: 1, VesselID: 0x123456789ABC,
		},
		Mode:        mode,
		FallbackFix: beacon.GpsFix{LatDeg: 45.1885, LonDeg: 5.7245, AltM: 214, Day: 15, Hour: 10, Minute: 30, Valid: true},
		Rotating:    core.RotatingConfig{Kind: beacon.KindG008},
		RandomSeed:  1,
	}
}

// S1 (TEST boot): first transmission at now=10_000ms, and the reported hex
// id agrees with HexFromIdentity. The TEST header bits are checked in the
// frame package's tests.
func TestS1TestBootFirstTransmission(t *testing.T) {
	cfg := testConfig(t, beacon.ModeTest)
	rf := &fakeRf{}
	gps := &fakeGps{valid: false}
	c, err := core.New(cfg, rf, gps, silentLogger())
	require.NoError(t, err)

	c.OnMillisTick(9_999)
	assert.False(t, c.Status().Transmitting)

	c.OnMillisTick(10_000)
	assert.True(t, c.Status().Transmitting)

	wantHex, err := frame.HexFromIdentity(cfg.Identity)
	require.NoError(t, err)
	assert.Equal(t, wantHex, c.Status().LastHexID)
}

// S6 (Busy rejection): calling on_millis_tick again while transmitting must
// not disturb the ongoing transmission, which drains normally.
func TestS6BusyRejectionDoesNotDisturbOngoingTransmission(t *testing.T) {
	cfg := testConfig(t, beacon.ModeTest)
	rf := &fakeRf{}
	gps := &fakeGps{valid: false}
	c, err := core.New(cfg, rf, gps, silentLogger())
	require.NoError(t, err)

	c.OnMillisTick(10_000)
	require.True(t, c.Status().Transmitting)
	firstHex := c.Status().LastHexID

	// A second due slot while still transmitting must be silently dropped.
	c.OnMillisTick(10_001)
	assert.True(t, c.Status().Transmitting)
	assert.Equal(t, firstHex, c.Status().LastHexID)

	for i := 0; i < modulator.TotalChips; i++ {
		c.OnChipTick()
	}
	assert.False(t, c.Status().Transmitting)
	assert.Equal(t, 1, c.Status().TxCount)
}

func TestFallbackFixUsedWhenGpsInvalid(t *testing.T) {
	cfg := testConfig(t, beacon.ModeTest)
	rf := &fakeRf{}
	gps := &fakeGps{valid: false}
	c, err := core.New(cfg, rf, gps, silentLogger())
	require.NoError(t, err)

	c.OnMillisTick(10_000)
	assert.True(t, c.Status().Transmitting)
}

func TestInvalidIdentityFailsInit(t *testing.T) {
	cfg := testConfig(t, beacon.ModeTest)
	cfg.Identity.TAC = 1 // invalid for TEST mode
	rf := &fakeRf{}
	gps := &fakeGps{}
	_, err := core.New(cfg, rf, gps, silentLogger())
	assert.ErrorIs(t, err, beacon.ErrConfig)
}

func TestStatusSinkInvokedAfterTransmission(t *testing.T) {
	cfg := testConfig(t, beacon.ModeTest)
	rf := &fakeRf{}
	gps := &fakeGps{valid: true, fix: beacon.GpsFix{LatDeg: 1, LonDeg: 1, AltM: 1, Valid: true, Day: 1, Hour: 1, Minute: 1}}
	c, err := core.New(cfg, rf, gps, silentLogger())
	require.NoError(t, err)

	var got *beacon.Status
	c.SetStatusSink(func(s beacon.Status) { st := s; got = &st })

	c.OnMillisTick(10_000)
	for i := 0; i < modulator.TotalChips; i++ {
		c.OnChipTick()
	}

	require.NotNil(t, got)
	assert.Equal(t, 1, got.TxCount)
	assert.False(t, got.Transmitting)
}
