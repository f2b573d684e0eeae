package modulator_test

import (
	"testing"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/frame"
	"github.com/bramburn/t018beacon/pkg/beacon/modulator"
	"github.com/bramburn/t018beacon/pkg/beacon/prn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRf struct {
	chips          [][2]int8
	amplifierState []bool
}

func (f *fakeRf) EmitChip(i, q int8)       { f.chips = append(f.chips, [2]int8{i, q}) }
func (f *fakeRf) SetPower(int)             {}
func (f *fakeRf) EnableAmplifier(on bool)  { f.amplifierState = append(f.amplifierState, on) }
func (f *fakeRf) SetFrequencyHz(uint32)    {}

func testFrame(t *testing.T) frame.Frame {
	t.Helper()
	id := beacon.BeaconIdentity{TAC: 12345, Serial: 1, Country: 228, ProtocolCode: 2, BeaconType: 1, VesselID: 0x1234}
	fix := beacon.GpsFix{LatDeg: 45, LonDeg: 5, AltM: 200, Valid: true, Day: 1, Hour: 2, Minute: 3}
	info, err := frame.BuildInfo(id, fix, beacon.G008Field{TimeValue: 1, AltitudeCode: 2})
	require.NoError(t, err)
	fr, err := frame.BuildFullFrame(info, 0xABCDEF, false)
	require.NoError(t, err)
	return fr
}

func TestExactlyTotalChipTicksDrainOneFrame(t *testing.T) {
	rf := &fakeRf{}
	var completed int
	m := modulator.New(rf, func() { completed++ })
	require.NoError(t, m.Start(testFrame(t)))

	ticks := 0
	for m.Transmitting() {
		m.OnChipTick()
		ticks++
		require.LessOrEqual(t, ticks, modulator.TotalChips+1, "runaway modulator")
	}

	assert.Equal(t, modulator.TotalChips, ticks)
	assert.Equal(t, 1, completed)
}

func TestIdleTicksAreIgnored(t *testing.T) {
	rf := &fakeRf{}
	m := modulator.New(rf, nil)
	m.OnChipTick()
	m.OnChipTick()
	assert.Empty(t, rf.chips)
	assert.False(t, m.Transmitting())
}

func TestStartWhileTransmittingIsRejected(t *testing.T) {
	rf := &fakeRf{}
	m := modulator.New(rf, nil)
	require.NoError(t, m.Start(testFrame(t)))
	err := m.Start(testFrame(t))
	assert.ErrorIs(t, err, beacon.ErrBusy)

	// The first transmission is undisturbed: draining it still completes
	// normally after exactly TotalChips ticks.
	ticks := 0
	for m.Transmitting() {
		m.OnChipTick()
		ticks++
	}
	assert.Equal(t, modulator.TotalChips, ticks)
}

func TestOQPSKQDelay(t *testing.T) {
	rf := &fakeRf{}
	m := modulator.New(rf, nil)
	fr := testFrame(t)
	require.NoError(t, m.Start(fr))

	// Reconstruct the expected raw Q-arm chip sequence independently using
	// fresh LFSRs seeded exactly as Start() seeds the modulator's own.
	lfsrQ := prn.NewLFSR(prn.QArmSeed)
	const ticks = 10
	var rawQ [ticks]int8
	bitIdx, chipIdx := 0, 0
	for k := 0; k < ticks; k++ {
		bit := fr.Bit(bitIdx)
		q := lfsrQ.Chip()
		if bit == 0 {
			q = -q
		}
		rawQ[k] = q
		lfsrQ.Step()
		chipIdx++
		if chipIdx == modulator.ChipsPerSymbol {
			chipIdx = 0
			bitIdx++
		}
	}

	for k := 0; k < ticks; k++ {
		m.OnChipTick()
	}
	require.Len(t, rf.chips, ticks)

	// Tick 0 emits the initial prev_q_chip (zero); tick k>0 emits rawQ[k-1].
	assert.EqualValues(t, 0, rf.chips[0][1])
	for k := 1; k < ticks; k++ {
		assert.EqualValues(t, rawQ[k-1], rf.chips[k][1], "tick %d", k)
	}
}

func TestStopTransitionsToIdleAtNextTickBoundary(t *testing.T) {
	rf := &fakeRf{}
	m := modulator.New(rf, nil)
	require.NoError(t, m.Start(testFrame(t)))
	m.OnChipTick()
	require.True(t, m.Transmitting())

	m.Stop()
	assert.True(t, m.Transmitting(), "stop takes effect at next tick, not immediately")
	m.OnChipTick()
	assert.False(t, m.Transmitting())
}
