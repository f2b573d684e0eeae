package scheduler_test

import (
	"testing"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/scheduler"
	"github.com/stretchr/testify/assert"
)

func TestTestModeCadence(t *testing.T) {
	s := scheduler.New(beacon.ModeTest, 1)
	assert.True(t, s.ShouldTransmit(10_000, false))
	assert.False(t, s.ShouldTransmit(9_999, false))

	s.OnTransmissionStarted(10_000)
	assert.False(t, s.ShouldTransmit(15_000, false))
	assert.True(t, s.ShouldTransmit(20_000, false))
}

func TestModulatorBusySuppressesTransmission(t *testing.T) {
	s := scheduler.New(beacon.ModeTest, 1)
	assert.False(t, s.ShouldTransmit(999_999, true))
}

func TestEltPhaseRollover(t *testing.T) {
	s := scheduler.New(beacon.ModeExercise, 1)
	assert.Equal(t, scheduler.Phase1, s.Phase())

	now := uint64(0)
	for i := 0; i < 24; i++ {
		now += 5_000
		s.OnTransmissionStarted(now)
		s.OnTransmissionComplete()
	}
	assert.Equal(t, scheduler.Phase2, s.Phase())
	assert.Equal(t, 0, s.TxCountInPhase())

	for i := 0; i < 18; i++ {
		now += 10_000
		s.OnTransmissionStarted(now)
		s.OnTransmissionComplete()
	}
	assert.Equal(t, scheduler.Phase3, s.Phase())
}

func TestPhase3IntervalsAreWithinJitterBand(t *testing.T) {
	s := scheduler.New(beacon.ModeExercise, 99)
	now := uint64(0)
	for i := 0; i < 24+18; i++ {
		now += 1
		s.OnTransmissionStarted(now)
		s.OnTransmissionComplete()
	}
	require := assert.New(t)
	require.Equal(scheduler.Phase3, s.Phase())

	for i := 0; i < 50; i++ {
		before := now
		// Drain until the scheduler reports a frame is due, tracking the
		// implied interval that was actually used.
		for !s.ShouldTransmit(now, false) {
			now++
		}
		interval := now - before
		assert.GreaterOrEqual(t, interval, uint64(27_000))
		assert.LessOrEqual(t, interval, uint64(30_000))
		s.OnTransmissionStarted(now)
		s.OnTransmissionComplete()
	}
}

func TestSetModeToExerciseResetsPhase(t *testing.T) {
	s := scheduler.New(beacon.ModeTest, 1)
	s.SetMode(beacon.ModeExercise)
	assert.Equal(t, scheduler.Phase1, s.Phase())
}

func TestStopEltResetsPhase(t *testing.T) {
	s := scheduler.New(beacon.ModeExercise, 1)
	now := uint64(0)
	for i := 0; i < 24; i++ {
		now += 5_000
		s.OnTransmissionStarted(now)
		s.OnTransmissionComplete()
	}
	require2 := assert.New(t)
	require2.Equal(scheduler.Phase2, s.Phase())

	s.StopElt()
	assert.Equal(t, scheduler.Phase1, s.Phase())
	assert.Equal(t, 0, s.TxCountInPhase())
}
