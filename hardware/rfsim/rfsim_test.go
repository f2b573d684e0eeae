package rfsim_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/bramburn/t018beacon/hardware/rfsim"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestToggleStatusLEDFlipsState(t *testing.T) {
	rf := rfsim.NewRfDriver(silentLogger())
	assert.False(t, rf.StatusLED())
	rf.ToggleStatusLED()
	assert.True(t, rf.StatusLED())
	rf.ToggleStatusLED()
	assert.False(t, rf.StatusLED())
}

func TestHeartbeatFiresIndependentlyOfMillisTick(t *testing.T) {
	clk := rfsim.NewSimClock(silentLogger())

	var heartbeats atomic.Int32
	clk.RegisterHeartbeat(func(nowMs uint64) { heartbeats.Add(1) })
	// No chip tick or millis tick registered: heartbeat must still fire.

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.Run(ctx, nil)

	assert.Eventually(t, func() bool {
		return heartbeats.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
