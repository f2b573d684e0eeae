// Package rfsim provides simulated RfDriver and Clock collaborators
// standing in for the I/Q DAC, PLL synthesizer and the two hardware ISRs
// (1 ms system tick, 38.400 kHz chip clock) a real beacon board would
// supply. Both ISRs are modelled as goroutines that post work onto a single
// dispatch channel, so calls into the core are always serialized onto one
// goroutine even though two independent tickers drive them — matching the
// core's single-threaded-cooperative concurrency contract without the core
// itself needing to lock anything.
package rfsim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	chipRateHz = 38_400
	millisRate = time.Millisecond
)

// RfDriver is a simulated I/Q DAC and PLL synthesizer: it logs every
// command instead of toggling real hardware.
type RfDriver struct {
	log         *logrus.Logger
	amplifierOn bool
	powerLevel  int
	frequencyHz uint32
	chipCount   uint64
	ledOn       bool
}

// NewRfDriver constructs a simulated RF driver logging through log.
func NewRfDriver(log *logrus.Logger) *RfDriver {
	return &RfDriver{log: log}
}

// EmitChip records a chip pair. Logged at Trace level since it fires at
// 38.4 kHz and would otherwise flood any real log sink.
func (d *RfDriver) EmitChip(i, q int8) {
	d.chipCount++
	d.log.WithFields(logrus.Fields{"i": i, "q": q, "chip": d.chipCount}).Trace("emit chip")
}

// SetPower records the requested power level.
func (d *RfDriver) SetPower(level int) {
	d.powerLevel = level
	d.log.WithField("power_level", level).Info("rf power level set")
}

// EnableAmplifier toggles the simulated amplifier.
func (d *RfDriver) EnableAmplifier(on bool) {
	d.amplifierOn = on
	d.log.WithField("amplifier_on", on).Debug("amplifier state changed")
}

// SetFrequencyHz records the carrier frequency.
func (d *RfDriver) SetFrequencyHz(hz uint32) {
	d.frequencyHz = hz
	d.log.WithField("frequency_hz", hz).Info("rf frequency set")
}

// Calibrate is the simulator's no-op stand-in for the opaque
// apply_iq_calibration hook; antenna/propagation/calibration modelling is
// out of scope.
func (d *RfDriver) Calibrate() {}

// ToggleStatusLED flips the simulated status LED. Unlike EmitChip, this is
// driven by the free-running 1 Hz heartbeat, never by transmission state.
func (d *RfDriver) ToggleStatusLED() {
	d.ledOn = !d.ledOn
	d.log.WithField("led_on", d.ledOn).Debug("status led toggled")
}

// StatusLED reports the simulated LED's current state.
func (d *RfDriver) StatusLED() bool { return d.ledOn }

// heartbeatIntervalMs is the free-running status indication period: the
// original firmware's main loop toggles its status LED every 1000ms of
// millis_counter regardless of transmission state (see "Status
// indication" in the vendor main loop). It is not tied to ShouldTransmit
// or to the modulator's busy state.
const heartbeatIntervalMs = 1000

// SimClock drives a simulated millisecond counter and 38.400 kHz chip tick,
// dispatching both onto a single serializing goroutine.
type SimClock struct {
	log         *logrus.Logger
	nowMs       atomic.Uint64
	chipCB      atomic.Pointer[func()]
	heartbeatCB atomic.Pointer[func(nowMs uint64)]
	jobs        chan func()
}

// NewSimClock constructs a SimClock. Call Run to start its tickers.
func NewSimClock(log *logrus.Logger) *SimClock {
	return &SimClock{log: log, jobs: make(chan func(), 256)}
}

// NowMs returns the current simulated millisecond counter.
func (c *SimClock) NowMs() uint64 {
	return c.nowMs.Load()
}

// RegisterChipTick stores the callback invoked on every simulated chip
// tick — normally Core.OnChipTick.
func (c *SimClock) RegisterChipTick(cb func()) {
	f := cb
	c.chipCB.Store(&f)
}

// RegisterHeartbeat stores the callback invoked every heartbeatIntervalMs,
// independent of the beacon's transmit/idle state — normally a status LED
// toggle. Optional: if never called, no heartbeat fires.
func (c *SimClock) RegisterHeartbeat(cb func(nowMs uint64)) {
	f := cb
	c.heartbeatCB.Store(&f)
}

// Run launches the dispatch, millis and chip goroutines. onMillisTick is
// invoked (serialized with chip ticks) once per simulated millisecond with
// the new counter value — normally Core.OnMillisTick. Run returns
// immediately; the goroutines stop when ctx is cancelled.
func (c *SimClock) Run(ctx context.Context, onMillisTick func(nowMs uint64)) {
	go c.dispatchLoop(ctx)
	go c.millisLoop(ctx, onMillisTick)
	go c.chipLoop(ctx)
}

func (c *SimClock) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.jobs:
			job()
		}
	}
}

func (c *SimClock) millisLoop(ctx context.Context, onMillisTick func(uint64)) {
	t := time.NewTicker(millisRate)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := c.nowMs.Add(1)
			if now%heartbeatIntervalMs == 0 {
				if cbPtr := c.heartbeatCB.Load(); cbPtr != nil {
					cb := *cbPtr
					select {
					case c.jobs <- func() { cb(now) }:
					default:
						c.log.Warn("heartbeat tick dropped: dispatch queue full")
					}
				}
			}
			if onMillisTick == nil {
				continue
			}
			select {
			case c.jobs <- func() { onMillisTick(now) }:
			default:
				c.log.Warn("millis tick dropped: dispatch queue full")
			}
		}
	}
}

func (c *SimClock) chipLoop(ctx context.Context) {
	t := time.NewTicker(time.Second / time.Duration(chipRateHz))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cbPtr := c.chipCB.Load()
			if cbPtr == nil {
				continue
			}
			cb := *cbPtr
			select {
			case c.jobs <- cb:
			default:
				c.log.Warn("chip tick dropped: dispatch queue full")
			}
		}
	}
}
