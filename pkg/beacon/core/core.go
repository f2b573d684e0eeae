// Package core is the public façade of the beacon transmit stack: it wires
// bch, prn (via self-test), frame, modulator and scheduler together behind
// the five entry points a caller needs — Init (via New), SetMode,
// OnMillisTick, OnChipTick and Status.
package core

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/bch"
	"github.com/bramburn/t018beacon/pkg/beacon/frame"
	"github.com/bramburn/t018beacon/pkg/beacon/modulator"
	"github.com/bramburn/t018beacon/pkg/beacon/prn"
	"github.com/bramburn/t018beacon/pkg/beacon/scheduler"
)

// Core is the single owned aggregate replacing the source's file-scope
// globals for LFSR registers, ELT state, frame buffers and configuration.
// It performs no locking of its own: OnMillisTick and OnChipTick are
// run-to-completion and must be serialized by the caller (see
// hardware/rfsim for the simulated single-dispatch-goroutine discipline
// this assumes).
type Core struct {
	id          beacon.BeaconIdentity
	fallbackFix beacon.GpsFix
	rotatingCfg RotatingConfig

	log *logrus.Logger
	rf  beacon.RfDriver
	gps beacon.GpsSource

	mod   *modulator.Modulator
	sched *scheduler.Scheduler

	txCount   int
	lastHexID string

	statusSink func(beacon.Status)
}

// New initializes a Core from a resolved Config and its collaborators.
// Self-test failures (bch, prn) are logged and non-fatal, per the error
// taxonomy; only an invalid identity fails init outright.
func New(cfg Config, rf beacon.RfDriver, gps beacon.GpsSource, log *logrus.Logger) (*Core, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.Identity.Validate(cfg.Mode == beacon.ModeTest); err != nil {
		return nil, err
	}

	c := &Core{
		id:          cfg.Identity,
		fallbackFix: cfg.FallbackFix,
		rotatingCfg: cfg.Rotating,
		log:         log,
		rf:          rf,
		gps:         gps,
		sched:       scheduler.New(cfg.Mode, cfg.RandomSeed),
	}
	c.mod = modulator.New(rf, c.onTxComplete)

	if err := bch.SelfTest(); err != nil {
		c.log.WithError(err).Warn("bch self-test failed at init; continuing")
	}
	if err := prn.SelfTest(); err != nil {
		c.log.WithError(err).Warn("prn self-test failed at init; continuing")
	}

	return c, nil
}

// SetStatusSink registers an optional callback invoked with a Status
// snapshot after each completed transmission, e.g. to feed
// internal/telemetry. Not on the hot path: invoked from onTxComplete, after
// the modulator has already gone Idle.
func (c *Core) SetStatusSink(sink func(beacon.Status)) {
	c.statusSink = sink
}

// SetMode is the explicit API for changing operating mode; ModeInput is
// only consulted once at boot by the caller, not polled here.
func (c *Core) SetMode(mode beacon.Mode) {
	c.sched.SetMode(mode)
}

// OnMillisTick advances scheduling: if a frame is due, it assembles one and
// hands it to the modulator. Missed slots are dropped — the cadence always
// resumes relative to now, never by retrying a stale slot.
func (c *Core) OnMillisTick(nowMs uint64) {
	if !c.sched.ShouldTransmit(nowMs, c.mod.Transmitting()) {
		return
	}

	fix := c.resolveFix()
	rotating := c.rotatingCfg.Resolve(fix)
	info, err := frame.BuildInfo(c.id, fix, rotating)
	if err != nil {
		c.log.WithError(err).Error("frame assembly failed; slot dropped")
		return
	}
	parity := bch.ParityOf(info[:])
	fr, err := frame.BuildFullFrame(info, parity, c.sched.Mode() == beacon.ModeTest)
	if err != nil {
		c.log.WithError(err).Error("frame build failed; slot dropped")
		return
	}

	if err := c.mod.Start(fr); err != nil {
		if errors.Is(err, beacon.ErrBusy) {
			c.log.Debug("transmit skipped: modulator busy, scheduler will retry next tick")
			return
		}
		c.log.WithError(err).Error("modulator start failed; slot dropped")
		return
	}

	hexID, err := frame.HexFromInfo(info)
	if err == nil {
		c.lastHexID = hexID
	}
	c.sched.OnTransmissionStarted(nowMs)
	c.log.WithFields(logrus.Fields{
		"hex_id": c.lastHexID,
		"phase":  c.sched.Phase().String(),
		"mode":   c.sched.Mode().String(),
	}).Info("beacon transmission started")
}

// OnChipTick forwards to the modulator. Called from the 38.4 kHz ISR
// context (or its simulated equivalent); bounded-time, allocation-free,
// non-blocking.
func (c *Core) OnChipTick() {
	c.mod.OnChipTick()
}

// Status returns a point-in-time snapshot suitable for logging or
// telemetry.
func (c *Core) Status() beacon.Status {
	return beacon.Status{
		Transmitting: c.mod.Transmitting(),
		Phase:        c.sched.Phase().String(),
		TxCount:      c.txCount,
		LastTxMs:     c.sched.LastTxMs(),
		LastHexID:    c.lastHexID,
	}
}

func (c *Core) onTxComplete() {
	c.txCount++
	c.sched.OnTransmissionComplete()
	c.log.WithField("tx_count", c.txCount).Info("beacon transmission complete")
	if c.statusSink != nil {
		c.statusSink(c.Status())
	}
}

// resolveFix substitutes the configured fallback whenever the GPS source
// has no current valid fix; FixUnavailable is logged but never fatal.
func (c *Core) resolveFix() beacon.GpsFix {
	if fix, ok := c.gps.CurrentFix(); ok && fix.Valid {
		return fix
	}
	c.log.WithError(beacon.ErrFixUnavailable).Warn("gps fix unavailable, using fallback position")
	return c.fallbackFix
}
