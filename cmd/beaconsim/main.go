// Command beaconsim wires the beacon transmit core to the simulated RF/
// clock collaborators (and, optionally, a real serial GPS receiver) and
// runs it until interrupted — a simulator harness standing in for the
// embedded main loop the original firmware runs on real hardware.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bramburn/t018beacon/hardware/gpssource"
	"github.com/bramburn/t018beacon/hardware/rfsim"
	"github.com/bramburn/t018beacon/internal/telemetry"
	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/beacon/core"
)

type noGpsSource struct{}

func (noGpsSource) CurrentFix() (beacon.GpsFix, bool) { return beacon.GpsFix{}, false }

// flagModeSwitch stands in for the boot-time mode-switch GPIO read: a real
// board reads a physical switch once at boot, this simulator reads a flag.
type flagModeSwitch struct {
	mode  beacon.Mode
	valid bool
}

func (m flagModeSwitch) Read() beacon.Mode { return m.mode }

func parseModeOverride(s string) (flagModeSwitch, bool) {
	switch s {
	case "TEST":
		return flagModeSwitch{mode: beacon.ModeTest, valid: true}, true
	case "EXERCISE":
		return flagModeSwitch{mode: beacon.ModeExercise, valid: true}, true
	default:
		return flagModeSwitch{}, false
	}
}

func main() {
	configPath := flag.String("config", "config/beacon.yaml", "path to beacon configuration")
	gpsPort := flag.String("gps-port", "", "serial port for GPS receiver (empty = fallback fix only)")
	gpsBaud := flag.Int("gps-baud", 4800, "GPS serial baud rate")
	frequencyHz := flag.Uint("frequency-hz", 406_037_000, "carrier frequency reported to the RF driver")
	powerLevel := flag.Int("power-level", 5, "rf power level reported to the RF driver")
	verbose := flag.Bool("v", false, "enable debug logging")
	trace := flag.Bool("vv", false, "enable trace logging (logs every emitted chip)")
	modeOverride := flag.String("mode", "", "override the configured mode at boot (TEST or EXERCISE), simulating the mode-switch GPIO read")
	flag.Parse()

	log := logrus.New()
	switch {
	case *trace:
		log.SetLevel(logrus.TraceLevel)
	case *verbose:
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	if *modeOverride != "" {
		var modeInput beacon.ModeInput
		sw, ok := parseModeOverride(*modeOverride)
		if !ok {
			log.Fatalf("invalid -mode %q (want TEST or EXERCISE)", *modeOverride)
		}
		modeInput = sw
		cfg.Mode = modeInput.Read()
		if err := cfg.Identity.Validate(cfg.Mode == beacon.ModeTest); err != nil {
			log.WithError(err).Fatal("mode override invalid for configured identity")
		}
	}

	var gps beacon.GpsSource = noGpsSource{}
	if *gpsPort != "" {
		src, err := gpssource.Open(*gpsPort, *gpsBaud, log)
		if err != nil {
			log.WithError(err).Fatal("failed to open gps source")
		}
		defer src.Close()
		gps = src
	}

	rf := rfsim.NewRfDriver(log)
	rf.SetFrequencyHz(uint32(*frequencyHz))
	rf.SetPower(*powerLevel)

	clk := rfsim.NewSimClock(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := telemetry.NewPublisher(log, 16)
	pub.Start(ctx)
	defer pub.Stop()

	c, err := core.New(cfg, rf, gps, log)
	if err != nil {
		log.WithError(err).Fatal("core init failed")
	}
	c.SetStatusSink(pub.Publish)

	clk.RegisterChipTick(c.OnChipTick)
	clk.RegisterHeartbeat(func(uint64) { rf.ToggleStatusLED() })
	clk.Run(ctx, c.OnMillisTick)

	log.WithFields(logrus.Fields{
		"mode":   cfg.Mode.String(),
		"config": *configPath,
	}).Info("beacon simulator started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	cancel()
	time.Sleep(100 * time.Millisecond)
}
