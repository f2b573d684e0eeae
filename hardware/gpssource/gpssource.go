// Package gpssource implements the beacon.GpsSource collaborator: it reads
// NMEA-0183 sentences off a serial GNSS receiver (grounded in the teacher
// module's pkg/gnssgo/nmea parser and its go.bug.st/serial device access)
// and turns them into beacon.GpsFix snapshots, reporting no fix once the
// receiver has gone quiet for longer than a staleness window.
package gpssource

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/bramburn/t018beacon/pkg/beacon"
	"github.com/bramburn/t018beacon/pkg/gnssgo/gtime"
	"github.com/bramburn/t018beacon/pkg/gnssgo/nmea"
)

// DefaultStaleness is how long a fix remains valid without a fresh
// sentence before CurrentFix reports unavailable.
const DefaultStaleness = 5 * time.Second

// Source is a serial-port-backed GpsSource.
type Source struct {
	port      serial.Port
	log       *logrus.Logger
	staleness time.Duration

	mu       sync.RWMutex
	last     beacon.GpsFix
	lastSeen gtime.Gtime
	hasSeen  bool
}

// Open opens portName at baud and starts reading NMEA sentences in the
// background. Call Close when done.
func Open(portName string, baud int, log *logrus.Logger) (*Source, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("gpssource: open %s: %w", portName, err)
	}
	s := &Source{port: port, log: log, staleness: DefaultStaleness}
	go s.readLoop()
	return s, nil
}

func (s *Source) readLoop() {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		s.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		s.log.WithError(err).Warn("gpssource: serial read loop ended")
	}
}

func (s *Source) handleLine(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return
	}
	switch {
	case strings.Contains(line, "GGA"):
		s.handleGGA(line)
	case strings.Contains(line, "RMC"):
		s.handleRMC(line)
	}
}

func (s *Source) handleGGA(line string) {
	gga, err := nmea.ParseGGA(line)
	if err != nil {
		s.log.WithError(err).Debug("gpssource: gga parse failed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last.LatDeg = gga.Latitude
	s.last.LonDeg = gga.Longitude
	s.last.AltM = gga.Altitude
	s.last.Satellites = gga.NumSats
	s.last.FixQuality = gga.Quality
	s.last.Valid = gga.Quality > 0
	s.lastSeen = gtime.TimeGet()
	s.hasSeen = true
	s.log.WithField("at", gtime.TimeStr(s.lastSeen, 1)).Trace("gpssource: gga fix updated")
}

func (s *Source) handleRMC(line string) {
	rmc, err := nmea.ParseRMC(line)
	if err != nil {
		s.log.WithError(err).Debug("gpssource: rmc parse failed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !rmc.DateTime.IsZero() {
		s.last.Day = uint8(rmc.DateTime.Day())
		s.last.Hour = uint8(rmc.DateTime.Hour())
		s.last.Minute = uint8(rmc.DateTime.Minute())
	}
	s.lastSeen = gtime.TimeGet()
	s.hasSeen = true
}

// CurrentFix implements beacon.GpsSource. It reports unavailable once no
// sentence has updated the fix within the staleness window.
func (s *Source) CurrentFix() (beacon.GpsFix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSeen || gtime.TimeDiff(gtime.TimeGet(), s.lastSeen) > s.staleness.Seconds() {
		return beacon.GpsFix{}, false
	}
	return s.last, s.last.Valid
}

// Close closes the underlying serial port.
func (s *Source) Close() error {
	return s.port.Close()
}
