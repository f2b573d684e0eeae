// Package gtime provides the GNSS time representation hardware/gpssource
// uses to stamp and stale-check received fixes (TimeGet, TimeDiff,
// TimeStr). GPS-week/epoch conversions (Utc2GpsT, Time2GpsT) and the
// string-parsing/arithmetic helpers (Str2Time, TimeAdd) have no caller in
// this tree and are not carried.
package gtime

import (
	"time"
)

// Gtime represents a GNSS time
type Gtime struct {
	Time int64   // Time (s) expressed by standard time_t
	Sec  float64 // Fraction of second (s)
}

// SECONDS_IN_DAY is used by Epoch2Time's day-to-second conversion.
const SECONDS_IN_DAY = 86400.0

// TimeGet returns the current time
func TimeGet() Gtime {
	var ep [6]float64

	// Get current time
	t := time.Now().UTC()

	// Convert to epoch
	ep[0] = float64(t.Year())
	ep[1] = float64(t.Month())
	ep[2] = float64(t.Day())
	ep[3] = float64(t.Hour())
	ep[4] = float64(t.Minute())
	ep[5] = float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Convert to Gtime
	return Epoch2Time(ep)
}

// Epoch2Time converts epoch to Gtime
func Epoch2Time(ep [6]float64) Gtime {
	var (
		time Gtime
		days int64
		sec  float64
	)

	// Calculate days and seconds
	days = (int64(ep[0])-1970)*365 + (int64(ep[0])-1969)/4 + int64(ep[2]) - 1

	for i := 1; i < int(ep[1]); i++ {
		days += int64(DaysInMonth(int(ep[0]), i))
	}

	sec = float64(days)*SECONDS_IN_DAY + ep[3]*3600.0 + ep[4]*60.0 + ep[5]

	time.Time = int64(sec)
	time.Sec = sec - float64(time.Time)

	return time
}

// DaysInMonth returns the number of days in a month
func DaysInMonth(year, month int) int {
	switch month {
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// TimeStr converts time to string
func TimeStr(t Gtime, n int) string {
	if t.Time == 0 {
		return "0000/00/00 00:00:00.000000000"
	}

	// Convert to time.Time
	tm := time.Unix(t.Time, int64(t.Sec*1e9))

	// Format based on precision
	switch n {
	case 0:
		return tm.Format("2006/01/02 15:04:05.000000000")
	case 1:
		return tm.Format("2006/01/02 15:04:05")
	case 2:
		return tm.Format("2006/01/02")
	case 3:
		return tm.Format("15:04:05.000000000")
	case 4:
		return tm.Format("15:04:05")
	case 5:
		return tm.Format("15:04")
	default:
		return tm.Format("2006/01/02 15:04:05.000000000")
	}
}

// TimeDiff returns time difference in seconds
func TimeDiff(t1, t2 Gtime) float64 {
	return float64(t1.Time-t2.Time) + (t1.Sec - t2.Sec)
}
