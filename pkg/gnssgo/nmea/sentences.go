package nmea

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// RMCData represents parsed RMC sentence data (Recommended Minimum Navigation Information)
type RMCData struct {
	Time      string    // UTC time (hhmmss.sss)
	Status    string    // Status (A=active, V=void)
	Latitude  float64   // Latitude in degrees
	LatDir    string    // Latitude direction (N/S)
	Longitude float64   // Longitude in degrees
	LonDir    string    // Longitude direction (E/W)
	Speed     float64   // Speed over ground in knots
	Course    float64   // Course over ground in degrees
	Date      string    // Date (ddmmyy)
	MagVar    float64   // Magnetic variation in degrees
	MagVarDir string    // Magnetic variation direction (E/W)
	Mode      string    // Mode indicator (A=autonomous, D=differential, E=estimated)
	DateTime  time.Time // Combined date and time
}

// ParseRMC parses an RMC sentence
func ParseRMC(sentence string) (RMCData, error) {
	var data RMCData

	// Parse the sentence first
	parsed, err := ParseNMEA(sentence)
	if err != nil {
		return data, err
	}

	if !parsed.Valid {
		return data, errors.New("invalid NMEA sentence")
	}

	// Check if it's an RMC sentence
	if !strings.HasSuffix(parsed.Type, "RMC") {
		return data, errors.New("not an RMC sentence")
	}

	// Check if we have enough fields
	if len(parsed.Fields) < 11 {
		return data, errors.New("not enough fields in RMC sentence")
	}

	// Parse time
	data.Time = parsed.Fields[0]

	// Parse status
	data.Status = parsed.Fields[1]

	// Parse latitude
	if parsed.Fields[2] != "" {
		lat, err := strconv.ParseFloat(parsed.Fields[2], 64)
		if err == nil {
			// Convert NMEA format (DDMM.MMMM) to decimal degrees
			latDeg := float64(int(lat / 100))
			latMin := lat - latDeg*100
			data.Latitude = latDeg + latMin/60

			// Apply direction
			if parsed.Fields[3] == "S" {
				data.Latitude = -data.Latitude
			}
		}
	}
	data.LatDir = parsed.Fields[3]

	// Parse longitude
	if parsed.Fields[4] != "" {
		lon, err := strconv.ParseFloat(parsed.Fields[4], 64)
		if err == nil {
			// Convert NMEA format (DDDMM.MMMM) to decimal degrees
			lonDeg := float64(int(lon / 100))
			lonMin := lon - lonDeg*100
			data.Longitude = lonDeg + lonMin/60

			// Apply direction
			if parsed.Fields[5] == "W" {
				data.Longitude = -data.Longitude
			}
		}
	}
	data.LonDir = parsed.Fields[5]

	// Parse speed
	if parsed.Fields[6] != "" {
		data.Speed, _ = strconv.ParseFloat(parsed.Fields[6], 64)
	}

	// Parse course
	if parsed.Fields[7] != "" {
		data.Course, _ = strconv.ParseFloat(parsed.Fields[7], 64)
	}

	// Parse date
	data.Date = parsed.Fields[8]

	// Parse magnetic variation
	if parsed.Fields[9] != "" {
		data.MagVar, _ = strconv.ParseFloat(parsed.Fields[9], 64)
		if parsed.Fields[10] == "W" {
			data.MagVar = -data.MagVar
		}
	}
	data.MagVarDir = parsed.Fields[10]

	// Parse mode indicator if available
	if len(parsed.Fields) > 11 {
		data.Mode = parsed.Fields[11]
	}

	// Parse combined date and time
	if data.Date != "" && data.Time != "" {
		// Date format: DDMMYY
		day, _ := strconv.Atoi(data.Date[0:2])
		month, _ := strconv.Atoi(data.Date[2:4])
		year, _ := strconv.Atoi(data.Date[4:6])
		// Adjust for century: 80..99 -> 1980..1999, 00..79 -> 2000..2079
		if year >= 80 {
			year += 1900
		} else {
			year += 2000
		}

		// Time format: HHMMSS.SSS
		hour, _ := strconv.Atoi(data.Time[0:2])
		minute, _ := strconv.Atoi(data.Time[2:4])
		second, _ := strconv.Atoi(data.Time[4:6])

		// Create time.Time object
		data.DateTime = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	}

	return data, nil
}
