package adsb

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in ADS-B day exports:
// RFC3339, space separated date-times with or without a zone offset, and
// numeric Unix seconds (OpenSky state vectors).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
	}
	return time.Time{}, false
}

func parseBool(s string) (bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Normalize filters one day's raw rows and groups them into per-aircraft
// series, each stably sorted by timestamp. Rows missing icao24, timestamp,
// onground, groundspeed, latitude or longitude are dropped, as are rows whose
// timestamp does not parse. Malformed rows never produce an error.
//
// Series are returned ordered by identifier.
func Normalize(rows []RawRecord) ([]AircraftSeries, DropStats) {
	stats := DropStats{Read: len(rows)}

	// Missing-field filtering happens before timestamp parsing so the two
	// drop reasons are counted separately.
	kept := make([]StateVector, 0, len(rows))
	for _, r := range rows {
		icao := strings.TrimSpace(r.ICAO24)
		onGround, okGround := parseBool(r.OnGround)
		speed, okSpeed := parseFloat(r.GroundSpeed)
		lat, okLat := parseFloat(r.Latitude)
		lon, okLon := parseFloat(r.Longitude)
		if icao == "" || strings.TrimSpace(r.Timestamp) == "" || !okGround || !okSpeed || !okLat || !okLon {
			stats.MissingField++
			continue
		}
		ts, ok := ParseTimestamp(r.Timestamp)
		if !ok {
			stats.BadTimestamp++
			continue
		}
		kept = append(kept, StateVector{
			ICAO24:      icao,
			Timestamp:   ts,
			OnGround:    onGround,
			GroundSpeed: speed,
			Latitude:    lat,
			Longitude:   lon,
			Callsign:    strings.TrimSpace(r.Callsign),
		})
	}
	stats.Kept = len(kept)

	groups := make(map[string][]StateVector)
	for _, sv := range kept {
		groups[sv.ICAO24] = append(groups[sv.ICAO24], sv)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	series := make([]AircraftSeries, 0, len(ids))
	for _, id := range ids {
		recs := groups[id]
		slices.SortStableFunc(recs, func(a, b StateVector) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		series = append(series, AircraftSeries{ICAO24: id, Records: recs})
	}
	stats.AircraftSeries = len(series)

	return series, stats
}
