// Package adsb holds the surveillance record types shared by the taxi-in
// pipeline and the normaliser that turns one day's raw rows into clean,
// per-aircraft time series.
package adsb

import "time"

// StateVector is one accepted surveillance record for an aircraft.
// Every field except Callsign is guaranteed present once a record has been
// through Normalize.
type StateVector struct {
	ICAO24      string    `json:"icao24"`
	Timestamp   time.Time `json:"timestamp"`
	OnGround    bool      `json:"onground"`
	GroundSpeed float64   `json:"groundspeed"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Callsign    string    `json:"callsign"`
}

// RawRecord is a row as read from a day file. Empty strings are missing
// values; nothing has been parsed yet.
type RawRecord struct {
	ICAO24      string
	Timestamp   string
	OnGround    string
	GroundSpeed string
	Latitude    string
	Longitude   string
	Callsign    string
}

// AircraftSeries is the ordered telemetry of one aircraft for one day.
// Records are non-decreasing by Timestamp.
type AircraftSeries struct {
	ICAO24  string
	Records []StateVector
}

// DropStats counts rows excluded by Normalize.
type DropStats struct {
	Read           int // rows offered
	MissingField   int // a required field was empty or unparseable
	BadTimestamp   int // timestamp present but not a recognised instant
	Kept           int
	AircraftSeries int
}

// Dropped returns the total number of excluded rows.
func (s DropStats) Dropped() int {
	return s.MissingField + s.BadTimestamp
}
