// Package ingest locates per-day ADS-B export files and reads them into raw
// rows for the normaliser.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/taxiin.report/internal/adsb"
	"github.com/banshee-data/taxiin.report/internal/fsutil"
)

// DefaultSuffix is the extension of day files.
const DefaultSuffix = ".csv"

// ErrMissingColumn is returned when a day file lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// DayFile is one day's export.
type DayFile struct {
	Path string
	Day  string // file name without the suffix
}

// Discover lists dir and returns the files ending in suffix, sorted by file
// name. The day label is the file name with the suffix removed.
func Discover(fsys fsutil.FileSystem, dir, suffix string) ([]DayFile, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list data dir %s: %w", dir, err)
	}
	var days []DayFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		days = append(days, DayFile{
			Path: filepath.Join(dir, name),
			Day:  strings.TrimSuffix(name, suffix),
		})
	}
	return days, nil
}

// Column names recognised in the CSV header, matched case-insensitively.
const (
	ColICAO24      = "icao24"
	ColTimestamp   = "timestamp"
	ColOnGround    = "onground"
	ColGroundSpeed = "groundspeed"
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
	ColCallsign    = "callsign"
)

var requiredColumns = []string{ColICAO24, ColTimestamp, ColOnGround, ColGroundSpeed, ColLatitude, ColLongitude}

// ReadDay reads one day file.
func ReadDay(fsys fsutil.FileSystem, path string) ([]adsb.RawRecord, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open day file: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV reads ADS-B rows from a CSV stream with a header line. Columns other
// than the recognised ones are ignored; callsign is optional. Rows with a
// different field count than the header are kept, short rows reading as
// missing values.
func ReadCSV(r io.Reader) ([]adsb.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	callsignIdx, hasCallsign := idx[ColCallsign]
	if !hasCallsign {
		callsignIdx = -1
	}

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []adsb.RawRecord
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, adsb.RawRecord{
			ICAO24:      field(rec, idx[ColICAO24]),
			Timestamp:   field(rec, idx[ColTimestamp]),
			OnGround:    field(rec, idx[ColOnGround]),
			GroundSpeed: field(rec, idx[ColGroundSpeed]),
			Latitude:    field(rec, idx[ColLatitude]),
			Longitude:   field(rec, idx[ColLongitude]),
			Callsign:    field(rec, callsignIdx),
		})
	}
	return rows, nil
}
