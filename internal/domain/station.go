package domain

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
)

// StationPoint is one named extraction location in WGS-84 decimal degrees.
// Points are immutable once loaded.
type StationPoint struct {
	ID  string  `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Header aliases accepted by LoadStations, all compared lowercase.
var (
	idAliases  = []string{"segment_id", "station_id", "id", "name", "station"}
	lonAliases = []string{"x", "lon", "longitude"}
	latAliases = []string{"y", "lat", "latitude"}
)

// LoadStations reads a station list from path and returns the stations in
// input order. path may be a single CSV file with a header row, or a
// directory whose *.csv and *.txt files are merged in name order.
//
// The load is strict: any malformed row fails the whole call with a
// *ParseError, and a repeated identifier fails it with a
// *DuplicateStationError. Partial station lists are never returned, so a
// batch run cannot start against half a list.
func LoadStations(path string) ([]StationPoint, error) {
	return loadStations(path, nil)
}

// LoadStationsUTM is LoadStations for lists whose coordinate columns carry
// UTM easting and northing rather than degrees. Coordinates are converted to
// lon/lat in the given zone; southern selects the southern-hemisphere
// northing convention.
func LoadStationsUTM(path string, zone int, southern bool) ([]StationPoint, error) {
	if zone < 1 || zone > 60 {
		return nil, fmt.Errorf("utm zone %d outside [1, 60]", zone)
	}
	return loadStations(path, func(x, y float64) (float64, float64, error) {
		lat, lon, err := UTM.ToLatLon(x, y, zone, "", !southern)
		if err != nil {
			return 0, 0, err
		}
		return lon, lat, nil
	})
}

// coordConverter maps raw coordinate columns to lon/lat degrees.
type coordConverter func(x, y float64) (lon, lat float64, err error)

// stationSource records where an identifier was first seen, for duplicate
// reporting across merged files.
type stationSource struct {
	path string
	line int
}

func loadStations(path string, conv coordConverter) ([]StationPoint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat stations: %w", err)
	}
	if !info.IsDir() {
		return loadStationFile(path, conv, make(map[string]stationSource))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read stations dir: %w", err)
	}
	seen := make(map[string]stationSource)
	var stations []StationPoint
	for _, e := range entries {
		if e.IsDir() || !isStationFile(e.Name()) {
			continue
		}
		pts, err := loadStationFile(filepath.Join(path, e.Name()), conv, seen)
		if err != nil {
			return nil, err
		}
		stations = append(stations, pts...)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("no station files (*.csv, *.txt) under %s", path)
	}
	return stations, nil
}

func isStationFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return true
	}
	return false
}

func loadStationFile(path string, conv coordConverter, seen map[string]stationSource) ([]StationPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read stations %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, &ParseError{Path: path, Line: 1, Reason: "no data rows"}
	}

	idCol, err := findColumn(path, rows[0], idAliases, "identifier")
	if err != nil {
		return nil, err
	}
	lonCol, err := findColumn(path, rows[0], lonAliases, "longitude")
	if err != nil {
		return nil, err
	}
	latCol, err := findColumn(path, rows[0], latAliases, "latitude")
	if err != nil {
		return nil, err
	}

	stations := make([]StationPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		sp, err := parseStationRow(path, line, row, rows[0], idCol, lonCol, latCol, conv)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[sp.ID]; ok {
			return nil, &DuplicateStationError{
				ID: sp.ID, Path: path, Line: line,
				FirstPath: prev.path, FirstLine: prev.line,
			}
		}
		seen[sp.ID] = stationSource{path: path, line: line}
		stations = append(stations, sp)
	}
	return stations, nil
}

func parseStationRow(path string, line int, row, header []string, idCol, lonCol, latCol int, conv coordConverter) (StationPoint, error) {
	field := func(col int) (string, bool) {
		if col >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[col]), true
	}

	id, ok := field(idCol)
	if !ok || id == "" {
		return StationPoint{}, &ParseError{Path: path, Line: line, Column: header[idCol], Reason: "missing identifier"}
	}
	x, err := parseCoordinate(path, line, header[lonCol], row, lonCol)
	if err != nil {
		return StationPoint{}, err
	}
	y, err := parseCoordinate(path, line, header[latCol], row, latCol)
	if err != nil {
		return StationPoint{}, err
	}

	lon, lat := x, y
	if conv != nil {
		lon, lat, err = conv(x, y)
		if err != nil {
			return StationPoint{}, &ParseError{Path: path, Line: line, Column: header[lonCol], Reason: fmt.Sprintf("utm conversion: %v", err)}
		}
	}
	if lon < -180 || lon > 180 {
		return StationPoint{}, &ParseError{Path: path, Line: line, Column: header[lonCol], Reason: fmt.Sprintf("longitude out of range [-180, 180]: %g", lon)}
	}
	if lat < -90 || lat > 90 {
		return StationPoint{}, &ParseError{Path: path, Line: line, Column: header[latCol], Reason: fmt.Sprintf("latitude out of range [-90, 90]: %g", lat)}
	}
	return StationPoint{ID: id, Lon: lon, Lat: lat}, nil
}

func parseCoordinate(path string, line int, column string, row []string, col int) (float64, error) {
	if col >= len(row) || strings.TrimSpace(row[col]) == "" {
		return 0, &ParseError{Path: path, Line: line, Column: column, Reason: "missing coordinate"}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, &ParseError{Path: path, Line: line, Column: column, Reason: fmt.Sprintf("not a number: %q", strings.TrimSpace(row[col]))}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Path: path, Line: line, Column: column, Reason: fmt.Sprintf("not finite: %g", v)}
	}
	return v, nil
}

// findColumn resolves a header name by alias. The header row may carry a
// UTF-8 BOM from spreadsheet exports.
func findColumn(path string, header []string, aliases []string, role string) (int, error) {
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "﻿")))
		for _, a := range aliases {
			if name == a {
				return i, nil
			}
		}
	}
	return 0, &ParseError{Path: path, Line: 1, Reason: fmt.Sprintf("no %s column (accepted: %s)", role, strings.Join(aliases, ", "))}
}
