package domain

import "fmt"

// ParseError reports a malformed row in a delimited input: a missing
// required column, an empty field, or a non-numeric coordinate. Line numbers
// are 1-based and count the header row.
type ParseError struct {
	Path   string
	Line   int
	Column string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: line %d: column %q: %s", e.Path, e.Line, e.Column, e.Reason)
}

// DuplicateStationError reports a station identifier that appears on more
// than one row of a station list, possibly across merged files. Duplicate IDs
// would make two tasks target the same output container, so the load refuses
// them outright.
type DuplicateStationError struct {
	ID        string
	Path      string
	Line      int
	FirstPath string
	FirstLine int
}

func (e *DuplicateStationError) Error() string {
	if e.FirstPath != "" && e.FirstPath != e.Path {
		return fmt.Sprintf("duplicate station %q: %s line %d repeats %s line %d",
			e.ID, e.Path, e.Line, e.FirstPath, e.FirstLine)
	}
	return fmt.Sprintf("duplicate station %q: line %d repeats line %d", e.ID, e.Line, e.FirstLine)
}

// LookupError reports that no mesh node lies within the acceptable snap
// distance of a station. The nearest candidate and its distance are included
// so the operator can tell a typo'd coordinate from an out-of-domain one.
type LookupError struct {
	StationID  string
	Lon, Lat   float64
	NearestKM  float64
	MaxKM      float64
	NearestIdx int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("station %q (%.5f, %.5f): nearest mesh node %d is %.2f km away (limit %.2f km)",
		e.StationID, e.Lon, e.Lat, e.NearestIdx, e.NearestKM, e.MaxKM)
}
