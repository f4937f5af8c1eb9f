package domain

import (
	"math"
	"time"
)

// HECMissing is the missing-value code written to containers and CSV in
// place of NaN samples, following the HEC time-series convention.
const HECMissing = -901.0

// MeshTimeSeries is a scalar field sampled at one station for one storm
// event: one value per dataset timestep, NaN where the node was dry.
// ColdStart is the simulation origin the timestamps were resolved against.
type MeshTimeSeries struct {
	StationID string
	Event     string
	ColdStart time.Time
	Times     []time.Time
	Values    []float64
}

// Len returns the number of samples.
func (s MeshTimeSeries) Len() int { return len(s.Values) }

// Interval returns the spacing between the first two samples, or zero for
// series shorter than two points. ADCIRC output is regularly spaced, so the
// first interval stands for the whole series.
func (s MeshTimeSeries) Interval() time.Duration {
	if len(s.Times) < 2 {
		return 0
	}
	return s.Times[1].Sub(s.Times[0])
}

// IsMissing reports whether a sample value is the NaN missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// SeriesResult pairs one station with its extraction outcome for one storm
// event. Err is a *LookupError when the station snapped outside the mesh, or
// a read error for that station's pass.
type SeriesResult struct {
	Station StationPoint
	Series  MeshTimeSeries
	Err     error
}

// JobResult records the outcome of one (station, event) extraction task.
type JobResult struct {
	Station     string        `json:"station"`
	Event       string        `json:"event"`
	Records     int           `json:"records"`
	Duration    time.Duration `json:"duration_ns"`
	CompletedAt time.Time     `json:"completed_at"`
	Error       string        `json:"error,omitempty"`
}

// OK reports whether the task completed without error.
func (r JobResult) OK() bool { return r.Error == "" }
