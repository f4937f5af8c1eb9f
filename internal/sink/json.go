package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

// jsonSink writes one <station>.json per append. Missing samples become
// null, and samples before the start cutoff are dropped entirely.
type jsonSink struct {
	dir   string
	start time.Time
}

type jsonSeries struct {
	StationID       string      `json:"station_id"`
	Event           string      `json:"event"`
	IntervalSeconds float64     `json:"interval_seconds"`
	Points          []jsonPoint `json:"points"`
}

type jsonPoint struct {
	T time.Time `json:"t"`
	V *float64  `json:"v"`
}

func (s *jsonSink) Append(series domain.MeshTimeSeries) error {
	out := jsonSeries{
		StationID:       series.StationID,
		Event:           series.Event,
		IntervalSeconds: series.Interval().Seconds(),
		Points:          make([]jsonPoint, 0, series.Len()),
	}
	for i, t := range series.Times {
		if !s.start.IsZero() && t.Before(s.start) {
			continue
		}
		p := jsonPoint{T: t.UTC()}
		if v := series.Values[i]; !domain.IsMissing(v) {
			p.V = &v
		}
		out.Points = append(out.Points, p)
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	return os.WriteFile(filepath.Join(s.dir, series.StationID+".json"), raw, 0o600)
}

func (s *jsonSink) Close() error { return nil }
