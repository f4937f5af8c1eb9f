package sink

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/couchcryptid/adcirc-etl/internal/tsc"
)

// containerSink appends each (station, event) series as one record in the
// station's .tsc container. Containers open lazily on first append and stay
// open until Close.
type containerSink struct {
	dir string

	mu   sync.Mutex
	open map[string]*tsc.File
}

func newContainerSink(dir string) *containerSink {
	return &containerSink{dir: dir, open: make(map[string]*tsc.File)}
}

func (s *containerSink) Append(series domain.MeshTimeSeries) error {
	c, err := s.container(series.StationID)
	if err != nil {
		return err
	}

	points := make([]tsc.Point, series.Len())
	for i, t := range series.Times {
		v := series.Values[i]
		if domain.IsMissing(v) {
			v = tsc.Missing
		}
		points[i] = tsc.Point{Timestamp: t.Unix(), Value: v}
	}
	if err := c.Append(series.StationID, series.Event, points); err != nil {
		return fmt.Errorf("append %s/%s: %w", series.StationID, series.Event, err)
	}
	return nil
}

// container returns the station's open container, opening or creating it on
// first use. The per-station serialization contract means only the map
// access needs the lock, never the file itself.
func (s *containerSink) container(station string) (*tsc.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.open[station]; ok {
		return c, nil
	}
	c, err := tsc.OpenOrCreate(filepath.Join(s.dir, station+".tsc"))
	if err != nil {
		return nil, err
	}
	s.open[station] = c
	return c, nil
}

func (s *containerSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for station, c := range s.open {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", station, err))
		}
	}
	s.open = make(map[string]*tsc.File)
	return errors.Join(errs...)
}
