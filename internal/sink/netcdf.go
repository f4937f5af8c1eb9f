package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/ctessum/cdf"
)

// netcdfSink writes one <station>.nc per append: a single time dimension,
// time in minutes since the cold start, and zeta as float32 with the ADCIRC
// fill value standing in for missing samples.
type netcdfSink struct {
	dir string
}

func (s *netcdfSink) Append(series domain.MeshTimeSeries) error {
	n := series.Len()
	if n == 0 {
		return fmt.Errorf("station %s: empty series", series.StationID)
	}
	origin := series.ColdStart
	if origin.IsZero() {
		origin = series.Times[0]
	}

	h := cdf.NewHeader([]string{"time"}, []int{n})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "long_name", "time")
	h.AddAttribute("time", "units", "minutes since "+origin.UTC().Format("2006-01-02 15:04:05"))
	h.AddAttribute("time", "axis", "T")
	h.AddVariable("zeta", []string{"time"}, []float32{0})
	h.AddAttribute("zeta", "long_name", "water surface elevation above geoid")
	h.AddAttribute("zeta", "units", "m")
	h.AddAttribute("zeta", "_FillValue", []float32{fillValue})
	h.AddAttribute("", "station_id", series.StationID)
	h.AddAttribute("", "event", series.Event)
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("station %s: header: %v", series.StationID, errs)
	}

	ff, err := os.Create(filepath.Join(s.dir, series.StationID+".nc"))
	if err != nil {
		return err
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return err
	}

	minutes := make([]float64, n)
	values := make([]float32, n)
	for i, t := range series.Times {
		minutes[i] = t.Sub(origin).Minutes()
		if v := series.Values[i]; domain.IsMissing(v) {
			values[i] = fillValue
		} else {
			values[i] = float32(v)
		}
	}
	if err := writeFull(f, "time", minutes); err != nil {
		ff.Close()
		return err
	}
	if err := writeFull(f, "zeta", values); err != nil {
		ff.Close()
		return err
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		ff.Close()
		return err
	}
	return ff.Close()
}

func (s *netcdfSink) Close() error { return nil }

// writeFull writes an entire variable in one call.
func writeFull(f *cdf.File, name string, data any) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
