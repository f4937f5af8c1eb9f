package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

// csvSink writes one <station>.csv per append with a datetime,elevation_m
// header. Missing samples carry the HEC missing value.
type csvSink struct {
	dir string
}

func (s *csvSink) Append(series domain.MeshTimeSeries) error {
	f, err := os.Create(filepath.Join(s.dir, series.StationID+".csv"))
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"datetime", "elevation_m"}); err != nil {
		f.Close()
		return err
	}
	for i, t := range series.Times {
		v := series.Values[i]
		var val string
		if domain.IsMissing(v) {
			val = strconv.FormatFloat(domain.HECMissing, 'f', 1, 64)
		} else {
			val = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write([]string{t.UTC().Format(time.RFC3339), val}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *csvSink) Close() error { return nil }
