// Command qaqc renders quality-assurance images from produced outputs:
// per-station hydrographs overlaying every storm event in a container,
// and per-timestep wind speed heat maps from a re-gridded wind file.
//
// Usage:
//
//	go run ./cmd/qaqc \
//	  -containers out \
//	  -wind wind.nc \
//	  -outdir qa
//
// Wind frames are numbered frame_0000.png onward for animation assembly.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/couchcryptid/adcirc-etl/internal/render"
	"github.com/couchcryptid/adcirc-etl/internal/sink"
	"github.com/couchcryptid/adcirc-etl/internal/tsc"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	containers := flag.String("containers", "", "directory of station containers (*.tsc)")
	station := flag.String("station", "", "render only this station's hydrograph")
	wind := flag.String("wind", "", "re-gridded wind netCDF to render frames from")
	outDir := flag.String("outdir", "", "directory for rendered PNGs")
	flag.Parse()

	if *outDir == "" || (*containers == "" && *wind == "") {
		flag.Usage()
		return fmt.Errorf("missing required flags: -outdir and at least one of -containers, -wind")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	if *containers != "" {
		if err := renderHydrographs(*containers, *station, *outDir); err != nil {
			return err
		}
	}
	if *wind != "" {
		if err := renderWindFrames(*wind, *outDir); err != nil {
			return err
		}
	}
	return nil
}

func renderHydrographs(dir, only, outDir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tsc"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no containers in %s", dir)
	}

	rendered := 0
	for _, path := range paths {
		stationID := strings.TrimSuffix(filepath.Base(path), ".tsc")
		if only != "" && stationID != only {
			continue
		}
		series, err := loadSeries(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if len(series) == 0 {
			log.Printf("%s: no records, skipping", stationID)
			continue
		}
		p, err := render.Hydrograph(stationID, series)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", stationID, err)
		}
		out := filepath.Join(outDir, stationID+".png")
		if err := p.Save(render.HydrographWidth, render.HydrographHeight, out); err != nil {
			return fmt.Errorf("saving %s: %w", out, err)
		}
		rendered++
	}
	log.Printf("rendered %d hydrographs to %s", rendered, outDir)
	return nil
}

// loadSeries reads every event record out of one container, mapping stored
// missing sentinels back to NaN for plotting.
func loadSeries(path string) ([]domain.MeshTimeSeries, error) {
	c, err := tsc.Open(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	recs := c.Records()
	series := make([]domain.MeshTimeSeries, 0, len(recs))
	for i, rec := range recs {
		points, err := c.ReadPoints(i)
		if err != nil {
			return nil, err
		}
		ts := domain.MeshTimeSeries{
			StationID: rec.Station,
			Event:     rec.Event,
			Times:     make([]time.Time, len(points)),
			Values:    make([]float64, len(points)),
		}
		for j, pt := range points {
			ts.Times[j] = time.Unix(pt.Timestamp, 0).UTC()
			if pt.Value == c.MissingValue() {
				ts.Values[j] = math.NaN()
			} else {
				ts.Values[j] = pt.Value
			}
		}
		series = append(series, ts)
	}
	return series, nil
}

func renderWindFrames(path, outDir string) error {
	wf, err := sink.OpenWindFile(path)
	if err != nil {
		return err
	}
	defer wf.Close()

	for i := 0; i < wf.NumSteps(); i++ {
		u, v, err := wf.ReadStep(i)
		if err != nil {
			return fmt.Errorf("reading step %d: %w", i, err)
		}
		p, err := render.WindFrame(wf.Lons, wf.Lats, u, v, wf.Times[i])
		if err != nil {
			return fmt.Errorf("rendering step %d: %w", i, err)
		}
		out := filepath.Join(outDir, fmt.Sprintf("frame_%04d.png", i))
		if err := p.Save(render.WindFrameWidth, render.WindFrameHeight, out); err != nil {
			return fmt.Errorf("saving %s: %w", out, err)
		}
	}
	log.Printf("rendered %d wind frames to %s", wf.NumSteps(), outDir)
	return nil
}
