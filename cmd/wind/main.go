// Command wind re-grids ADCIRC wind velocity fields onto a regular
// lon/lat grid and writes them to a CF-style netCDF file.
//
// Usage:
//
//	wind -input fort.74.nc -output wind.nc -bounds "-95,28.5,-87.9,33" -resolution 0.1
//
// The input must carry windx and windy variables. Mesh geometry is read
// from the input itself unless -mesh points at a companion file (for
// outputs written without node coordinates).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/couchcryptid/adcirc-etl/internal/config"
	"github.com/couchcryptid/adcirc-etl/internal/observability"
	"github.com/couchcryptid/adcirc-etl/internal/sink"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	var (
		input      = flag.String("input", "", "ADCIRC wind output (fort.74.nc) to re-grid")
		output     = flag.String("output", "", "destination netCDF file")
		meshPath   = flag.String("mesh", "", "companion file carrying the mesh when the input has none")
		resolution = flag.Float64("resolution", 0.1, "grid cell size in degrees")
		bounds     = flag.String("bounds", "-95,28.5,-87.9,33", "grid extent as west,south,east,north")
		coldStart  = flag.String("coldstart", "", "override the cold-start instant (RFC 3339)")
	)
	flag.Parse()

	logger := observability.NewLogger(cfg)

	if *input == "" || *output == "" {
		flag.Usage()
		return 2
	}

	spec, err := parseBounds(*bounds)
	if err != nil {
		logger.Error("bad flag", "flag", "bounds", "error", err)
		return 2
	}
	spec.Resolution = *resolution

	var opts adcirc.OpenOptions
	if *coldStart != "" {
		opts.ColdStart, err = time.Parse(time.RFC3339, *coldStart)
		if err != nil {
			logger.Error("bad flag", "flag", "coldstart", "error", err)
			return 2
		}
	}

	ds, err := adcirc.Open(*input, opts)
	if err != nil {
		logger.Error("failed to open dataset", "path", *input, "error", err)
		return 1
	}
	defer ds.Close()

	for _, name := range []string{"windx", "windy"} {
		if !ds.HasVariable(name) {
			logger.Error("dataset has no wind fields", "path", *input, "missing", name)
			return 1
		}
	}

	mesh, err := loadMesh(ds, *meshPath)
	if err != nil {
		logger.Error("failed to load mesh", "error", err)
		return 1
	}

	rg, err := adcirc.NewRegridder(mesh, spec)
	if err != nil {
		logger.Error("failed to build regridder", "error", err)
		return 1
	}
	logger.Info("regridding wind fields",
		"input", *input,
		"steps", ds.NumSteps(),
		"cells", rg.NumCells(),
		"resolution", spec.Resolution,
	)

	w, err := sink.NewWindWriter(*output, rg.Lons(), rg.Lats(), ds.ColdStart(), sink.WindFileOptions{
		Source: *input,
	})
	if err != nil {
		logger.Error("failed to create wind file", "path", *output, "error", err)
		return 1
	}

	times := ds.Times()
	for i := 0; i < ds.NumSteps(); i++ {
		xs, err := ds.FieldSlice("windx", i)
		if err != nil {
			logger.Error("failed to read wind field", "variable", "windx", "step", i, "error", err)
			return 1
		}
		ys, err := ds.FieldSlice("windy", i)
		if err != nil {
			logger.Error("failed to read wind field", "variable", "windy", "step", i, "error", err)
			return 1
		}
		u := rg.Apply(xs, ds.Fill("windx"))
		v := rg.Apply(ys, ds.Fill("windy"))
		if err := w.WriteStep(times[i], u, v); err != nil {
			logger.Error("failed to write step", "step", i, "error", err)
			return 1
		}
		if (i+1)%100 == 0 {
			logger.Info("regrid progress", "steps", i+1, "total", ds.NumSteps())
		}
	}

	if err := w.Close(); err != nil {
		logger.Error("failed to finalize wind file", "path", *output, "error", err)
		return 1
	}
	logger.Info("wind file written",
		"path", *output,
		"steps", w.Steps(),
		"lons", len(rg.Lons()),
		"lats", len(rg.Lats()),
	)
	return 0
}

// loadMesh reads geometry from the companion file when one is given,
// otherwise from the dataset itself.
func loadMesh(ds *adcirc.Dataset, path string) (*adcirc.Mesh, error) {
	if path == "" {
		return ds.Mesh()
	}
	companion, err := adcirc.Open(path, adcirc.OpenOptions{MeshOnly: true})
	if err != nil {
		return nil, err
	}
	defer companion.Close()
	return companion.Mesh()
}

func parseBounds(s string) (adcirc.GridSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return adcirc.GridSpec{}, fmt.Errorf("want west,south,east,north, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return adcirc.GridSpec{}, fmt.Errorf("bad bound %q: %w", p, err)
		}
		vals[i] = v
	}
	spec := adcirc.GridSpec{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if spec.East < spec.West {
		spec.West, spec.East = spec.East, spec.West
	}
	if spec.North < spec.South {
		spec.South, spec.North = spec.North, spec.South
	}
	return spec, nil
}
