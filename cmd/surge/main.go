// Command surge extracts water surface elevation series for a set of
// stations from one ADCIRC fort.63 dataset and writes them in the chosen
// output format.
//
// Usage:
//
//	surge -input /data/katrina/fort.63.nc \
//	  -stations stations.csv \
//	  -outdir out -format container -event katrina
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/couchcryptid/adcirc-etl/internal/config"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
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

	input := flag.String("input", "", "ADCIRC fort.63 netCDF dataset (required)")
	stationsPath := flag.String("stations", "", "station list: CSV file or directory of point files (required)")
	outdir := flag.String("outdir", ".", "output directory")
	format := flag.String("format", cfg.Format, "output format: container, netcdf, csv, or json")
	event := flag.String("event", "", "storm event name for output records (default: input base name)")
	coldstart := flag.String("coldstart", "", "RFC 3339 override for the dataset time origin")
	jsonStart := flag.String("json-start", "", "drop JSON samples before this RFC 3339 instant")
	maxDistance := flag.Float64("max-distance", cfg.MaxSnapKM, "maximum station snap distance in km")
	flag.Parse()

	if *input == "" || *stationsPath == "" {
		flag.Usage()
		return 2
	}

	logger := observability.NewLogger(cfg)

	outFormat, err := sink.ParseFormat(*format)
	if err != nil {
		logger.Error("bad flag", "flag", "format", "error", err)
		return 2
	}
	coldStart, err := parseTimeFlag(*coldstart)
	if err != nil {
		logger.Error("bad flag", "flag", "coldstart", "error", err)
		return 2
	}
	jsonCutoff, err := parseTimeFlag(*jsonStart)
	if err != nil {
		logger.Error("bad flag", "flag", "json-start", "error", err)
		return 2
	}
	if *event == "" {
		*event = strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input))
	}

	stations, err := domain.LoadStations(*stationsPath)
	if err != nil {
		logger.Error("loading stations failed", "path", *stationsPath, "error", err)
		return 1
	}
	logger.Info("stations loaded", "count", len(stations), "path", *stationsPath)

	out, err := sink.New(outFormat, sink.Options{OutDir: *outdir, JSONStart: jsonCutoff})
	if err != nil {
		logger.Error("creating output sink failed", "error", err)
		return 1
	}

	extractor := &adcirc.EventExtractor{MaxSnapKM: *maxDistance, ColdStart: coldStart}
	results, err := extractor.ExtractEvent(context.Background(),
		domain.StormEvent{Name: *event, DatasetPath: *input}, stations)
	if err != nil {
		logger.Error("extraction failed", "dataset", *input, "error", err)
		return 1
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			logger.Warn("station failed", "station", res.Station.ID, "error", res.Err)
			failed++
			continue
		}
		if err := out.Append(res.Series); err != nil {
			logger.Warn("write failed", "station", res.Station.ID, "error", err)
			failed++
			continue
		}
	}
	if err := out.Close(); err != nil {
		logger.Error("closing outputs failed", "error", err)
		return 1
	}

	logger.Info("extraction complete",
		"event", *event,
		"format", string(outFormat),
		"succeeded", len(stations)-failed,
		"failed", failed,
	)
	if failed > 0 {
		return 1
	}
	return 0
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
