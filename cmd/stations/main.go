// Command stations splits a station catalog CSV into one point file per
// station, for crews that feed single boundary points to cmd/surge.
//
// Usage:
//
//	go run ./cmd/stations \
//	  -input segments.csv \
//	  -outdir points \
//	  -utm-zone 16
//
// Each output file Segment_<id>.txt is a two-line CSV with an id,y,x
// header. With -utm-zone, catalog coordinates are read as easting and
// northing in that zone and converted to lon/lat.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	input := flag.String("input", "", "station catalog CSV")
	outDir := flag.String("outdir", "", "directory for per-station point files")
	utmZone := flag.Int("utm-zone", 0, "interpret coordinates as UTM easting/northing in this zone (0 = lon/lat)")
	southern := flag.Bool("southern", false, "southern-hemisphere northing convention")
	flag.Parse()

	if *input == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -input, -outdir")
	}

	var (
		stations []domain.StationPoint
		err      error
	)
	if *utmZone > 0 {
		stations, err = domain.LoadStationsUTM(*input, *utmZone, *southern)
	} else {
		stations, err = domain.LoadStations(*input)
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", *input, err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	for _, st := range stations {
		path := filepath.Join(*outDir, "Segment_"+st.ID+".txt")
		if err := writePointFile(path, st); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	log.Printf("wrote %d point files to %s", len(stations), *outDir)
	return nil
}

// writePointFile writes one station as a two-line CSV. Coordinates go out
// y-first to match the id,y,x column order downstream tools expect.
func writePointFile(path string, st domain.StationPoint) error {
	content := "id,y,x\n" +
		st.ID + "," +
		strconv.FormatFloat(st.Lat, 'g', -1, 64) + "," +
		strconv.FormatFloat(st.Lon, 'g', -1, 64) + "\n"
	return os.WriteFile(path, []byte(content), 0o600)
}
