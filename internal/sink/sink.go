// Package sink writes extracted station series to the supported output
// formats: the station container, per-station netCDF, CSV, and JSON.
package sink

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

// Format selects an output encoding.
type Format string

const (
	FormatContainer Format = "container"
	FormatNetCDF    Format = "netcdf"
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatContainer, FormatNetCDF, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want container, netcdf, csv, or json)", s)
	}
}

// Sink writes one extracted series per call. Appends for distinct stations
// may run concurrently; appends for the same station must be serialized by
// the caller.
type Sink interface {
	Append(series domain.MeshTimeSeries) error
	Close() error
}

// Options configure sink construction.
type Options struct {
	// OutDir is where station outputs land. Created if absent.
	OutDir string
	// JSONStart, when set, drops samples before it from JSON output only.
	JSONStart time.Time
}

// New builds the sink for a format. The container sink accumulates one
// record per event in <station>.tsc; the file formats write <station>.<ext>
// per append, so a later event for the same station replaces the file.
func New(format Format, opts Options) (Sink, error) {
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}
	switch format {
	case FormatContainer:
		return newContainerSink(opts.OutDir), nil
	case FormatNetCDF:
		return &netcdfSink{dir: opts.OutDir}, nil
	case FormatCSV:
		return &csvSink{dir: opts.OutDir}, nil
	case FormatJSON:
		return &jsonSink{dir: opts.OutDir, start: opts.JSONStart}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// fillValue is the ADCIRC dry-node sentinel, reused as _FillValue in netCDF
// output.
const fillValue = -99999.0
