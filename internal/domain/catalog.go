package domain

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StormEvent names one simulation run and the dataset it produced.
type StormEvent struct {
	Name        string `json:"name"`
	DatasetPath string `json:"dataset_path"`
}

// PathRewrite maps a catalog path prefix onto a local mount point. Catalogs
// are maintained against cluster paths that differ from where the share is
// mounted on the machine running the conversion.
type PathRewrite struct {
	From string
	To   string
}

func (r PathRewrite) apply(p string) string {
	if r.From == "" || !strings.HasPrefix(p, r.From) {
		return p
	}
	return r.To + strings.TrimPrefix(p, r.From)
}

// CatalogOptions control how LoadCatalog interprets dataset entries.
type CatalogOptions struct {
	// DatasetName is appended to catalog entries that point at a run
	// directory instead of a file. Defaults to fort.63.nc.
	DatasetName string
	Rewrite     PathRewrite
}

var (
	eventAliases   = []string{"name", "storm", "event"}
	datasetAliases = []string{"dataset", "path", "dir"}
)

// LoadCatalog reads a storm-event catalog CSV and returns the events in row
// order plus the number of rows skipped. A row is skipped, not failed, when
// its dataset entry is empty or lists several comma-separated paths; those
// rows exist in vendor spreadsheets and carry no usable run.
func LoadCatalog(path string, opts CatalogOptions) ([]StormEvent, int, error) {
	if opts.DatasetName == "" {
		opts.DatasetName = "fort.63.nc"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, 0, &ParseError{Path: path, Line: 1, Reason: "no data rows"}
	}

	nameCol, err := findColumn(path, rows[0], eventAliases, "event name")
	if err != nil {
		return nil, 0, err
	}
	dataCol, err := findDatasetColumn(path, rows[0])
	if err != nil {
		return nil, 0, err
	}

	var (
		events  []StormEvent
		skipped int
	)
	for i, row := range rows[1:] {
		line := i + 2
		if nameCol >= len(row) || dataCol >= len(row) {
			return nil, 0, &ParseError{Path: path, Line: line, Reason: "short row"}
		}
		name := strings.TrimSpace(row[nameCol])
		ds := strings.TrimSpace(row[dataCol])
		if name == "" {
			return nil, 0, &ParseError{Path: path, Line: line, Column: rows[0][nameCol], Reason: "missing event name"}
		}
		if ds == "" || strings.Contains(ds, ",") {
			skipped++
			continue
		}
		events = append(events, StormEvent{
			Name:        name,
			DatasetPath: resolveDataset(opts.Rewrite.apply(ds), opts.DatasetName),
		})
	}
	if len(events) == 0 {
		return nil, skipped, &ParseError{Path: path, Line: 1, Reason: "no usable events"}
	}
	return events, skipped, nil
}

// findDatasetColumn accepts the exact aliases and, failing that, any header
// that mentions ADCIRC. Vendor spreadsheets label the column after the host
// holding the runs ("ADCIRC Data on ...").
func findDatasetColumn(path string, header []string) (int, error) {
	if col, err := findColumn(path, header, datasetAliases, "dataset"); err == nil {
		return col, nil
	}
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), "adcirc") {
			return i, nil
		}
	}
	return 0, &ParseError{Path: path, Line: 1, Reason: fmt.Sprintf("no dataset column (accepted: %s, or any header containing \"adcirc\")", strings.Join(datasetAliases, ", "))}
}

// resolveDataset turns a catalog entry into a netCDF path. Entries ending in
// .nc are used as-is; anything else is treated as a run directory.
func resolveDataset(entry, datasetName string) string {
	if strings.HasSuffix(entry, ".nc") {
		return entry
	}
	return filepath.Join(entry, datasetName)
}
