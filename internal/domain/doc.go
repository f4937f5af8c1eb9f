// Package domain models the inputs and outputs of the ADCIRC conversion
// pipeline: station points, storm-event catalogs, and extracted time series.
//
// # Station Lists
//
// Stations arrive as delimited text with a header row. Column names vary by
// which GIS export produced the file, so the loader resolves them by alias
// (case-insensitive):
//
//	identifier: Segment_ID, Station_ID, ID, Name, Station
//	longitude:  X, Lon, Longitude
//	latitude:   Y, Lat, Latitude
//
// Coordinates are WGS-84 decimal degrees. Two shapes appear in practice: a
// catalog CSV with one row per station, and single-point files named
// Segment_<id>.txt containing a header plus one row ("id,y,x", latitude
// before longitude, matching the upstream GIS export). Both parse with the
// same loader. The stations command produces the point files.
//
// # ADCIRC Datasets
//
// ADCIRC writes unstructured-mesh netCDF: node coordinates x(node), y(node)
// in degrees east/north, bathymetric depth(node), triangle connectivity
// element(nele, nvertex) with 1-based node numbers, and per-timestep fields
// such as zeta(time, node) for water-surface elevation or windx/windy(time,
// node) for 10 m wind. The time variable holds offsets in seconds from the
// model cold start; the cold start itself comes from the variable's base_date
// attribute, or from a "seconds since <timestamp>" units attribute on older
// files. Dry or undefined nodes carry the _FillValue sentinel, -99999 by
// ADCIRC convention.
//
// # Missing Values
//
// Inside the pipeline a missing sample is NaN. Each output format encodes it
// per its own convention: -901.0 in containers and CSV (the HEC missing-value
// code), null in JSON, and the _FillValue attribute in netCDF.
//
// # Storm-Event Catalogs
//
// A catalog CSV names one simulation run per row: an event name column (Name,
// Storm, Event) and a dataset column (Dataset, Path, Dir, or any header
// mentioning ADCIRC; vendor spreadsheets use labels like "ADCIRC Data on
// <host>"). A dataset entry may be the netCDF file itself or the run
// directory; directories resolve by appending a configured file name,
// fort.63.nc by default. Rows with an empty dataset, or with several
// comma-separated paths, are skipped and counted rather than guessed at.
package domain
