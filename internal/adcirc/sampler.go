package adcirc

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

// Sampler extracts station time series from a dataset by snapping each
// station to its nearest mesh node.
type Sampler struct {
	ds    *Dataset
	mesh  *Mesh
	maxKM float64
}

// NewSampler loads the dataset's mesh and prepares nearest-node lookups.
// maxSnapKM bounds how far a station may sit from its snapped node.
func NewSampler(ds *Dataset, maxSnapKM float64) (*Sampler, error) {
	if maxSnapKM <= 0 {
		return nil, fmt.Errorf("max snap distance must be positive, got %g", maxSnapKM)
	}
	mesh, err := ds.Mesh()
	if err != nil {
		return nil, err
	}
	return &Sampler{ds: ds, mesh: mesh, maxKM: maxSnapKM}, nil
}

// Mesh returns the loaded mesh.
func (s *Sampler) Mesh() *Mesh { return s.mesh }

// Locate snaps a station to its nearest mesh node. Stations farther than the
// snap limit fail with a *domain.LookupError.
func (s *Sampler) Locate(st domain.StationPoint) (int, error) {
	idx, km := s.mesh.Nearest(st.Lon, st.Lat)
	if km > s.maxKM {
		return 0, &domain.LookupError{
			StationID: st.ID, Lon: st.Lon, Lat: st.Lat,
			NearestKM: km, MaxKM: s.maxKM, NearestIdx: idx,
		}
	}
	return idx, nil
}

// Sample extracts a single station's series for the named field.
func (s *Sampler) Sample(ctx context.Context, field string, st domain.StationPoint) (domain.MeshTimeSeries, error) {
	res, err := s.SampleAll(ctx, field, []domain.StationPoint{st})
	if err != nil {
		return domain.MeshTimeSeries{}, err
	}
	if res[0].Err != nil {
		return domain.MeshTimeSeries{}, res[0].Err
	}
	return res[0].Series, nil
}

// SampleAll extracts every station's series in a single pass over the
// dataset, so each (time, node) slice is read once no matter how many
// stations want it. Lookup failures land in the per-station results; a
// dataset read failure aborts the whole pass. Fill values become NaN.
func (s *Sampler) SampleAll(ctx context.Context, field string, stations []domain.StationPoint) ([]domain.SeriesResult, error) {
	if !s.ds.HasVariable(field) {
		return nil, fmt.Errorf("%s: no %s variable", s.ds.Path(), field)
	}

	results := make([]domain.SeriesResult, len(stations))
	nodes := make([]int, len(stations))
	active := make([]int, 0, len(stations))
	for i, st := range stations {
		results[i].Station = st
		idx, err := s.Locate(st)
		if err != nil {
			results[i].Err = err
			continue
		}
		nodes[i] = idx
		active = append(active, i)
	}
	if len(active) == 0 {
		return results, nil
	}

	times := s.ds.Times()
	fill := s.ds.Fill(field)
	values := make([][]float64, len(stations))
	for _, i := range active {
		values[i] = make([]float64, len(times))
	}

	for step := range times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.ds.FieldSlice(field, step)
		if err != nil {
			return nil, err
		}
		for _, i := range active {
			values[i][step] = cleanValue(row[nodes[i]], fill)
		}
	}

	for _, i := range active {
		results[i].Series = domain.MeshTimeSeries{
			StationID: stations[i].ID,
			ColdStart: s.ds.ColdStart(),
			Times:     times,
			Values:    values[i],
		}
	}
	return results, nil
}

// cleanValue maps the dataset fill code to the NaN missing marker.
func cleanValue(v, fill float64) float64 {
	if v == fill || math.IsNaN(v) {
		return math.NaN()
	}
	return v
}
