package adcirc_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stationAtNode1 = domain.StationPoint{ID: "S1", Lon: -89.9, Lat: 29.0}
	stationNearDry = domain.StationPoint{ID: "S2", Lon: -89.95, Lat: 29.05}
	stationFarAway = domain.StationPoint{ID: "S9", Lon: 0, Lat: 0}
)

func openFixtureSampler(t *testing.T, maxSnapKM float64) (*adcirc.Dataset, *adcirc.Sampler) {
	t.Helper()
	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(ds.Close)
	s, err := adcirc.NewSampler(ds, maxSnapKM)
	require.NoError(t, err)
	return ds, s
}

func TestNewSamplerRejectsBadLimit(t *testing.T) {
	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	for _, km := range []float64{0, -3} {
		_, err := adcirc.NewSampler(ds, km)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	}

	s, err := adcirc.NewSampler(ds, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Mesh().NumNodes())
}

func TestSampleAll(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	res, err := s.SampleAll(context.Background(), "zeta",
		[]domain.StationPoint{stationAtNode1, stationNearDry, stationFarAway})
	require.NoError(t, err)
	require.Len(t, res, 3)

	t.Run("exact node", func(t *testing.T) {
		r := res[0]
		require.NoError(t, r.Err)
		assert.Equal(t, "S1", r.Series.StationID)
		assert.Equal(t, fixtureColdStart, r.Series.ColdStart)
		assert.Equal(t, []float64{0.6, 1.6, 2.6}, r.Series.Values)
		require.Len(t, r.Series.Times, 3)
	})

	t.Run("snapped to a node that dries", func(t *testing.T) {
		r := res[1]
		require.NoError(t, r.Err)
		assert.True(t, math.IsNaN(r.Series.Values[0]), "dry step should be NaN")
		assert.Equal(t, 1.2, r.Series.Values[1])
		assert.Equal(t, 2.2, r.Series.Values[2])
	})

	t.Run("outside the snap limit", func(t *testing.T) {
		r := res[2]
		require.Error(t, r.Err)
		assert.Equal(t, stationFarAway, r.Station)
		assert.Zero(t, r.Series.Len())

		var le *domain.LookupError
		require.ErrorAs(t, r.Err, &le)
		assert.Equal(t, "S9", le.StationID)
		assert.Equal(t, float64(10), le.MaxKM)
		assert.Greater(t, le.NearestKM, le.MaxKM)
		assert.Contains(t, le.Error(), "nearest mesh node")
	})
}

func TestSampleAllEveryStationFails(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	res, err := s.SampleAll(context.Background(), "zeta",
		[]domain.StationPoint{stationFarAway})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Error(t, res[0].Err)
}

func TestSampleAllUnknownField(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	_, err := s.SampleAll(context.Background(), "windx",
		[]domain.StationPoint{stationAtNode1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no windx variable")
}

func TestSampleAllHonorsContext(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SampleAll(ctx, "zeta", []domain.StationPoint{stationAtNode1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleSingleStation(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	series, err := s.Sample(context.Background(), "zeta", stationAtNode1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 1.6, 2.6}, series.Values)

	_, err = s.Sample(context.Background(), "zeta", stationFarAway)
	var le *domain.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "S9", le.StationID)
}

func TestLocateSnapDistance(t *testing.T) {
	_, s := openFixtureSampler(t, 10)

	idx, err := s.Locate(stationAtNode1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = s.Locate(stationNearDry)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	// A tight limit turns the same snap into a lookup failure.
	_, tight := openFixtureSampler(t, 1)
	_, err = tight.Locate(stationNearDry)
	var le *domain.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.NearestIdx)
	assert.InDelta(t, 5.6, le.NearestKM, 0.2)
}
