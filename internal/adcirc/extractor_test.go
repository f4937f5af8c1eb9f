package adcirc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEvent(t *testing.T) {
	event := domain.StormEvent{Name: "katrina", DatasetPath: fixturePath(t)}
	ex := &adcirc.EventExtractor{MaxSnapKM: 10}

	results, err := ex.ExtractEvent(context.Background(), event,
		[]domain.StationPoint{stationAtNode1, stationFarAway})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "katrina", results[0].Series.Event)
	assert.Equal(t, []float64{0.6, 1.6, 2.6}, results[0].Series.Values)

	// Failed lookups carry no event stamp, the zero series never escapes.
	require.Error(t, results[1].Err)
	assert.Empty(t, results[1].Series.Event)
}

func TestExtractEventColdStartOverride(t *testing.T) {
	override := time.Date(2008, time.September, 1, 0, 0, 0, 0, time.UTC)
	event := domain.StormEvent{Name: "gustav", DatasetPath: fixturePath(t)}
	ex := &adcirc.EventExtractor{MaxSnapKM: 10, ColdStart: override}

	results, err := ex.ExtractEvent(context.Background(), event,
		[]domain.StationPoint{stationAtNode1})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, override, results[0].Series.ColdStart)
	assert.Equal(t, override.Add(time.Hour), results[0].Series.Times[1])
}

func TestExtractEventErrors(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		ex := &adcirc.EventExtractor{MaxSnapKM: 10}
		event := domain.StormEvent{Name: "rita", DatasetPath: filepath.Join(t.TempDir(), "gone.nc")}
		_, err := ex.ExtractEvent(context.Background(), event, []domain.StationPoint{stationAtNode1})
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		ex := &adcirc.EventExtractor{Field: "windx", MaxSnapKM: 10}
		event := domain.StormEvent{Name: "rita", DatasetPath: fixturePath(t)}
		_, err := ex.ExtractEvent(context.Background(), event, []domain.StationPoint{stationAtNode1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no windx variable")
	})

	t.Run("zero snap limit", func(t *testing.T) {
		ex := &adcirc.EventExtractor{}
		event := domain.StormEvent{Name: "rita", DatasetPath: fixturePath(t)}
		_, err := ex.ExtractEvent(context.Background(), event, []domain.StationPoint{stationAtNode1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})
}
