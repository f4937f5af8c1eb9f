package adcirc

import (
	"context"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
)

// EventExtractor opens one storm event's dataset, samples every station from
// it in a single pass, and stamps the event name on each series. The dataset
// handle lives only for the duration of the call.
type EventExtractor struct {
	// Field is the netCDF variable to sample. Defaults to zeta.
	Field string
	// MaxSnapKM bounds how far a station may sit from its nearest mesh node.
	MaxSnapKM float64
	// ColdStart overrides the dataset's own time origin when set.
	ColdStart time.Time
}

func (e *EventExtractor) ExtractEvent(ctx context.Context, event domain.StormEvent, stations []domain.StationPoint) ([]domain.SeriesResult, error) {
	field := e.Field
	if field == "" {
		field = "zeta"
	}

	ds, err := Open(event.DatasetPath, OpenOptions{ColdStart: e.ColdStart})
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	sampler, err := NewSampler(ds, e.MaxSnapKM)
	if err != nil {
		return nil, err
	}

	results, err := sampler.SampleAll(ctx, field, stations)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Err == nil {
			results[i].Series.Event = event.Name
		}
	}
	return results, nil
}
