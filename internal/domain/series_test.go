package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestMeshTimeSeriesInterval(t *testing.T) {
	base := time.Date(2005, time.August, 24, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		times []time.Time
		want  time.Duration
	}{
		{name: "empty", want: 0},
		{name: "single sample", times: []time.Time{base}, want: 0},
		{
			name:  "hourly",
			times: []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)},
			want:  time.Hour,
		},
		{
			name:  "half hourly",
			times: []time.Time{base, base.Add(30 * time.Minute)},
			want:  30 * time.Minute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.MeshTimeSeries{Times: tt.times}
			assert.Equal(t, tt.want, s.Interval())
		})
	}
}

func TestMeshTimeSeriesLen(t *testing.T) {
	assert.Zero(t, domain.MeshTimeSeries{}.Len())
	assert.Equal(t, 3, domain.MeshTimeSeries{Values: []float64{1, math.NaN(), 3}}.Len())
}

func TestIsMissing(t *testing.T) {
	assert.True(t, domain.IsMissing(math.NaN()))
	assert.False(t, domain.IsMissing(0))
	assert.False(t, domain.IsMissing(domain.HECMissing))
	assert.False(t, domain.IsMissing(-99999))
}

func TestJobResultOK(t *testing.T) {
	assert.True(t, domain.JobResult{Station: "S1", Event: "katrina"}.OK())
	assert.False(t, domain.JobResult{Error: "station outside mesh"}.OK())
}

func TestClock(t *testing.T) {
	frozen := time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	assert.Equal(t, frozen, domain.Now())

	domain.SetClock(nil)
	assert.WithinDuration(t, time.Now(), domain.Now(), time.Minute)
}
