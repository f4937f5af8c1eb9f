package sink

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/couchcryptid/adcirc-etl/internal/tsc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coldStart = time.Date(2005, 8, 24, 0, 0, 0, 0, time.UTC)

func makeSeries(station, event string, values ...float64) domain.MeshTimeSeries {
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = coldStart.Add(time.Duration(i) * time.Hour)
	}
	return domain.MeshTimeSeries{
		StationID: station,
		Event:     event,
		ColdStart: coldStart,
		Times:     times,
		Values:    values,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"container", FormatContainer, false},
		{"netcdf", FormatNetCDF, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"dss", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestContainerSinkAccumulatesEvents(t *testing.T) {
	dir := t.TempDir()
	s, err := New(FormatContainer, Options{OutDir: dir})
	require.NoError(t, err)

	require.NoError(t, s.Append(makeSeries("0350", "katrina", 0.5, math.NaN(), 0.7)))
	require.NoError(t, s.Append(makeSeries("0350", "rita", 0.3, 0.4, 0.5)))
	require.NoError(t, s.Append(makeSeries("0351", "katrina", 1.5, 1.6, 1.7)))
	require.NoError(t, s.Close())

	c, err := tsc.Open(filepath.Join(dir, "0350.tsc"))
	require.NoError(t, err)
	defer c.Close()

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "katrina", recs[0].Event)
	assert.Equal(t, "rita", recs[1].Event)

	pts, err := c.ReadPoints(0)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, coldStart.Unix(), pts[0].Timestamp)
	assert.Equal(t, 0.5, pts[0].Value)
	assert.Equal(t, tsc.Missing, pts[1].Value)
	assert.Equal(t, 0.7, pts[2].Value)

	other, err := tsc.Open(filepath.Join(dir, "0351.tsc"))
	require.NoError(t, err)
	defer other.Close()
	assert.Len(t, other.Records(), 1)
}

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	s, err := New(FormatCSV, Options{OutDir: dir})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(makeSeries("0350", "katrina", 0.52, math.NaN(), 0.61)))

	raw, err := os.ReadFile(filepath.Join(dir, "0350.csv"))
	require.NoError(t, err)
	want := "datetime,elevation_m\n" +
		"2005-08-24T00:00:00Z,0.52\n" +
		"2005-08-24T01:00:00Z,-901.0\n" +
		"2005-08-24T02:00:00Z,0.61\n"
	assert.Equal(t, want, string(raw))
}

func TestJSONSink(t *testing.T) {
	dir := t.TempDir()
	s, err := New(FormatJSON, Options{OutDir: dir})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(makeSeries("0350", "katrina", 0.52, math.NaN(), 0.61)))

	raw, err := os.ReadFile(filepath.Join(dir, "0350.json"))
	require.NoError(t, err)
	var got jsonSeries
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "0350", got.StationID)
	assert.Equal(t, "katrina", got.Event)
	assert.Equal(t, 3600.0, got.IntervalSeconds)
	require.Len(t, got.Points, 3)
	require.NotNil(t, got.Points[0].V)
	assert.Equal(t, 0.52, *got.Points[0].V)
	assert.Nil(t, got.Points[1].V)
	assert.True(t, got.Points[0].T.Equal(coldStart))
}

func TestJSONSinkStartCutoff(t *testing.T) {
	dir := t.TempDir()
	s, err := New(FormatJSON, Options{OutDir: dir, JSONStart: coldStart.Add(90 * time.Minute)})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(makeSeries("0350", "katrina", 0.1, 0.2, 0.3, 0.4)))

	raw, err := os.ReadFile(filepath.Join(dir, "0350.json"))
	require.NoError(t, err)
	var got jsonSeries
	require.NoError(t, json.Unmarshal(raw, &got))

	// Samples at +0h and +1h fall before the cutoff.
	require.Len(t, got.Points, 2)
	assert.True(t, got.Points[0].T.Equal(coldStart.Add(2*time.Hour)))
}

func TestNetCDFSink(t *testing.T) {
	dir := t.TempDir()
	s, err := New(FormatNetCDF, Options{OutDir: dir})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(makeSeries("0350", "katrina", 0.52, math.NaN(), 0.61)))

	g, err := netcdf.Open(filepath.Join(dir, "0350.nc"))
	require.NoError(t, err)
	defer g.Close()

	tv, err := g.GetVariable("time")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 60, 120}, tv.Values)
	units, ok := tv.Attributes.Get("units")
	require.True(t, ok)
	assert.Equal(t, "minutes since 2005-08-24 00:00:00", units)

	zv, err := g.GetVariable("zeta")
	require.NoError(t, err)
	values, ok := zv.Values.([]float32)
	require.True(t, ok, "zeta has type %T", zv.Values)
	require.Len(t, values, 3)
	assert.InDelta(t, 0.52, values[0], 1e-6)
	assert.InDelta(t, fillValue, values[1], 1e-3)
	assert.InDelta(t, 0.61, values[2], 1e-6)

	station, ok := g.Attributes().Get("station_id")
	require.True(t, ok)
	assert.Equal(t, "0350", station)
}

func TestNetCDFSinkRejectsEmptySeries(t *testing.T) {
	s, err := New(FormatNetCDF, Options{OutDir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Append(domain.MeshTimeSeries{StationID: "x"}))
}
