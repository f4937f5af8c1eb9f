package adcirc_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureColdStart = time.Date(2005, time.August, 24, 0, 0, 0, 0, time.UTC)

// writeDataset builds the canonical test dataset: five nodes, three
// triangles, three hourly zeta steps. Node 3 is dry at step 0 and node 4
// at step 2.
//
//	      n3 (-89.95, 29.1)   n4 (-89.85, 29.1)
//	n0 (-90, 29)   n1 (-89.9, 29)   n2 (-89.8, 29)
func writeDataset(t *testing.T, path string) {
	t.Helper()

	h := cdf.NewHeader(
		[]string{"time", "node", "nele", "nvertex"},
		[]int{0, 5, 3, 3},
	)
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "base_date", "2005-08-24 00:00:00 UTC")
	h.AddVariable("x", []string{"node"}, []float64{0})
	h.AddVariable("y", []string{"node"}, []float64{0})
	h.AddVariable("depth", []string{"node"}, []float64{0})
	h.AddVariable("element", []string{"nele", "nvertex"}, []int32{0})
	h.AddVariable("zeta", []string{"time", "node"}, []float64{0})
	h.AddAttribute("zeta", "_FillValue", []float64{adcirc.DefaultFill})
	h.Define()
	require.Empty(t, h.Check())

	ff, err := os.Create(path)
	require.NoError(t, err)
	cf, err := cdf.Create(ff, h)
	require.NoError(t, err)

	write := func(name string, start, end []int, data any) {
		_, err := cf.Writer(name, start, end).Write(data)
		require.NoError(t, err, name)
	}

	write("x", []int{0}, []int{5}, []float64{-90, -89.9, -89.8, -89.95, -89.85})
	write("y", []int{0}, []int{5}, []float64{29, 29, 29, 29.1, 29.1})
	write("depth", []int{0}, []int{5}, []float64{5, 10, 15, 2, 3})
	write("element", []int{0, 0}, []int{3, 3}, []int32{1, 2, 4, 2, 5, 4, 2, 3, 5})

	rows := [][]float64{
		{0.5, 0.6, 0.7, adcirc.DefaultFill, 0.4},
		{1.5, 1.6, 1.7, 1.2, 1.4},
		{2.5, 2.6, 2.7, 2.2, adcirc.DefaultFill},
	}
	for i, row := range rows {
		write("time", []int{i}, []int{i + 1}, []float64{float64(i) * 3600})
		write("zeta", []int{i, 0}, []int{i + 1, 5}, row)
	}

	require.NoError(t, cdf.UpdateNumRecs(ff))
	require.NoError(t, ff.Close())
}

func fixturePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fort.63.nc")
	writeDataset(t, path)
	return path
}

func TestOpenReadsMetadata(t *testing.T) {
	path := fixturePath(t)

	ds, err := adcirc.Open(path, adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, path, ds.Path())
	assert.Equal(t, 5, ds.NumNodes())
	assert.Equal(t, 3, ds.NumSteps())
	assert.Equal(t, fixtureColdStart, ds.ColdStart())

	times := ds.Times()
	require.Len(t, times, 3)
	for i, ts := range times {
		assert.Equal(t, fixtureColdStart.Add(time.Duration(i)*time.Hour), ts)
	}

	assert.True(t, ds.HasVariable("zeta"))
	assert.False(t, ds.HasVariable("windx"))
}

func TestOpenColdStartOverride(t *testing.T) {
	override := time.Date(2008, time.September, 1, 6, 0, 0, 0, time.UTC)

	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{ColdStart: override})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, override, ds.ColdStart())
	assert.Equal(t, override.Add(2*time.Hour), ds.Times()[2])
}

func TestOpenColdStartFromUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fort.63.nc")

	h := cdf.NewHeader([]string{"time", "node"}, []int{0, 2})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "seconds since 2005-08-24 00:00:00")
	h.AddVariable("x", []string{"node"}, []float64{0})
	h.AddVariable("y", []string{"node"}, []float64{0})
	h.Define()
	require.Empty(t, h.Check())

	ff, err := os.Create(path)
	require.NoError(t, err)
	cf, err := cdf.Create(ff, h)
	require.NoError(t, err)
	_, err = cf.Writer("x", []int{0}, []int{2}).Write([]float64{-90, -89.9})
	require.NoError(t, err)
	_, err = cf.Writer("y", []int{0}, []int{2}).Write([]float64{29, 29})
	require.NoError(t, err)
	_, err = cf.Writer("time", []int{0}, []int{1}).Write([]float64{1800})
	require.NoError(t, err)
	require.NoError(t, cdf.UpdateNumRecs(ff))
	require.NoError(t, ff.Close())

	ds, err := adcirc.Open(path, adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, fixtureColdStart, ds.ColdStart())
	assert.Equal(t, fixtureColdStart.Add(30*time.Minute), ds.Times()[0])
}

func TestOpenMeshOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maxele.63.nc")

	// No time axis at all, the shape of a bare mesh companion file.
	h := cdf.NewHeader([]string{"node", "nele", "nvertex"}, []int{3, 1, 3})
	h.AddVariable("x", []string{"node"}, []float64{0})
	h.AddVariable("y", []string{"node"}, []float64{0})
	h.AddVariable("element", []string{"nele", "nvertex"}, []int32{0})
	h.Define()
	require.Empty(t, h.Check())

	ff, err := os.Create(path)
	require.NoError(t, err)
	cf, err := cdf.Create(ff, h)
	require.NoError(t, err)
	_, err = cf.Writer("x", []int{0}, []int{3}).Write([]float64{0, 1, 0})
	require.NoError(t, err)
	_, err = cf.Writer("y", []int{0}, []int{3}).Write([]float64{0, 0, 1})
	require.NoError(t, err)
	_, err = cf.Writer("element", []int{0, 0}, []int{1, 3}).Write([]int32{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, ff.Close())

	ds, err := adcirc.Open(path, adcirc.OpenOptions{MeshOnly: true})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, 3, ds.NumNodes())
	assert.Equal(t, 0, ds.NumSteps())

	m, err := ds.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumNodes())
	assert.Equal(t, 1, m.NumElements())
	assert.Nil(t, m.Depth)
}

func TestFieldSlice(t *testing.T) {
	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	row, err := ds.FieldSlice("zeta", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.6, 0.7, adcirc.DefaultFill, 0.4}, row)

	row, err = ds.FieldSlice("zeta", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 2.6, 2.7, 2.2, adcirc.DefaultFill}, row)

	_, err = ds.FieldSlice("zeta", 3)
	assert.Error(t, err)
	_, err = ds.FieldSlice("zeta", -1)
	assert.Error(t, err)
	_, err = ds.FieldSlice("windx", 0)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, adcirc.DefaultFill, ds.Fill("zeta"))
	assert.Equal(t, adcirc.DefaultFill, ds.Fill("no-such-field"))
}

func TestMeshFromDataset(t *testing.T) {
	ds, err := adcirc.Open(fixturePath(t), adcirc.OpenOptions{})
	require.NoError(t, err)
	defer ds.Close()

	m, err := ds.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 5, m.NumNodes())
	assert.Equal(t, 3, m.NumElements())
	assert.Equal(t, []float64{5, 10, 15, 2, 3}, m.Depth)

	// Connectivity comes back 0-based.
	assert.Equal(t, [3]int{0, 1, 3}, m.Elements[0])
	assert.Equal(t, [3]int{1, 4, 3}, m.Elements[1])
	assert.Equal(t, [3]int{1, 2, 4}, m.Elements[2])
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := adcirc.Open(filepath.Join(t.TempDir(), "absent.nc"), adcirc.OpenOptions{})
		assert.Error(t, err)
	})

	t.Run("no x variable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.nc")

		h := cdf.NewHeader([]string{"node"}, []int{2})
		h.AddVariable("y", []string{"node"}, []float64{0})
		h.Define()
		require.Empty(t, h.Check())

		ff, err := os.Create(path)
		require.NoError(t, err)
		cf, err := cdf.Create(ff, h)
		require.NoError(t, err)
		_, err = cf.Writer("y", []int{0}, []int{2}).Write([]float64{29, 29})
		require.NoError(t, err)
		require.NoError(t, ff.Close())

		_, err = adcirc.Open(path, adcirc.OpenOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x variable")
	})

	t.Run("unresolvable cold start", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nocold.nc")

		h := cdf.NewHeader([]string{"time", "node"}, []int{0, 2})
		h.AddVariable("time", []string{"time"}, []float64{0})
		h.AddAttribute("time", "units", "hours since who knows when")
		h.AddVariable("x", []string{"node"}, []float64{0})
		h.AddVariable("y", []string{"node"}, []float64{0})
		h.Define()
		require.Empty(t, h.Check())

		ff, err := os.Create(path)
		require.NoError(t, err)
		cf, err := cdf.Create(ff, h)
		require.NoError(t, err)
		_, err = cf.Writer("x", []int{0}, []int{2}).Write([]float64{-90, -89.9})
		require.NoError(t, err)
		_, err = cf.Writer("y", []int{0}, []int{2}).Write([]float64{29, 29})
		require.NoError(t, err)
		_, err = cf.Writer("time", []int{0}, []int{1}).Write([]float64{0})
		require.NoError(t, err)
		require.NoError(t, cdf.UpdateNumRecs(ff))
		require.NoError(t, ff.Close())

		_, err = adcirc.Open(path, adcirc.OpenOptions{})
		assert.Error(t, err)

		// The same file opens fine when the caller supplies the origin.
		ds, err := adcirc.Open(path, adcirc.OpenOptions{ColdStart: fixtureColdStart})
		require.NoError(t, err)
		ds.Close()
	})
}
