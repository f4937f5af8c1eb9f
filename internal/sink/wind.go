package sink

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// WindFileOptions carry provenance for the CF global attributes.
type WindFileOptions struct {
	// Source names the input dataset the fields were re-gridded from.
	Source string
	// Institution, when set, lands in the institution attribute.
	Institution string
}

// WindWriter streams re-gridded wind fields into a CF-1.6 netCDF file with
// an unlimited time dimension, so a long simulation never has to fit in
// memory. Timesteps must arrive in order.
type WindWriter struct {
	ff        *os.File
	f         *cdf.File
	ny, nx    int
	coldStart time.Time
	step      int
}

const timeUnitsPrefix = "minutes since "

// NewWindWriter creates the output file and writes the coordinate variables.
func NewWindWriter(path string, lons, lats []float64, coldStart time.Time, opts WindFileOptions) (*WindWriter, error) {
	ny, nx := len(lats), len(lons)
	if ny == 0 || nx == 0 {
		return nil, fmt.Errorf("empty grid: %d lats, %d lons", ny, nx)
	}

	h := cdf.NewHeader([]string{"time", "lat", "lon", "crs"}, []int{0, ny, nx, 1})

	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "long_name", "Longitude")
	h.AddAttribute("lon", "standard_name", "longitude")
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddAttribute("lon", "axis", "X")

	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "long_name", "Latitude")
	h.AddAttribute("lat", "standard_name", "latitude")
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddAttribute("lat", "axis", "Y")

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "long_name", "time")
	h.AddAttribute("time", "units", timeUnitsPrefix+coldStart.UTC().Format("2006-01-02 15:04:05"))
	h.AddAttribute("time", "axis", "T")

	h.AddVariable("crs", []string{"crs"}, []int32{0})
	h.AddAttribute("crs", "grid_mapping_name", "latitude_longitude")
	h.AddAttribute("crs", "longitude_of_prime_meridian", []float64{0})
	h.AddAttribute("crs", "semi_major_axis", []float64{6378137})
	h.AddAttribute("crs", "inverse_flattening", []float64{298.257223563})
	h.AddAttribute("crs", "epsg_code", "EPSG:4326")

	for _, fv := range []struct{ name, long string }{
		{"wind_u", "e/w wind velocity"},
		{"wind_v", "n/s wind velocity"},
	} {
		h.AddVariable(fv.name, []string{"time", "lat", "lon"}, []float32{0})
		h.AddAttribute(fv.name, "long_name", fv.long)
		h.AddAttribute(fv.name, "units", "m/s")
		h.AddAttribute(fv.name, "grid_mapping", "crs")
		h.AddAttribute(fv.name, "_FillValue", []float32{fillValue})
	}

	h.AddAttribute("", "Conventions", "CF-1.6")
	h.AddAttribute("", "title", "ADCIRC wind fields re-gridded to a regular grid")
	if opts.Source != "" {
		h.AddAttribute("", "source", opts.Source)
	}
	if opts.Institution != "" {
		h.AddAttribute("", "institution", opts.Institution)
	}
	h.AddAttribute("", "history", "Created "+domain.Now().UTC().Format(time.RFC3339))

	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return nil, fmt.Errorf("wind header: %v", errs)
	}

	ff, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, err
	}
	w := &WindWriter{ff: ff, f: f, ny: ny, nx: nx, coldStart: coldStart}
	if err := writeFull(f, "lon", lons); err != nil {
		ff.Close()
		return nil, err
	}
	if err := writeFull(f, "lat", lats); err != nil {
		ff.Close()
		return nil, err
	}
	if err := writeFull(f, "crs", []int32{0}); err != nil {
		ff.Close()
		return nil, err
	}
	return w, nil
}

// WriteStep appends one timestep's u and v fields, each shaped (lat, lon).
func (w *WindWriter) WriteStep(t time.Time, u, v *sparse.DenseArray) error {
	fields := []struct {
		name string
		arr  *sparse.DenseArray
	}{{"wind_u", u}, {"wind_v", v}}
	for _, fv := range fields {
		if len(fv.arr.Shape) != 2 || fv.arr.Shape[0] != w.ny || fv.arr.Shape[1] != w.nx {
			return fmt.Errorf("%s shape %v, want [%d %d]", fv.name, fv.arr.Shape, w.ny, w.nx)
		}
	}

	tw := w.f.Writer("time", []int{w.step}, []int{w.step + 1})
	if _, err := tw.Write([]float64{t.Sub(w.coldStart).Minutes()}); err != nil {
		return fmt.Errorf("write time step %d: %w", w.step, err)
	}
	for _, fv := range fields {
		data := make([]float32, len(fv.arr.Elements))
		for i, e := range fv.arr.Elements {
			data[i] = float32(e)
		}
		fw := w.f.Writer(fv.name, []int{w.step, 0, 0}, []int{w.step + 1, w.ny, w.nx})
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write %s step %d: %w", fv.name, w.step, err)
		}
	}
	w.step++
	return nil
}

// Steps reports how many timesteps have been written.
func (w *WindWriter) Steps() int { return w.step }

// Close finalizes the record count and closes the file.
func (w *WindWriter) Close() error {
	if err := cdf.UpdateNumRecs(w.ff); err != nil {
		w.ff.Close()
		return err
	}
	return w.ff.Close()
}

// WindFile reads fields back out of a re-gridded wind file.
type WindFile struct {
	g     api.Group
	Lons  []float64
	Lats  []float64
	Times []time.Time
}

// OpenWindFile opens a wind file produced by WindWriter.
func OpenWindFile(path string) (*WindFile, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	w := &WindFile{g: g}
	if err := w.readCoords(); err != nil {
		g.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func (w *WindFile) readCoords() error {
	lons, err := w.coord("lon")
	if err != nil {
		return err
	}
	lats, err := w.coord("lat")
	if err != nil {
		return err
	}
	w.Lons, w.Lats = lons, lats

	tv, err := w.g.GetVariable("time")
	if err != nil {
		return fmt.Errorf("time variable: %w", err)
	}
	minutes, ok := tv.Values.([]float64)
	if !ok {
		return fmt.Errorf("time variable has type %T, want []float64", tv.Values)
	}
	units, ok := tv.Attributes.Get("units")
	if !ok {
		return fmt.Errorf("time variable has no units")
	}
	origin, err := parseTimeUnits(fmt.Sprint(units))
	if err != nil {
		return err
	}
	w.Times = make([]time.Time, len(minutes))
	for i, m := range minutes {
		w.Times[i] = origin.Add(time.Duration(m * float64(time.Minute)))
	}
	return nil
}

func (w *WindFile) coord(name string) ([]float64, error) {
	v, err := w.g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("%s variable: %w", name, err)
	}
	vals, ok := v.Values.([]float64)
	if !ok {
		return nil, fmt.Errorf("%s variable has type %T, want []float64", name, v.Values)
	}
	return vals, nil
}

// NumSteps reports the written timestep count.
func (w *WindFile) NumSteps() int { return len(w.Times) }

// ReadStep loads one timestep's u and v fields, each shaped (lat, lon).
func (w *WindFile) ReadStep(i int) (u, v *sparse.DenseArray, err error) {
	if i < 0 || i >= len(w.Times) {
		return nil, nil, fmt.Errorf("step %d out of range [0,%d)", i, len(w.Times))
	}
	if u, err = w.readField("wind_u", i); err != nil {
		return nil, nil, err
	}
	if v, err = w.readField("wind_v", i); err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

func (w *WindFile) readField(name string, step int) (*sparse.DenseArray, error) {
	vg, err := w.g.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%s variable: %w", name, err)
	}
	raw, err := vg.GetSlice(int64(step), int64(step+1))
	if err != nil {
		return nil, fmt.Errorf("%s step %d: %w", name, step, err)
	}
	rows, ok := raw.([][][]float32)
	if !ok || len(rows) != 1 {
		return nil, fmt.Errorf("%s step %d has type %T, want [][][]float32", name, step, raw)
	}
	grid := sparse.ZerosDense(len(w.Lats), len(w.Lons))
	for j, row := range rows[0] {
		for k, val := range row {
			grid.Set(float64(val), j, k)
		}
	}
	return grid, nil
}

// Close closes the underlying file.
func (w *WindFile) Close() error {
	w.g.Close()
	return nil
}

func parseTimeUnits(units string) (time.Time, error) {
	s, ok := strings.CutPrefix(units, timeUnitsPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("time units %q lack %q", units, timeUnitsPrefix)
	}
	origin, err := time.ParseInLocation("2006-01-02 15:04:05", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("time units %q: %w", units, err)
	}
	return origin, nil
}
