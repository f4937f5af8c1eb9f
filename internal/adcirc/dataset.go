package adcirc

import (
	"fmt"
	"slices"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// DefaultFill is the ADCIRC _FillValue convention for dry or undefined
// nodes, used when a field carries no explicit attribute.
const DefaultFill = -99999.0

// Dataset is an opened ADCIRC unstructured-mesh netCDF file. Field values
// are read one timestep at a time, so a multi-gigabyte run never has to fit
// in memory.
type Dataset struct {
	path      string
	g         api.Group
	times     []time.Time
	coldStart time.Time
	numNodes  int
	getters   map[string]api.VarGetter
}

// OpenOptions adjust how a dataset is interpreted.
type OpenOptions struct {
	// ColdStart overrides the cold-start instant instead of resolving it
	// from the time variable's attributes.
	ColdStart time.Time

	// MeshOnly skips the time axis entirely, for companion files that
	// carry only node coordinates and connectivity.
	MeshOnly bool
}

// Open reads the dataset's time axis and node dimension. The mesh itself is
// loaded on demand by Mesh.
func Open(path string, opts OpenOptions) (*Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	ds := &Dataset{path: path, g: g, getters: make(map[string]api.VarGetter)}
	if err := ds.init(opts); err != nil {
		g.Close()
		return nil, err
	}
	return ds, nil
}

func (ds *Dataset) init(opts OpenOptions) error {
	xg, err := ds.g.GetVarGetter("x")
	if err != nil {
		return fmt.Errorf("%s: x variable: %w", ds.path, err)
	}
	ds.numNodes = int(xg.Len())
	if opts.MeshOnly {
		return nil
	}

	tv, err := ds.g.GetVariable("time")
	if err != nil {
		return fmt.Errorf("%s: time variable: %w", ds.path, err)
	}
	offsets, err := toFloat64s(tv.Values)
	if err != nil {
		return fmt.Errorf("%s: time values: %w", ds.path, err)
	}
	if len(offsets) == 0 {
		return fmt.Errorf("%s: empty time axis", ds.path)
	}

	coldStart := opts.ColdStart
	if coldStart.IsZero() {
		coldStart, err = parseColdStart(attrString(tv.Attributes, "base_date"), attrString(tv.Attributes, "units"))
		if err != nil {
			return fmt.Errorf("%s: %w", ds.path, err)
		}
	}
	ds.coldStart = coldStart
	ds.times = make([]time.Time, len(offsets))
	for i, off := range offsets {
		ds.times[i] = coldStart.Add(time.Duration(off * float64(time.Second)))
	}
	return nil
}

// Path returns the file path the dataset was opened from.
func (ds *Dataset) Path() string { return ds.path }

// ColdStart returns the resolved model time origin.
func (ds *Dataset) ColdStart() time.Time { return ds.coldStart }

// Times returns the absolute timestamp of every output step.
func (ds *Dataset) Times() []time.Time { return ds.times }

// NumSteps returns the number of output timesteps.
func (ds *Dataset) NumSteps() int { return len(ds.times) }

// NumNodes returns the mesh node count.
func (ds *Dataset) NumNodes() int { return ds.numNodes }

// HasVariable reports whether the dataset contains the named variable.
func (ds *Dataset) HasVariable(name string) bool {
	return slices.Contains(ds.g.ListVariables(), name)
}

// Fill returns the named field's _FillValue, or the ADCIRC default when the
// attribute is absent.
func (ds *Dataset) Fill(name string) float64 {
	vg, err := ds.getter(name)
	if err != nil {
		return DefaultFill
	}
	if v, ok := attrFloat(vg.Attributes(), "_FillValue"); ok {
		return v
	}
	return DefaultFill
}

// FieldSlice reads one timestep of a (time, node) field and returns it as
// float64 regardless of the stored precision.
func (ds *Dataset) FieldSlice(name string, step int) ([]float64, error) {
	if step < 0 || step >= len(ds.times) {
		return nil, fmt.Errorf("%s: step %d out of %d", ds.path, step, len(ds.times))
	}
	vg, err := ds.getter(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %s variable: %w", ds.path, name, err)
	}
	raw, err := vg.GetSlice(int64(step), int64(step+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read %s step %d: %w", ds.path, name, step, err)
	}
	row, err := rowToFloat64s(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s step %d: %w", ds.path, name, step, err)
	}
	if len(row) != ds.numNodes {
		return nil, fmt.Errorf("%s: %s step %d has %d values for %d nodes", ds.path, name, step, len(row), ds.numNodes)
	}
	return row, nil
}

// Mesh loads node coordinates, depth, and connectivity. Depth is optional;
// connectivity node numbers are converted from ADCIRC's 1-based convention.
func (ds *Dataset) Mesh() (*Mesh, error) {
	x, err := ds.floatVar("x")
	if err != nil {
		return nil, err
	}
	y, err := ds.floatVar("y")
	if err != nil {
		return nil, err
	}

	var depth []float64
	if ds.HasVariable("depth") {
		if depth, err = ds.floatVar("depth"); err != nil {
			return nil, err
		}
	}

	var elements [][3]int
	if ds.HasVariable("element") {
		ev, err := ds.g.GetVariable("element")
		if err != nil {
			return nil, fmt.Errorf("%s: element variable: %w", ds.path, err)
		}
		if elements, err = toElements(ev.Values); err != nil {
			return nil, fmt.Errorf("%s: element: %w", ds.path, err)
		}
	}

	m, err := NewMesh(x, y, depth, elements)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.path, err)
	}
	return m, nil
}

// Close releases the underlying file.
func (ds *Dataset) Close() { ds.g.Close() }

func (ds *Dataset) getter(name string) (api.VarGetter, error) {
	if vg, ok := ds.getters[name]; ok {
		return vg, nil
	}
	vg, err := ds.g.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	ds.getters[name] = vg
	return vg, nil
}

func (ds *Dataset) floatVar(name string) ([]float64, error) {
	v, err := ds.g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %s variable: %w", ds.path, name, err)
	}
	vals, err := toFloat64s(v.Values)
	if err != nil {
		return nil, fmt.Errorf("%s: %s values: %w", ds.path, name, err)
	}
	return vals, nil
}
