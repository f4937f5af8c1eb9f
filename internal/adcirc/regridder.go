package adcirc

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// GridSpec defines a regular lon/lat target grid by bounds and cell size.
type GridSpec struct {
	West, South, East, North float64
	Resolution               float64
}

// Regridder interpolates node fields onto a regular grid. Barycentric
// weights are computed once per mesh and reused for every timestep.
type Regridder struct {
	lons, lats []float64
	cells      []cellWeight
}

type cellWeight struct {
	nodes  [3]int32
	w      [3]float64
	inside bool
}

// NewRegridder locates every grid cell center in the mesh. Cells outside
// the mesh stay flagged and interpolate to zero.
func NewRegridder(m *Mesh, spec GridSpec) (*Regridder, error) {
	if spec.Resolution <= 0 {
		return nil, fmt.Errorf("grid resolution must be positive, got %g", spec.Resolution)
	}
	if spec.East <= spec.West || spec.North <= spec.South {
		return nil, fmt.Errorf("empty grid bounds (%g, %g) to (%g, %g)", spec.West, spec.South, spec.East, spec.North)
	}
	if m.NumElements() == 0 {
		return nil, fmt.Errorf("mesh has no connectivity")
	}

	lons := axis(spec.West, spec.East, spec.Resolution)
	lats := axis(spec.South, spec.North, spec.Resolution)
	if len(lons) == 0 || len(lats) == 0 {
		return nil, fmt.Errorf("grid bounds smaller than one cell")
	}

	cells := make([]cellWeight, len(lats)*len(lons))
	for j, lat := range lats {
		for i, lon := range lons {
			elem, w, ok := m.Locate(lon, lat)
			if !ok {
				continue
			}
			tri := m.Elements[elem]
			cells[j*len(lons)+i] = cellWeight{
				nodes:  [3]int32{int32(tri[0]), int32(tri[1]), int32(tri[2])},
				w:      w,
				inside: true,
			}
		}
	}
	return &Regridder{lons: lons, lats: lats, cells: cells}, nil
}

// axis returns cell-center coordinates covering [lo, hi).
func axis(lo, hi, step float64) []float64 {
	var vals []float64
	for i := 0; ; i++ {
		c := lo + step/2 + float64(i)*step
		if c >= hi {
			return vals
		}
		vals = append(vals, c)
	}
}

// Lons returns cell-center longitudes, west to east.
func (r *Regridder) Lons() []float64 { return r.lons }

// Lats returns cell-center latitudes, south to north.
func (r *Regridder) Lats() []float64 { return r.lats }

// NumCells returns the grid size.
func (r *Regridder) NumCells() int { return len(r.cells) }

// Apply interpolates one node field onto the grid, shape (lat, lon). Node
// values equal to fill, NaN, or at or below -100 are zeroed before
// weighting; ADCIRC wind output uses large negatives for undefined nodes.
func (r *Regridder) Apply(field []float64, fill float64) *sparse.DenseArray {
	out := sparse.ZerosDense(len(r.lats), len(r.lons))
	nx := len(r.lons)
	for j := range r.lats {
		for i := 0; i < nx; i++ {
			cw := r.cells[j*nx+i]
			if !cw.inside {
				continue
			}
			var v float64
			for k := 0; k < 3; k++ {
				v += cw.w[k] * zeroIfUndefined(field[cw.nodes[k]], fill)
			}
			out.Set(v, j, i)
		}
	}
	return out
}

// zeroIfUndefined blanks undefined samples so they do not bleed into the
// interpolation.
func zeroIfUndefined(v, fill float64) float64 {
	if math.IsNaN(v) || v == fill || v <= -100 {
		return 0
	}
	return v
}
