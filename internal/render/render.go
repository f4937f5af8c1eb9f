// Package render draws QA figures from extracted outputs: per-station
// hydrographs overlaying every storm event, and per-timestep wind speed
// maps.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Hydrograph dimensions, chosen wide to keep multi-week series legible.
const (
	HydrographWidth  = 10 * vg.Inch
	HydrographHeight = 4 * vg.Inch
	WindFrameWidth   = 7 * vg.Inch
	WindFrameHeight  = 5 * vg.Inch
)

// Hydrograph plots one station's water surface elevation with one line per
// storm event. Missing samples leave gaps rather than plunging to the
// missing sentinel.
func Hydrograph(station string, series []domain.MeshTimeSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Station " + station
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Y.Label.Text = "water surface elevation (m)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, s := range series {
		pts := make(plotter.XYs, 0, s.Len())
		for j, ts := range s.Times {
			v := s.Values[j]
			if domain.IsMissing(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(ts.Unix()), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", s.Event, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Event, line)
	}
	return p, nil
}

// WindFrame renders one timestep's wind speed field as a heat map over the
// regular grid.
func WindFrame(lons, lats []float64, u, v *sparse.DenseArray, t time.Time) (*plot.Plot, error) {
	speed, err := WindSpeed(u, v)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Wind speed (m/s) " + t.UTC().Format("2006-01-02 15:04")
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	grid := &windGrid{lons: lons, lats: lats, z: speed}
	p.Add(plotter.NewHeatMap(grid, palette.Heat(12, 1)))
	return p, nil
}

// WindSpeed combines u and v components into a speed field of the same
// shape.
func WindSpeed(u, v *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(u.Shape) != 2 || len(v.Shape) != 2 || u.Shape[0] != v.Shape[0] || u.Shape[1] != v.Shape[1] {
		return nil, fmt.Errorf("mismatched component shapes %v and %v", u.Shape, v.Shape)
	}
	speed := sparse.ZerosDense(u.Shape...)
	for i, ue := range u.Elements {
		speed.Elements[i] = math.Hypot(ue, v.Elements[i])
	}
	return speed, nil
}

// windGrid adapts a (lat, lon) DenseArray to the heat map's grid interface,
// which indexes by column then row.
type windGrid struct {
	lons, lats []float64
	z          *sparse.DenseArray
}

func (g *windGrid) Dims() (c, r int)   { return len(g.lons), len(g.lats) }
func (g *windGrid) Z(c, r int) float64 { return g.z.Get(r, c) }
func (g *windGrid) X(c int) float64    { return g.lons[c] }
func (g *windGrid) Y(r int) float64    { return g.lats[r] }
