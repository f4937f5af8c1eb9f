package adcirc

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// nodePoint is one mesh node in the k-d tree. Longitudes are pre-scaled by
// cos(mean latitude) so a degree step costs the same in both axes; distances
// are squared scaled degrees, converted to kilometers only at the surface.
type nodePoint struct {
	lon, lat float64
	idx      int
}

func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	switch d {
	case 0:
		return p.lon - q.lon
	default:
		return p.lat - q.lat
	}
}

func (p nodePoint) Dims() int { return 2 }

func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(nodePoint)
	dx, dy := p.lon-q.lon, p.lat-q.lat
	return dx*dx + dy*dy
}

// nodePoints implements kdtree.Interface for tree construction.
type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p nodePoints) Len() int                      { return len(p) }
func (p nodePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p nodePoints) Pivot(d kdtree.Dim) int {
	return nodePlane{Dim: d, nodePoints: p}.Pivot()
}

// nodePlane implements kdtree.SortSlicer for pivot selection on one axis.
type nodePlane struct {
	kdtree.Dim
	nodePoints
}

func (p nodePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.nodePoints[i].lon < p.nodePoints[j].lon
	default:
		return p.nodePoints[i].lat < p.nodePoints[j].lat
	}
}
func (p nodePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.nodePoints = p.nodePoints[start:end]
	return p
}
func (p nodePlane) Swap(i, j int) {
	p.nodePoints[i], p.nodePoints[j] = p.nodePoints[j], p.nodePoints[i]
}

// nodeIndex is a nearest-node search structure over mesh node coordinates.
type nodeIndex struct {
	tree   *kdtree.Tree
	cosLat float64
}

const earthKMPerDegree = 111.195

func newNodeIndex(x, y []float64) *nodeIndex {
	var sum float64
	for _, lat := range y {
		sum += lat
	}
	cosLat := 1.0
	if len(y) > 0 {
		cosLat = math.Cos(sum / float64(len(y)) * math.Pi / 180)
	}

	pts := make(nodePoints, len(x))
	for i := range x {
		pts[i] = nodePoint{lon: x[i] * cosLat, lat: y[i], idx: i}
	}
	return &nodeIndex{tree: kdtree.New(pts, false), cosLat: cosLat}
}

// nearest returns the index of the mesh node closest to (lon, lat) and the
// great-circle distance to it in kilometers.
func (ix *nodeIndex) nearest(lon, lat float64) (int, float64) {
	got, _ := ix.tree.Nearest(nodePoint{lon: lon * ix.cosLat, lat: lat, idx: -1})
	p := got.(nodePoint)
	dx := p.lon - lon*ix.cosLat
	dy := p.lat - lat
	return p.idx, math.Sqrt(dx*dx+dy*dy) * earthKMPerDegree
}
