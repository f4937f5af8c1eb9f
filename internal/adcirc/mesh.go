package adcirc

import (
	"fmt"
	"sync"
)

// Mesh is the unstructured ADCIRC grid: node coordinates in decimal degrees,
// bathymetric depth, and triangle connectivity with 0-based node indices.
type Mesh struct {
	X, Y     []float64
	Depth    []float64
	Elements [][3]int

	index     *nodeIndex
	indexOnce sync.Once

	nodeElems [][]int32
	adjOnce   sync.Once
}

// NewMesh validates connectivity and wraps the raw arrays. Depth may be nil
// when the dataset omits it.
func NewMesh(x, y, depth []float64, elements [][3]int) (*Mesh, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("mesh: x has %d nodes, y has %d", len(x), len(y))
	}
	if depth != nil && len(depth) != len(x) {
		return nil, fmt.Errorf("mesh: depth has %d values for %d nodes", len(depth), len(x))
	}
	for e, el := range elements {
		for _, n := range el {
			if n < 0 || n >= len(x) {
				return nil, fmt.Errorf("mesh: element %d references node %d of %d", e, n, len(x))
			}
		}
	}
	return &Mesh{X: x, Y: y, Depth: depth, Elements: elements}, nil
}

// NumNodes returns the node count.
func (m *Mesh) NumNodes() int { return len(m.X) }

// NumElements returns the triangle count.
func (m *Mesh) NumElements() int { return len(m.Elements) }

// Nearest returns the node closest to (lon, lat) and the great-circle
// distance to it in kilometers.
func (m *Mesh) Nearest(lon, lat float64) (int, float64) {
	m.indexOnce.Do(func() { m.index = newNodeIndex(m.X, m.Y) })
	return m.index.nearest(lon, lat)
}

// Locate finds the triangle containing (lon, lat) and its barycentric
// weights. The search walks out from the nearest node's incident triangles
// to their one-ring neighborhood; points outside the mesh return ok=false.
func (m *Mesh) Locate(lon, lat float64) (elem int, w [3]float64, ok bool) {
	if len(m.Elements) == 0 {
		return 0, w, false
	}
	nearest, _ := m.Nearest(lon, lat)
	m.adjOnce.Do(m.buildAdjacency)

	seen := make(map[int32]struct{}, 32)
	for _, e := range m.nodeElems[nearest] {
		seen[e] = struct{}{}
		if w, inside := m.barycentric(int(e), lon, lat); inside {
			return int(e), w, true
		}
	}
	// One ring out: triangles incident to any node of the first ring.
	for _, e := range m.nodeElems[nearest] {
		for _, n := range m.Elements[e] {
			for _, e2 := range m.nodeElems[n] {
				if _, dup := seen[e2]; dup {
					continue
				}
				seen[e2] = struct{}{}
				if w, inside := m.barycentric(int(e2), lon, lat); inside {
					return int(e2), w, true
				}
			}
		}
	}
	return 0, w, false
}

func (m *Mesh) buildAdjacency() {
	m.nodeElems = make([][]int32, len(m.X))
	for e, el := range m.Elements {
		for _, n := range el {
			m.nodeElems[n] = append(m.nodeElems[n], int32(e))
		}
	}
}

// barycentric tolerance: accepts points within ~1e-9 degrees of an edge so
// grid points on shared edges land in one of the adjacent triangles.
const baryEps = 1e-9

func (m *Mesh) barycentric(elem int, px, py float64) ([3]float64, bool) {
	el := m.Elements[elem]
	x1, y1 := m.X[el[0]], m.Y[el[0]]
	x2, y2 := m.X[el[1]], m.Y[el[1]]
	x3, y3 := m.X[el[2]], m.Y[el[2]]

	det := (y2-y3)*(x1-x3) + (x3-x2)*(y1-y3)
	if det == 0 {
		return [3]float64{}, false
	}
	w1 := ((y2-y3)*(px-x3) + (x3-x2)*(py-y3)) / det
	w2 := ((y3-y1)*(px-x3) + (x1-x3)*(py-y3)) / det
	w3 := 1 - w1 - w2
	if w1 < -baryEps || w2 < -baryEps || w3 < -baryEps {
		return [3]float64{}, false
	}
	return [3]float64{w1, w2, w3}, true
}
