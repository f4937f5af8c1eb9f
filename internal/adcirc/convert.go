package adcirc

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// toFloat64s widens any numeric netCDF vector to float64. ADCIRC files store
// coordinates as double but field precision varies by preprocessor.
func toFloat64s(v interface{}) ([]float64, error) {
	switch vv := v.(type) {
	case []float64:
		return vv, nil
	case []float32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case float64:
		return []float64{vv}, nil
	case float32:
		return []float64{float64(vv)}, nil
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// rowToFloat64s unwraps a one-step slice of a (time, node) field. Slicing
// the leading dimension yields a single nested row.
func rowToFloat64s(v interface{}) ([]float64, error) {
	switch vv := v.(type) {
	case [][]float64:
		if len(vv) != 1 {
			return nil, fmt.Errorf("expected 1 row, got %d", len(vv))
		}
		return vv[0], nil
	case [][]float32:
		if len(vv) != 1 {
			return nil, fmt.Errorf("expected 1 row, got %d", len(vv))
		}
		return toFloat64s(vv[0])
	case [][]int32:
		if len(vv) != 1 {
			return nil, fmt.Errorf("expected 1 row, got %d", len(vv))
		}
		return toFloat64s(vv[0])
	default:
		return toFloat64s(v)
	}
}

// toElements converts mesh connectivity to 0-based triangles. ADCIRC numbers
// nodes from 1.
func toElements(v interface{}) ([][3]int, error) {
	switch vv := v.(type) {
	case [][]int32:
		return buildElements(len(vv), func(i, j int) int { return int(vv[i][j]) }, func(i int) int { return len(vv[i]) })
	case [][]int64:
		return buildElements(len(vv), func(i, j int) int { return int(vv[i][j]) }, func(i int) int { return len(vv[i]) })
	case [][]int16:
		return buildElements(len(vv), func(i, j int) int { return int(vv[i][j]) }, func(i int) int { return len(vv[i]) })
	default:
		return nil, fmt.Errorf("unsupported connectivity type %T", v)
	}
}

func buildElements(n int, at func(i, j int) int, width func(i int) int) ([][3]int, error) {
	elems := make([][3]int, n)
	for i := 0; i < n; i++ {
		if width(i) < 3 {
			return nil, fmt.Errorf("element %d has %d vertices", i, width(i))
		}
		for j := 0; j < 3; j++ {
			elems[i][j] = at(i, j) - 1
		}
	}
	return elems, nil
}

// attrString reads a text attribute, or "" when absent.
func attrString(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []string:
		if len(s) > 0 {
			return s[0]
		}
	}
	return ""
}

// attrFloat reads a numeric attribute in whatever width it was stored.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int8:
		return float64(x), true
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}
