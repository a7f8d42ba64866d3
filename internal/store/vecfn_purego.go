//go:build !cgo

package store

import (
	"database/sql/driver"
	"fmt"
	"math"

	sqlite "modernc.org/sqlite"
)

func init() {
	// Pure-Go builds cannot load the sqlite-vec extension, so register an
	// equivalent cosine distance function on the modernc driver.
	// Deterministic: same input blobs produce the same distance.
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, vecDistanceCos)
}

func vecDistanceCos(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vector_distance_cos expects 2 arguments")
	}
	a, err := vecDecode(args[0])
	if err != nil {
		return nil, err
	}
	b, err := vecDecode(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 {
		return float64(1), nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("vector_distance_cos: dimension mismatch %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		af := float64(a[i])
		bf := float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float64(1 - cos), nil
}

// vecDecode converts supported driver.Value types into a float32 slice.
func vecDecode(v driver.Value) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return DecodeVector(x)
	case string:
		return DecodeVector([]byte(x))
	default:
		return nil, fmt.Errorf("vector_distance_cos: unsupported type %T", v)
	}
}
