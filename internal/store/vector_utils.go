package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes an embedding as little-endian float32 bytes,
// the layout sqlite-vec expects for its distance functions.
func EncodeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// DecodeVector deserializes a little-endian float32 blob.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
