package store

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVectorRoundTrip(t *testing.T) {
	vecs := [][]float32{
		{},
		{0},
		{1, -1, 0.5, -0.5},
		{math.MaxFloat32, math.SmallestNonzeroFloat32},
	}
	for _, vec := range vecs {
		got, err := DecodeVector(EncodeVector(vec))
		if err != nil {
			t.Fatalf("decode %v: %v", vec, err)
		}
		if diff := cmp.Diff(vec, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeVectorBadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a truncated blob")
	}
}

func TestEncodeVectorLayout(t *testing.T) {
	// Little-endian float32: 1.0 encodes as 00 00 80 3f.
	got := EncodeVector([]float32{1})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}
