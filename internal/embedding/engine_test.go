package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero_vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length_mismatch", a: []float32{1}, b: []float32{1, 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEngineUnknownProvider(t *testing.T) {
	if _, err := NewEngine(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "ollama" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.GenAIModel != "gemini-embedding-001" {
		t.Errorf("genai model = %q", cfg.GenAIModel)
	}
}
