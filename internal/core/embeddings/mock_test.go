package embeddings

import (
	"context"
	"math"
	"os"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

func TestMockClientDeterministic(t *testing.T) {
	client := NewMockClient(64)
	texts := []string{"fed holds rates", "earnings beat estimates"}

	first, err := client.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	second, err := client.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Embed() is not deterministic for identical texts")
	}

	if reflect.DeepEqual(first[0], first[1]) {
		t.Error("Embed() produced identical vectors for different texts")
	}
}

func TestMockClientVectorShape(t *testing.T) {
	client := NewMockClient(32)

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(vectors) != 3 {
		t.Fatalf("Embed() returned %d vectors, want 3", len(vectors))
	}

	for i, vec := range vectors {
		if len(vec) != 32 {
			t.Errorf("vector %d has %d dims, want 32", i, len(vec))
		}

		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}

		if math.Abs(math.Sqrt(sum)-1) > 1e-4 {
			t.Errorf("vector %d norm = %v, want 1", i, math.Sqrt(sum))
		}
	}
}

func TestMockClientDefaultDimensions(t *testing.T) {
	client := NewMockClient(0)

	if client.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions() = %d, want %d", client.Dimensions(), DefaultDimensions)
	}
}

func TestNewClientSelectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantMock bool
	}{
		{
			name:     "mock model",
			cfg:      Config{Model: ModelMock, Dimensions: 64},
			wantMock: true,
		},
		{
			name:     "real model without key falls back to mock",
			cfg:      Config{Model: "text-embedding-3-small", Dimensions: 64},
			wantMock: true,
		},
		{
			name:     "real model with key",
			cfg:      Config{Model: "text-embedding-3-small", Dimensions: 64, APIKey: "sk-test"},
			wantMock: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg, &testLogger)

			_, isMock := client.(*MockClient)
			if isMock != tt.wantMock {
				t.Errorf("NewClient() mock = %v, want %v", isMock, tt.wantMock)
			}

			if client.Dimensions() != 64 {
				t.Errorf("Dimensions() = %d, want 64", client.Dimensions())
			}
		})
	}
}
