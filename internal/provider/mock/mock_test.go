package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

func image(seed byte) []byte {
	b := make([]byte, 5000)
	for i := range b {
		b[i] = byte(i%256) ^ seed
	}
	return b
}

func TestProvider_DetectFaces(t *testing.T) {
	p := New()
	ctx := context.Background()

	tests := []struct {
		name      string
		image     []byte
		wantFaces int
		wantErr   bool
	}{
		{
			name:      "valid image",
			image:     make([]byte, 5000),
			wantFaces: 1,
		},
		{
			name:    "image too small",
			image:   make([]byte, 100),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces, err := p.DetectFaces(ctx, tt.image)
			if (err != nil) != tt.wantErr {
				t.Errorf("DetectFaces() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(faces) != tt.wantFaces {
				t.Errorf("DetectFaces() got %d faces, want %d", len(faces), tt.wantFaces)
			}
		})
	}
}

func TestProvider_Verify_SameImage(t *testing.T) {
	p := New()

	v, err := p.Verify(context.Background(), image(7), image(7))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if !v.Verified {
		t.Error("identical images should verify")
	}
	if v.Distance > 1e-9 {
		t.Errorf("identical images distance = %v, want 0", v.Distance)
	}
}

func TestProvider_Verify_DifferentImages(t *testing.T) {
	p := New()

	v, err := p.Verify(context.Background(), image(1), image(2))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if v.Distance <= 0 {
		t.Errorf("different images distance = %v, want > 0", v.Distance)
	}
	if v.Verified != (v.Distance <= DefaultThreshold) {
		t.Errorf("Verified = %v inconsistent with distance %v", v.Verified, v.Distance)
	}
}

func TestProvider_Verify_Deterministic(t *testing.T) {
	p := New()
	ctx := context.Background()

	first, err := p.Verify(ctx, image(3), image(4))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	second, err := p.Verify(ctx, image(3), image(4))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if first.Distance != second.Distance {
		t.Errorf("distance changed between runs: %v vs %v", first.Distance, second.Distance)
	}
}

func TestProvider_Verify_InvalidImage(t *testing.T) {
	p := New()

	_, err := p.Verify(context.Background(), make([]byte, 10), image(1))
	if !errors.Is(err, domain.ErrInvalidImage) {
		t.Errorf("Verify() error = %v, want ErrInvalidImage", err)
	}
}
