package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels
)

// Provider implements provider.FaceProvider using DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// DetectFaces detects faces in the image. DeepFace answers 400 when
// enforce_detection finds nothing; that is reported as zero faces.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	img, err := dataURI(image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	resp, err := p.client.Represent(ctx, img)
	if err != nil {
		if isNoFaceError(err) {
			return []provider.DetectedFace{}, nil
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		confidence := result.FaceConfidence
		if confidence <= 0 {
			confidence = calculateConfidence(float64(result.FacialArea.W * result.FacialArea.H))
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: toBoundingBox(result.FacialArea),
			Confidence:  confidence,
		})
	}

	return faces, nil
}

// Verify compares probe and reference with the configured model and metric
func (p *Provider) Verify(ctx context.Context, probe, reference []byte) (*provider.Verification, error) {
	img1, err := dataURI(probe)
	if err != nil {
		return nil, fmt.Errorf("verify probe: %w", err)
	}
	img2, err := dataURI(reference)
	if err != nil {
		return nil, fmt.Errorf("verify reference: %w", err)
	}

	resp, err := p.client.Verify(ctx, img1, img2)
	if err != nil {
		if isNoFaceError(err) {
			return nil, fmt.Errorf("verify: %w: %w", ErrNoFaceInResponse, err)
		}
		return nil, fmt.Errorf("verify: %w", err)
	}

	area := toBoundingBox(resp.FacialAreas.Img1)

	return &provider.Verification{
		Verified:  resp.Verified,
		Distance:  resp.Distance,
		Threshold: resp.Threshold,
		ProbeArea: &area,
	}, nil
}

// calculateConfidence estimates confidence based on face area when the
// detector backend does not report one. Larger faces are more reliable.
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	// Scale from 0.7 to 0.99 based on face area
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

func toBoundingBox(area FacialArea) provider.BoundingBox {
	return provider.BoundingBox{
		X:      float64(area.X),
		Y:      float64(area.Y),
		Width:  float64(area.W),
		Height: float64(area.H),
	}
}

// dataURI encodes image bytes the way the DeepFace API expects base64 input
func dataURI(image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrInvalidImageFormat
	}

	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidImageFormat, mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}

func isNoFaceError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(statusErr.Body), "could not be detected")
}

// Ensure Provider implements provider.FaceProvider
var _ provider.FaceProvider = (*Provider)(nil)
