package rekognition

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/frame"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Provider implements the provider.FaceProvider interface using AWS Rekognition.
// Verification is pairwise through CompareFaces; no collection is kept on AWS.
type Provider struct {
	api         API
	config      Config
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

// Ensure Provider implements provider.FaceProvider interface at compile time
var _ provider.FaceProvider = (*Provider)(nil)

// NewProvider creates a Rekognition provider using the default AWS credential chain
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(client, cfg, opts...), nil
}

// NewProviderWithAPI creates a provider on top of an existing API implementation
func NewProviderWithAPI(api API, cfg Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		api:    api,
		config: cfg,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (p *Provider) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  "rekognition",
		Success:   success,
		Metadata:  metadata,
	}

	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API.
// Rekognition reports boxes as ratios of the image size; they are returned in pixels.
// Returns an empty slice if no faces are detected (not an error)
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	meta := map[string]string{"image_size": strconv.Itoa(len(image))}

	if err := validateImage(image); err != nil {
		p.logAudit(ctx, audit.EventFaceDetected, false, err, meta)
		return nil, err
	}

	width, height, err := frame.Dimensions(image)
	if err != nil {
		p.logAudit(ctx, audit.EventFaceDetected, false, err, meta)
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	output, err := p.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		err = ParseAPIError(err)
		p.logAudit(ctx, audit.EventFaceDetected, false, err, meta)
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		faces = append(faces, provider.DetectedFace{
			BoundingBox: toPixels(detail.BoundingBox, width, height),
			Confidence:  float64(aws.ToFloat32(detail.Confidence)) / 100.0,
		})
	}

	meta["faces_count"] = strconv.Itoa(len(faces))
	p.logAudit(ctx, audit.EventFaceDetected, true, nil, meta)

	return faces, nil
}

// Verify compares probe against reference with CompareFaces. The call is made
// with a zero similarity floor so the best similarity is always reported;
// the configured threshold decides Verified.
func (p *Provider) Verify(ctx context.Context, probe, reference []byte) (*provider.Verification, error) {
	meta := map[string]string{
		"source_image_size": strconv.Itoa(len(probe)),
		"target_image_size": strconv.Itoa(len(reference)),
	}

	if err := validateImage(probe); err != nil {
		p.logAudit(ctx, audit.EventFaceCompared, false, err, meta)
		return nil, fmt.Errorf("source image: %w", err)
	}
	if err := validateImage(reference); err != nil {
		p.logAudit(ctx, audit.EventFaceCompared, false, err, meta)
		return nil, fmt.Errorf("target image: %w", err)
	}

	output, err := p.api.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: probe},
		TargetImage:         &types.Image{Bytes: reference},
		SimilarityThreshold: aws.Float32(0),
	})
	if err != nil {
		err = ParseAPIError(err)
		p.logAudit(ctx, audit.EventFaceCompared, false, err, meta)
		return nil, fmt.Errorf("compare faces: %w", err)
	}

	similarity := bestSimilarity(output.FaceMatches)
	result := &provider.Verification{
		Verified:  len(output.FaceMatches) > 0 && similarity >= p.config.SimilarityThreshold,
		Distance:  1 - similarity,
		Threshold: p.config.DistanceThreshold(),
		ProbeArea: p.probeArea(probe, output.SourceImageFace),
	}

	meta["similarity"] = fmt.Sprintf("%.4f", similarity)
	meta["matched"] = strconv.FormatBool(result.Verified)
	p.logAudit(ctx, audit.EventFaceCompared, true, nil, meta)

	return result, nil
}

func (p *Provider) probeArea(probe []byte, face *types.ComparedSourceImageFace) *provider.BoundingBox {
	if face == nil || face.BoundingBox == nil {
		return nil
	}
	width, height, err := frame.Dimensions(probe)
	if err != nil {
		return nil
	}
	box := toPixels(face.BoundingBox, width, height)
	return &box
}

// bestSimilarity returns the highest similarity among matches, normalized to 0-1
func bestSimilarity(matches []types.CompareFacesMatch) float64 {
	var best float32
	for _, m := range matches {
		if s := aws.ToFloat32(m.Similarity); s > best {
			best = s
		}
	}
	return float64(best) / 100.0
}

func toPixels(box *types.BoundingBox, width, height int) provider.BoundingBox {
	return provider.BoundingBox{
		X:      float64(aws.ToFloat32(box.Left)) * float64(width),
		Y:      float64(aws.ToFloat32(box.Top)) * float64(height),
		Width:  float64(aws.ToFloat32(box.Width)) * float64(width),
		Height: float64(aws.ToFloat32(box.Height)) * float64(height),
	}
}
