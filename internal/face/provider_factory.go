package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/config"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider/rekognition"
)

// ProviderType defines supported face recognition provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace provider (local REST service)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is the AWS Rekognition provider (cloud)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is the deterministic in-process provider for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates a FaceProvider instance based on configuration.
// auditLogger may be nil.
//
// Environment variables:
//   - FACE_PROVIDER: "deepface", "rekognition" or "mock" (default: "deepface")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - AWS_ACCESS_KEY_ID: AWS credentials (via AWS SDK credential chain)
//   - AWS_SECRET_ACCESS_KEY: AWS credentials (via AWS SDK credential chain)
func NewFaceProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.FaceProvider, error) {
	providerType := ProviderType(cfg.FaceProvider)

	switch providerType {
	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg, auditLogger)

	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.FaceProvider, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// createRekognitionProvider creates an AWS Rekognition provider instance
func createRekognitionProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.FaceProvider, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}
	if cfg.RekognitionSimilarity > 0 {
		rekogConfig.SimilarityThreshold = cfg.RekognitionSimilarity
	}

	var opts []rekognition.ProviderOption
	if auditLogger != nil {
		opts = append(opts, rekognition.WithAuditLogger(auditLogger))
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider in %s: %w", rekogConfig.Region, err)
	}

	return prov, nil
}

// createDeepFaceProvider creates a DeepFace provider instance.
// Zero values fall back to deepface.DefaultConfig.
func createDeepFaceProvider(cfg *config.Config) provider.FaceProvider {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceDistanceMetric != "" {
		deepfaceConfig.DistanceMetric = cfg.DeepFaceDistanceMetric
	}
	if cfg.DeepFaceTimeout > 0 {
		deepfaceConfig.Timeout = cfg.DeepFaceTimeout
	}
	if cfg.DeepFaceRetryCount >= 0 {
		deepfaceConfig.RetryCount = cfg.DeepFaceRetryCount
	}
	deepfaceConfig.EnforceDetection = cfg.DeepFaceEnforce

	return deepface.NewProvider(deepfaceConfig)
}
