package rekognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeUnrecognizedClient = "UnrecognizedClientException"
	errCodeInvalidSignature   = "InvalidSignatureException"
	errCodeExpiredToken       = "ExpiredTokenException"
	noFaceMessageFragment     = "no face"
	noFaceMessageFragmentAlt  = "face not detected"
)

// API is the subset of the Rekognition client the provider calls
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

// NewClient creates a Rekognition client for the configured region.
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// ParseAPIError maps Rekognition API errors onto package errors.
// InvalidParameterException is what CompareFaces returns when either image
// has no detectable face.
func ParseAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case errCodeInvalidParameter:
		msg := strings.ToLower(apiErr.ErrorMessage())
		if msg == "" || strings.Contains(msg, noFaceMessageFragment) || strings.Contains(msg, noFaceMessageFragmentAlt) {
			return fmt.Errorf("%w: %w", ErrNoFaceDetected, err)
		}
		return err
	case errCodeInvalidImageFormat, errCodeImageTooLarge:
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	case errCodeAccessDenied, errCodeUnrecognizedClient, errCodeInvalidSignature, errCodeExpiredToken:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	return err
}
