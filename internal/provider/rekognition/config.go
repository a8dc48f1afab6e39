package rekognition

// Config holds configuration for AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// SimilarityThreshold is the 0-1 similarity at which two faces are
	// considered the same person. Rekognition reports similarity in percent.
	SimilarityThreshold float64
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:              "us-east-1",
		SimilarityThreshold: 0.8,
	}
}

// DistanceThreshold is SimilarityThreshold expressed in the distance space
// used by the rest of the system.
func (c Config) DistanceThreshold() float64 {
	return 1 - c.SimilarityThreshold
}
