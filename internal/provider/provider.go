package provider

import "context"

// FaceProvider is the face capability the check-in core consumes.
// Both operations treat "no face found" as a normal outcome.
type FaceProvider interface {
	// DetectFaces returns every face region found in the image. An image
	// without faces yields an empty slice and a nil error.
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)

	// Verify decides whether probe and reference show the same person.
	// Distance is in the provider's metric space: lower is more similar.
	Verify(ctx context.Context, probe, reference []byte) (*Verification, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// BoundingBox represents the face area in the image, in pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Verification is the pairwise same-person decision.
type Verification struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	// ProbeArea is the face the provider used in the probe image, when reported.
	ProbeArea *BoundingBox `json:"probe_area,omitempty"`
}
