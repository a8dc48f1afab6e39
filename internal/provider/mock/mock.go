package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

const (
	embeddingDimension = 512
	// minImageSize below which an image is rejected as corrupt
	minImageSize = 1000
	// DefaultThreshold mirrors the VGG-Face cosine threshold used by DeepFace
	DefaultThreshold = 0.68
)

// Provider implementa provider.FaceProvider para testes e desenvolvimento.
// Identical images verify at distance 0; unrelated images land near distance 1.
type Provider struct {
	threshold float64
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{threshold: DefaultThreshold}
}

// DetectFaces simula detecção de faces
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      64,
				Y:      48,
				Width:  160,
				Height: 160,
			},
			Confidence: 0.99,
		},
	}, nil
}

// Verify compara embeddings determinísticos derivados do hash de cada imagem
func (p *Provider) Verify(ctx context.Context, probe, reference []byte) (*provider.Verification, error) {
	if len(probe) < minImageSize || len(reference) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	distance := 1 - cosineSimilarity(generateEmbedding(probe), generateEmbedding(reference))
	if distance < 0 {
		distance = 0
	}

	return &provider.Verification{
		Verified:  distance <= p.threshold,
		Distance:  distance,
		Threshold: p.threshold,
	}, nil
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

// cosineSimilarity calcula similaridade coseno entre dois vetores
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ provider.FaceProvider = (*Provider)(nil)
