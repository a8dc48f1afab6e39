package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

// GalleryReader is the read side of the gallery the matcher scans.
type GalleryReader interface {
	Labels() []string
	Image(label string) ([]byte, error)
}

// candidate is one gallery entry's verification outcome.
type candidate struct {
	label     string
	verified  bool
	distance  float64
	probeArea *provider.BoundingBox
}

type Matcher struct {
	provider    provider.FaceProvider
	logger      *slog.Logger
	auditLogger audit.Logger
}

func NewMatcher(faceProvider provider.FaceProvider, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		provider:    faceProvider,
		logger:      logger.With("component", "matcher"),
		auditLogger: &audit.NoOpLogger{},
	}
}

func (m *Matcher) WithAuditLogger(logger audit.Logger) *Matcher {
	m.auditLogger = logger
	return m
}

// DetectFace returns the first face found in probe, or nil when there is none.
func (m *Matcher) DetectFace(ctx context.Context, probe []byte) (*provider.BoundingBox, error) {
	faces, err := m.provider.DetectFaces(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, nil
	}
	if len(faces) > 1 {
		m.logger.DebugContext(ctx, "several faces in probe, using the first", "faces", len(faces))
	}
	box := faces[0].BoundingBox
	m.logger.DebugContext(ctx, "face detected", "confidence", faces[0].Confidence, "faces", len(faces))
	return &box, nil
}

// Identify verifies probe against every gallery entry, in gallery order, and
// returns the best verified entry under threshold. Entries that fail to
// verify are skipped. The scan is sequential; it stops early only when ctx
// is cancelled.
func (m *Matcher) Identify(ctx context.Context, probe []byte, gallery GalleryReader, threshold float64) (*domain.MatchResult, error) {
	if !validThreshold(threshold) {
		return nil, domain.ErrInvalidThreshold
	}

	labels := gallery.Labels()
	if len(labels) == 0 {
		return domain.NoMatch(), nil
	}

	candidates := make([]candidate, 0, len(labels))
	skipped := 0

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reference, err := gallery.Image(label)
		if err != nil {
			skipped++
			m.skip(ctx, label, err)
			continue
		}

		v, err := m.provider.Verify(ctx, probe, reference)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			skipped++
			m.skip(ctx, label, err)
			continue
		}

		m.logger.DebugContext(ctx, "verified against gallery entry",
			"label", label,
			"verified", v.Verified,
			"distance", v.Distance,
		)

		candidates = append(candidates, candidate{
			label:     label,
			verified:  v.Verified,
			distance:  v.Distance,
			probeArea: v.ProbeArea,
		})
	}

	result := domain.NoMatch()
	result.Compared = len(candidates)
	result.Skipped = skipped

	best, matched := selectBest(candidates, threshold)
	if best != nil {
		result.Distance = best.distance
		result.Region = toRegion(best.probeArea)
	}
	if matched {
		result.Matched = true
		result.Label = best.label
	}

	return result, nil
}

// selectBest picks the verified candidate with the strictly smallest
// distance; on equal distances the earlier candidate stays. The pick is a
// match only when its distance is below threshold.
func selectBest(candidates []candidate, threshold float64) (*candidate, bool) {
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if !c.verified {
			continue
		}
		if best == nil || c.distance < best.distance {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best, best.distance < threshold
}

func (m *Matcher) skip(ctx context.Context, label string, err error) {
	m.logger.WarnContext(ctx, "skipping gallery entry", "label", label, "error", err)
	_ = m.auditLogger.Log(ctx, audit.Event{
		EventType: audit.EventVerifyFailed,
		Label:     label,
		Success:   false,
		Error:     err.Error(),
	})
}

func validThreshold(threshold float64) bool {
	return threshold > 0 && !math.IsInf(threshold, 1)
}

func toRegion(box *provider.BoundingBox) domain.Region {
	if box == nil {
		return domain.Region{}
	}
	return domain.Region{
		X:      int(math.Round(box.X)),
		Y:      int(math.Round(box.Y)),
		Width:  int(math.Round(box.Width)),
		Height: int(math.Round(box.Height)),
	}
}
