package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/frame"
	"github.com/saturnino-fabrica-de-software/presenca/internal/gallery"
)

// EnrollmentGallery is what enrollment needs from the gallery.
type EnrollmentGallery interface {
	Contains(label string) bool
	Dir() string
}

// EnrollmentService adds members to the gallery directory. It does not run
// face detection on the probe; callers confirm a face first.
type EnrollmentService struct {
	logger      *slog.Logger
	auditLogger audit.Logger
}

func NewEnrollmentService(logger *slog.Logger) *EnrollmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentService{
		logger:      logger.With("component", "enrollment"),
		auditLogger: &audit.NoOpLogger{},
	}
}

func (s *EnrollmentService) WithAuditLogger(logger audit.Logger) *EnrollmentService {
	s.auditLogger = logger
	return s
}

// Enroll stores probe as <dir>/<label>.jpg where label is the normalised
// proposedLabel. The gallery snapshot is not updated; callers reload it.
func (s *EnrollmentService) Enroll(ctx context.Context, g EnrollmentGallery, probe []byte, proposedLabel string) (*domain.Member, error) {
	label := domain.NormalizeLabel(proposedLabel)
	if err := domain.ValidateLabel(label); err != nil {
		return nil, err
	}

	if g.Contains(label) {
		return nil, domain.ErrDuplicateLabel
	}

	dir := g.Dir()
	for _, ext := range gallery.Extensions {
		if _, err := os.Stat(filepath.Join(dir, label+ext)); err == nil {
			return nil, domain.ErrDuplicateLabel
		}
	}

	data, err := frame.NormalizeJPEG(probe)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, label+".jpg")
	if err := writeExclusive(path, data); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, domain.ErrDuplicateLabel
		}
		return nil, domain.ErrGalleryUnavailable.WithError(err)
	}

	s.logger.InfoContext(ctx, "member enrolled", "label", label, "path", path)
	_ = s.auditLogger.Log(ctx, audit.Event{
		EventType: audit.EventMemberEnrolled,
		Label:     label,
		Success:   true,
	})

	return &domain.Member{
		Label:       label,
		DisplayName: domain.DisplayName(label),
		PhotoPath:   path,
	}, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}
