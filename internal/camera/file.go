package camera

import (
	"context"
	"fmt"
	"os"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/frame"
)

// FileSource reads a still image that an external grabber keeps refreshing
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Open(_ context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return domain.ErrCameraUnavailable.WithError(err)
	}
	if info.IsDir() {
		return domain.ErrCameraUnavailable.WithError(fmt.Errorf("%s is a directory", s.path))
	}
	return nil
}

func (s *FileSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, domain.ErrCaptureFailed.WithError(err)
	}

	jpeg, err := frame.NormalizeJPEG(data)
	if err != nil {
		return nil, domain.ErrCaptureFailed.WithError(err)
	}
	return jpeg, nil
}

func (s *FileSource) Close() error {
	return nil
}

func (s *FileSource) String() string {
	return "file " + s.path
}
