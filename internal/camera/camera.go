// Package camera provides the still frames the check-in loop identifies.
package camera

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// Source yields one JPEG frame per Capture. Open fails with
// domain.ErrCameraUnavailable when the device cannot be reached; Capture
// failures are domain.ErrCaptureFailed and may be retried.
type Source interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) ([]byte, error)
	Close() error
	String() string
}

// New picks a source from location: an http(s) URL is a snapshot endpoint,
// anything else is a file path.
func New(location string, timeout time.Duration) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, domain.ErrCameraUnavailable.WithError(fmt.Errorf("CAMERA_SOURCE is not set"))
	}

	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewSnapshotSource(location, timeout), nil
	}

	return NewFileSource(location), nil
}
