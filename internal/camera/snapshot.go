package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/frame"
)

const (
	defaultSnapshotTimeout = 10 * time.Second
	// maxSnapshotSize guards against endpoints streaming MJPEG instead of a still
	maxSnapshotSize = 20 * 1024 * 1024
)

// SnapshotSource fetches a still image from an IP camera snapshot URL
type SnapshotSource struct {
	url        string
	httpClient *http.Client
}

func NewSnapshotSource(snapshotURL string, timeout time.Duration) *SnapshotSource {
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &SnapshotSource{
		url: snapshotURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Open performs one capture to prove the camera answers with an image.
func (s *SnapshotSource) Open(ctx context.Context) error {
	if _, err := s.fetch(ctx); err != nil {
		return domain.ErrCameraUnavailable.WithError(err)
	}
	return nil
}

func (s *SnapshotSource) Capture(ctx context.Context) ([]byte, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, domain.ErrCaptureFailed.WithError(err)
	}
	return data, nil
}

func (s *SnapshotSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(body) > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot larger than %d bytes", maxSnapshotSize)
	}

	return frame.NormalizeJPEG(body)
}

func (s *SnapshotSource) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// String hides credentials embedded in the URL
func (s *SnapshotSource) String() string {
	u, err := url.Parse(s.url)
	if err != nil {
		return "snapshot"
	}
	return "snapshot " + u.Redacted()
}
