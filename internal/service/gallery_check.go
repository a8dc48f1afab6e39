package service

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// GalleryIssue is a reference photo that cannot take part in matching.
type GalleryIssue struct {
	Label string
	Err   error
}

// CheckGallery runs face detection on every reference photo, at most
// concurrency at a time, and returns the photos without a usable face in
// gallery order. progress, when set, is called once per photo.
func (m *Matcher) CheckGallery(ctx context.Context, gallery GalleryReader, concurrency int, progress func()) ([]GalleryIssue, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	labels := gallery.Labels()
	results := make([]error, len(labels))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, label := range labels {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if progress != nil {
				defer progress()
			}

			results[i] = m.checkReference(ctx, gallery, label)
		}(i, label)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []GalleryIssue
	for i, err := range results {
		if err != nil {
			issues = append(issues, GalleryIssue{Label: labels[i], Err: err})
		}
	}

	m.logger.InfoContext(ctx, "gallery checked", "members", len(labels), "issues", len(issues))

	return issues, nil
}

func (m *Matcher) checkReference(ctx context.Context, gallery GalleryReader, label string) error {
	img, err := gallery.Image(label)
	if err != nil {
		return err
	}
	box, err := m.DetectFace(ctx, img)
	if err != nil {
		return err
	}
	if box == nil {
		return domain.ErrNoFaceDetected
	}
	return nil
}
