package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

type MockFaceProvider struct {
	mock.Mock
}

func (m *MockFaceProvider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.DetectedFace), args.Error(1)
}

func (m *MockFaceProvider) Verify(ctx context.Context, probe, reference []byte) (*provider.Verification, error) {
	args := m.Called(ctx, probe, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Verification), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) HasRecordToday(ctx context.Context, label string) (bool, error) {
	args := m.Called(ctx, label)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) RecordIfAbsent(ctx context.Context, label string) (attendance.Result, error) {
	args := m.Called(ctx, label)
	return args.Get(0).(attendance.Result), args.Error(1)
}

func (m *MockLedger) TodayLabels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// fakeGallery is an in-memory GalleryReader
type fakeGallery struct {
	labels []string
	images map[string][]byte
	errs   map[string]error
}

func newFakeGallery(entries ...string) *fakeGallery {
	g := &fakeGallery{images: map[string][]byte{}, errs: map[string]error{}}
	for _, label := range entries {
		g.labels = append(g.labels, label)
		g.images[label] = []byte("ref:" + label)
	}
	return g
}

func (g *fakeGallery) Labels() []string {
	return append([]string(nil), g.labels...)
}

func (g *fakeGallery) Image(label string) ([]byte, error) {
	if err, ok := g.errs[label]; ok {
		return nil, err
	}
	return g.images[label], nil
}

func verified(distance float64) *provider.Verification {
	return &provider.Verification{Verified: true, Distance: distance, Threshold: 0.68}
}

func rejected(distance float64) *provider.Verification {
	return &provider.Verification{Verified: false, Distance: distance, Threshold: 0.68}
}

func oneFace() []provider.DetectedFace {
	return []provider.DetectedFace{{
		BoundingBox: provider.BoundingBox{X: 10, Y: 20, Width: 100, Height: 120},
		Confidence:  0.98,
	}}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	return img
}

func jpegProbe(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func pngProbe(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}
