// Package gallery holds the enrolled members: one reference photo per
// member in a flat directory, the file name being the member label.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// Extensions accepted as reference photos, compared case-insensitively.
var Extensions = []string{".jpg", ".jpeg", ".png"}

type entry struct {
	label string
	path  string
}

// Gallery is an immutable snapshot of the gallery directory. Images are
// read on demand; the snapshot only keeps paths.
type Gallery struct {
	dir     string
	entries []entry
	index   map[string]int
	logger  *slog.Logger
}

// EnsureDir creates the gallery directory if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.ErrGalleryUnavailable.WithError(err)
	}
	return nil
}

// Load scans dir. A directory without photos is an empty gallery; a
// missing directory is an error.
func Load(dir string, logger *slog.Logger) (*Gallery, error) {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrGalleryUnavailable.WithError(fmt.Errorf("gallery dir %s: %w", dir, err))
		}
		return nil, domain.ErrGalleryUnavailable.WithError(err)
	}

	g := &Gallery{
		dir:    dir,
		index:  make(map[string]int, len(files)),
		logger: logger,
	}

	for _, f := range files {
		if f.IsDir() || !IsPhoto(f.Name()) {
			continue
		}

		name := f.Name()
		label := strings.TrimSuffix(name, filepath.Ext(name))
		if label == "" {
			continue
		}
		// a label the ledger cannot store would match but never check in
		if err := domain.ValidateLabel(label); err != nil {
			logger.Warn("invalid label in gallery, skipping", "file", name)
			continue
		}

		if prev, ok := g.index[label]; ok {
			logger.Warn("duplicate label in gallery, keeping first",
				"label", label,
				"kept", filepath.Base(g.entries[prev].path),
				"skipped", name,
			)
			continue
		}

		g.index[label] = len(g.entries)
		g.entries = append(g.entries, entry{label: label, path: filepath.Join(dir, name)})
	}

	logger.Debug("gallery loaded", "dir", dir, "members", len(g.entries))

	return g, nil
}

// IsPhoto reports whether name has a reference photo extension.
func IsPhoto(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Reload re-scans the same directory and returns a fresh snapshot.
func (g *Gallery) Reload() (*Gallery, error) {
	return Load(g.dir, g.logger)
}

// Dir returns the gallery directory.
func (g *Gallery) Dir() string {
	return g.dir
}

// Len returns the number of members.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// Labels returns member labels in scan order.
func (g *Gallery) Labels() []string {
	labels := make([]string, len(g.entries))
	for i, e := range g.entries {
		labels[i] = e.label
	}
	return labels
}

func (g *Gallery) Contains(label string) bool {
	_, ok := g.index[label]
	return ok
}

// Path returns the reference photo path for label.
func (g *Gallery) Path(label string) (string, bool) {
	i, ok := g.index[label]
	if !ok {
		return "", false
	}
	return g.entries[i].path, true
}

// Image reads the reference photo for label.
func (g *Gallery) Image(label string) ([]byte, error) {
	path, ok := g.Path(label)
	if !ok {
		return nil, fmt.Errorf("%s: %w", label, domain.ErrMemberNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference for %s: %w", label, err)
	}
	return data, nil
}

// Members returns the gallery as domain members.
func (g *Gallery) Members() []domain.Member {
	members := make([]domain.Member, len(g.entries))
	for i, e := range g.entries {
		members[i] = domain.Member{
			Label:       e.label,
			DisplayName: domain.DisplayName(e.label),
			PhotoPath:   e.path,
		}
	}
	return members
}
