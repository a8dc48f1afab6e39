package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/config"
	"github.com/saturnino-fabrica-de-software/presenca/internal/database"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/face"
	"github.com/saturnino-fabrica-de-software/presenca/internal/gallery"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
	"github.com/saturnino-fabrica-de-software/presenca/internal/service"
)

// app holds what a command needs, built from configuration. Each piece is
// created on first use so members never touches the face provider and
// migrate never touches the gallery.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	auditLogger audit.Logger

	provider provider.FaceProvider
	gallery  *gallery.Gallery
	ledger   attendance.Ledger
	closers  []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)
	if cfg.IsDevelopment() {
		logger.Debug("config loaded",
			"gallery", cfg.GalleryDir,
			"ledger", cfg.LedgerBackend,
			"provider", cfg.FaceProvider,
			"threshold", cfg.MatchThreshold,
		)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		auditLogger: audit.NewSlogLogger(logger),
	}, nil
}

// applyOverrides lets persistent flags win over the environment.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("gallery") {
		cfg.GalleryDir, _ = flags.GetString("gallery")
	}
	if flags.Changed("threshold") {
		cfg.MatchThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("provider") {
		cfg.FaceProvider, _ = flags.GetString("provider")
	}
	if flags.Changed("ledger") {
		cfg.LedgerBackend, _ = flags.GetString("ledger")
	}
	return cfg.Validate()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) faceProvider(ctx context.Context) (provider.FaceProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	p, err := face.NewFaceProvider(ctx, a.cfg, a.auditLogger)
	if err != nil {
		return nil, fmt.Errorf("face provider: %w", err)
	}
	a.provider = p
	return p, nil
}

func (a *app) loadGallery() (*gallery.Gallery, error) {
	if a.gallery != nil {
		return a.gallery, nil
	}
	if err := gallery.EnsureDir(a.cfg.GalleryDir); err != nil {
		return nil, err
	}
	g, err := gallery.Load(a.cfg.GalleryDir, a.logger)
	if err != nil {
		return nil, err
	}
	a.gallery = g
	return g, nil
}

func (a *app) openLedger(ctx context.Context) (attendance.Ledger, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}

	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := attendance.SystemClock(loc)

	switch a.cfg.LedgerBackend {
	case config.LedgerBackendPostgres:
		pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(a.cfg.DatabaseURL))
		if err != nil {
			return nil, domain.ErrLedgerUnavailable.WithError(err)
		}
		a.closers = append(a.closers, pool.Close)
		a.ledger = repository.NewAttendanceRepository(pool, clock, a.logger)
	case config.LedgerBackendSQLite:
		repo, err := repository.OpenSQLiteAttendance(ctx, a.cfg.LedgerSQLite, clock, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		a.ledger = repo
	default:
		ledger, err := attendance.NewCSVLedger(a.cfg.LedgerFile, clock, a.logger)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("csv ledger", "path", ledger.Path())
		a.ledger = ledger
	}

	a.logger.Debug("ledger ready", "backend", a.cfg.LedgerBackend)
	return a.ledger, nil
}

func (a *app) matcher(ctx context.Context) (*service.Matcher, error) {
	p, err := a.faceProvider(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewMatcher(p, a.logger).WithAuditLogger(a.auditLogger), nil
}

func (a *app) checkInService(ctx context.Context) (*service.CheckInService, error) {
	matcher, err := a.matcher(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := a.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewCheckInService(matcher, ledger, a.cfg.MatchThreshold, a.logger).
		WithAuditLogger(a.auditLogger), nil
}

func (a *app) enrollmentService() *service.EnrollmentService {
	return service.NewEnrollmentService(a.logger).WithAuditLogger(a.auditLogger)
}
