package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/audit"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// CheckInService runs one capture-decide-act cycle: detect, identify,
// record attendance.
type CheckInService struct {
	matcher     *Matcher
	ledger      attendance.Ledger
	threshold   float64
	logger      *slog.Logger
	auditLogger audit.Logger
}

func NewCheckInService(matcher *Matcher, ledger attendance.Ledger, threshold float64, logger *slog.Logger) *CheckInService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckInService{
		matcher:     matcher,
		ledger:      ledger,
		threshold:   threshold,
		logger:      logger.With("component", "checkin"),
		auditLogger: &audit.NoOpLogger{},
	}
}

func (s *CheckInService) WithAuditLogger(logger audit.Logger) *CheckInService {
	s.auditLogger = logger
	return s
}

func (s *CheckInService) Threshold() float64 {
	return s.threshold
}

// Process handles one probe. A probe without a face returns
// domain.ErrNoFaceDetected; an unmatched probe returns an outcome whose
// OfferEnrollment is true.
func (s *CheckInService) Process(ctx context.Context, probe []byte, gallery GalleryReader) (*domain.CheckInOutcome, error) {
	captureID := uuid.New()

	region, err := s.matcher.DetectFace(ctx, probe)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, domain.ErrNoFaceDetected
	}

	match, err := s.matcher.Identify(ctx, probe, gallery, s.threshold)
	if err != nil {
		return nil, err
	}
	if match.Region == (domain.Region{}) {
		match.Region = toRegion(region)
	}

	outcome := &domain.CheckInOutcome{Match: match}

	if !match.Matched {
		s.logger.InfoContext(ctx, "no match",
			"capture_id", captureID,
			"compared", match.Compared,
			"skipped", match.Skipped,
		)
		s.audit(ctx, captureID, audit.EventCheckInUnmatched, "", true, nil, match)
		return outcome, nil
	}

	s.audit(ctx, captureID, audit.EventCheckInMatched, match.Label, true, nil, match)

	res, err := s.ledger.RecordIfAbsent(ctx, match.Label)
	if err != nil {
		s.audit(ctx, captureID, audit.EventAttendanceRecorded, match.Label, false, err, match)
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("record %s: %w", match.Label, err))
	}

	record := res.Record
	outcome.Recorded = res.Written
	outcome.Record = &record

	eventType := audit.EventAttendanceRecorded
	if !res.Written {
		eventType = audit.EventAttendanceRepeated
	}
	s.audit(ctx, captureID, eventType, match.Label, true, nil, match)

	s.logger.InfoContext(ctx, "check-in",
		"capture_id", captureID,
		"label", match.Label,
		"distance", match.Distance,
		"recorded", res.Written,
	)

	return outcome, nil
}

func (s *CheckInService) audit(ctx context.Context, captureID uuid.UUID, eventType audit.EventType, label string, success bool, err error, match *domain.MatchResult) {
	event := audit.Event{
		CaptureID: captureID,
		EventType: eventType,
		Label:     label,
		Success:   success,
		Metadata: map[string]string{
			"compared": fmt.Sprint(match.Compared),
			"skipped":  fmt.Sprint(match.Skipped),
		},
	}
	if match.Matched {
		event.Metadata["distance"] = fmt.Sprintf("%.4f", match.Distance)
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.auditLogger.Log(ctx, event)
}
