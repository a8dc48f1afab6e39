package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// AttendanceRepository is the PostgreSQL ledger. The (member_label,
// attended_on) unique constraint enforces one row per member per day, so
// several stations can share the table.
type AttendanceRepository struct {
	pool   PgxPool
	clock  attendance.Clock
	logger *slog.Logger
}

var _ attendance.Ledger = (*AttendanceRepository)(nil)

func NewAttendanceRepository(pool PgxPool, clock attendance.Clock, logger *slog.Logger) *AttendanceRepository {
	if clock == nil {
		clock = attendance.SystemClock(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceRepository{
		pool:   pool,
		clock:  clock,
		logger: logger.With("component", "attendance_repository"),
	}
}

func (r *AttendanceRepository) today() string {
	return r.clock().Format(domain.AttendanceDateLayout)
}

func (r *AttendanceRepository) HasRecordToday(ctx context.Context, label string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance
			WHERE member_label = $1 AND attended_on = $2::date
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, label, r.today()).Scan(&exists); err != nil {
		return false, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("check attendance for %s: %w", label, err))
	}

	return exists, nil
}

// RecordIfAbsent inserts today's row for label. The insert is a no-op when
// the row already exists; Written tells which case happened.
func (r *AttendanceRepository) RecordIfAbsent(ctx context.Context, label string) (attendance.Result, error) {
	if err := domain.ValidateLabel(label); err != nil {
		return attendance.Result{}, err
	}

	query := `
		INSERT INTO attendance (id, member_label, attended_on, attended_at)
		VALUES ($1, $2, $3::date, $4::time)
		ON CONFLICT (member_label, attended_on) DO NOTHING
	`

	record := domain.NewAttendanceRecord(label, r.clock())

	tag, err := r.pool.Exec(ctx, query, uuid.New(), record.Label, record.Date, record.Time)
	if err != nil {
		return attendance.Result{}, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("record attendance for %s: %w", label, err))
	}

	written := tag.RowsAffected() == 1
	if written {
		r.logger.DebugContext(ctx, "attendance recorded", "label", label, "date", record.Date, "time", record.Time)
	}

	return attendance.Result{Written: written, Record: record}, nil
}

// TodayLabels returns labels with a row dated today, oldest first.
func (r *AttendanceRepository) TodayLabels(ctx context.Context) ([]string, error) {
	query := `
		SELECT member_label
		FROM attendance
		WHERE attended_on = $1::date
		ORDER BY created_at, attended_at
	`

	rows, err := r.pool.Query(ctx, query, r.today())
	if err != nil {
		return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("list attendance: %w", err))
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("scan attendance: %w", err))
		}
		labels = append(labels, label)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("iterate attendance: %w", err))
	}

	return labels, nil
}
