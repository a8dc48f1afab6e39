package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attendance (
    id TEXT PRIMARY KEY,
    member_label TEXT NOT NULL,
    attended_on TEXT NOT NULL,
    attended_at TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (member_label, attended_on)
);

CREATE INDEX IF NOT EXISTS idx_attendance_attended_on ON attendance(attended_on);
`

// SQLiteAttendanceRepository is the single-file database ledger for kiosks
// without a Postgres server. Same table shape and uniqueness rule as the
// Postgres ledger, dates stored as text.
type SQLiteAttendanceRepository struct {
	db     *sql.DB
	clock  attendance.Clock
	logger *slog.Logger
}

var _ attendance.Ledger = (*SQLiteAttendanceRepository)(nil)

// OpenSQLiteAttendance opens (or creates) the database at path and applies
// the schema.
func OpenSQLiteAttendance(ctx context.Context, path string, clock attendance.Clock, logger *slog.Logger) (*SQLiteAttendanceRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.ErrLedgerUnavailable.WithError(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("open %s: %w", path, err))
	}
	// one writer at a time; concurrent callers queue on the pool
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("prepare %s: %w", path, err))
		}
	}

	if clock == nil {
		clock = attendance.SystemClock(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteAttendanceRepository{
		db:     db,
		clock:  clock,
		logger: logger.With("component", "sqlite_attendance"),
	}, nil
}

func (r *SQLiteAttendanceRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteAttendanceRepository) today() string {
	return r.clock().Format(domain.AttendanceDateLayout)
}

func (r *SQLiteAttendanceRepository) HasRecordToday(ctx context.Context, label string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM attendance WHERE member_label = ? AND attended_on = ?)",
		label, r.today(),
	).Scan(&exists)
	if err != nil {
		return false, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("check attendance for %s: %w", label, err))
	}
	return exists, nil
}

func (r *SQLiteAttendanceRepository) RecordIfAbsent(ctx context.Context, label string) (attendance.Result, error) {
	if err := domain.ValidateLabel(label); err != nil {
		return attendance.Result{}, err
	}

	now := r.clock()
	record := domain.NewAttendanceRecord(label, now)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (id, member_label, attended_on, attended_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (member_label, attended_on) DO NOTHING`,
		uuid.NewString(), record.Label, record.Date, record.Time, now.UnixNano(),
	)
	if err != nil {
		return attendance.Result{}, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("record attendance for %s: %w", label, err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return attendance.Result{}, domain.ErrLedgerUnavailable.WithError(err)
	}

	written := affected == 1
	if written {
		r.logger.DebugContext(ctx, "attendance recorded", "label", label, "date", record.Date, "time", record.Time)
	}

	return attendance.Result{Written: written, Record: record}, nil
}

// TodayLabels returns labels with a row dated today in insertion order.
func (r *SQLiteAttendanceRepository) TodayLabels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT member_label FROM attendance WHERE attended_on = ? ORDER BY rowid",
		r.today(),
	)
	if err != nil {
		return nil, domain.ErrLedgerUnavailable.WithError(fmt.Errorf("list attendance: %w", err))
	}
	defer func() { _ = rows.Close() }()

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
