// Package attendance records check-ins, at most one per member per day.
package attendance

import (
	"context"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// CSVHeader is the first row of the attendance file.
var CSVHeader = []string{"Nombre", "Fecha", "Hora"}

// Clock supplies the current time. The ledger's notion of "today" is the
// date of Clock() in the clock's location.
type Clock func() time.Time

// SystemClock returns a Clock reading wall time in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// Result reports what RecordIfAbsent did. Record is the row that was written,
// or the stamp that would have been written when Written is false.
type Result struct {
	Written bool
	Record  domain.AttendanceRecord
}

// Ledger is the attendance store. RecordIfAbsent is idempotent per (label, today).
type Ledger interface {
	HasRecordToday(ctx context.Context, label string) (bool, error)
	RecordIfAbsent(ctx context.Context, label string) (Result, error)
	TodayLabels(ctx context.Context) ([]string, error)
}
