package domain

import "time"

const (
	// AttendanceDateLayout is the ledger date format (YYYY-MM-DD).
	AttendanceDateLayout = "2006-01-02"
	// AttendanceTimeLayout is the ledger time-of-day format (HH:MM:SS).
	AttendanceTimeLayout = "15:04:05"
)

// AttendanceRecord is one check-in. At most one exists per (Label, Date).
type AttendanceRecord struct {
	Label string `json:"label"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// NewAttendanceRecord stamps label with the date and time of now.
func NewAttendanceRecord(label string, now time.Time) AttendanceRecord {
	return AttendanceRecord{
		Label: label,
		Date:  now.Format(AttendanceDateLayout),
		Time:  now.Format(AttendanceTimeLayout),
	}
}
