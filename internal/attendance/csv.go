package attendance

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// CSVLedger keeps attendance in an append-only CSV file. Rows are never
// rewritten; malformed rows are skipped when scanning.
type CSVLedger struct {
	path   string
	clock  Clock
	logger *slog.Logger

	// mu serialises check-then-append
	mu sync.Mutex
}

var _ Ledger = (*CSVLedger)(nil)

// NewCSVLedger opens the ledger at path, creating it with the header row
// when it does not exist yet.
func NewCSVLedger(path string, clock Clock, logger *slog.Logger) (*CSVLedger, error) {
	if clock == nil {
		clock = SystemClock(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &CSVLedger{
		path:   path,
		clock:  clock,
		logger: logger.With("component", "csv_ledger"),
	}

	if err := l.ensureFile(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *CSVLedger) ensureFile() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.ErrLedgerUnavailable.WithError(err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return domain.ErrLedgerUnavailable.WithError(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return domain.ErrLedgerUnavailable.WithError(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.ErrLedgerUnavailable.WithError(err)
	}

	l.logger.Info("attendance file created", "path", l.path)
	return nil
}

// Path returns the ledger file path.
func (l *CSVLedger) Path() string {
	return l.path
}

func (l *CSVLedger) HasRecordToday(ctx context.Context, label string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.hasRecord(ctx, label, l.today())
}

// RecordIfAbsent appends (label, today, now) unless label already has a row
// dated today.
func (l *CSVLedger) RecordIfAbsent(ctx context.Context, label string) (Result, error) {
	if err := domain.ValidateLabel(label); err != nil {
		return Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record := domain.NewAttendanceRecord(label, l.clock())

	exists, err := l.hasRecord(ctx, label, record.Date)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return Result{Written: false, Record: record}, nil
	}

	if err := l.append(record); err != nil {
		return Result{}, err
	}

	l.logger.Debug("attendance recorded", "label", label, "date", record.Date, "time", record.Time)

	return Result{Written: true, Record: record}, nil
}

// TodayLabels returns labels with a row dated today, in file order, once each.
func (l *CSVLedger) TodayLabels(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.today()
	seen := make(map[string]struct{})
	var labels []string

	err := l.scan(ctx, func(rec domain.AttendanceRecord) bool {
		if rec.Date != today {
			return true
		}
		if _, ok := seen[rec.Label]; !ok {
			seen[rec.Label] = struct{}{}
			labels = append(labels, rec.Label)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return labels, nil
}

func (l *CSVLedger) today() string {
	return l.clock().Format(domain.AttendanceDateLayout)
}

func (l *CSVLedger) hasRecord(ctx context.Context, label, date string) (bool, error) {
	found := false
	err := l.scan(ctx, func(rec domain.AttendanceRecord) bool {
		if rec.Label == label && rec.Date == date {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// scan calls fn for each well-formed row until fn returns false. A missing
// file scans as empty.
func (l *CSVLedger) scan(ctx context.Context, fn func(domain.AttendanceRecord) bool) error {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return domain.ErrLedgerUnavailable.WithError(err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, maxLineBytes)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, tooLong, err := readLine(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return domain.ErrLedgerUnavailable.WithError(fmt.Errorf("scan %s: %w", l.path, err))
		}
		lineNo++

		if tooLong {
			l.logger.Debug("skipping oversized attendance row", "line", lineNo)
			continue
		}

		rec, ok := parseLine(line)
		if !ok {
			if lineNo > 1 && strings.TrimSpace(line) != "" {
				l.logger.Debug("skipping malformed attendance row", "line", lineNo)
			}
			continue
		}
		if !fn(rec) {
			return nil
		}
	}
}

// maxLineBytes bounds one attendance row; longer lines are corrupt.
const maxLineBytes = 64 * 1024

// readLine returns the next line without its terminator. A line that does
// not fit the reader buffer is consumed whole and reported as tooLong.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	chunk, isPrefix, err := r.ReadLine()
	if err != nil {
		return "", false, err
	}
	if !isPrefix {
		return string(chunk), false, nil
	}

	for isPrefix {
		_, isPrefix, err = r.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", false, err
		}
	}
	return "", true, nil
}

// parseLine parses one CSV line. The header, lines that are not valid CSV
// and lines with fewer than 2 fields are rejected.
func parseLine(line string) (domain.AttendanceRecord, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return domain.AttendanceRecord{}, false
	}

	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil || len(fields) < 2 {
		return domain.AttendanceRecord{}, false
	}
	if fields[0] == CSVHeader[0] && fields[1] == CSVHeader[1] {
		return domain.AttendanceRecord{}, false
	}

	rec := domain.AttendanceRecord{Label: fields[0], Date: fields[1]}
	if len(fields) > 2 {
		rec.Time = fields[2]
	}
	return rec, true
}

func (l *CSVLedger) append(record domain.AttendanceRecord) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return domain.ErrLedgerUnavailable.WithError(err)
	}

	// a file edited by hand may lack the trailing newline
	if err := terminateLastLine(f); err != nil {
		_ = f.Close()
		return domain.ErrLedgerUnavailable.WithError(err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{record.Label, record.Date, record.Time}); err != nil {
		_ = f.Close()
		return domain.ErrLedgerUnavailable.WithError(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return domain.ErrLedgerUnavailable.WithError(err)
	}

	if err := f.Close(); err != nil {
		return domain.ErrLedgerUnavailable.WithError(err)
	}
	return nil
}

func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}
