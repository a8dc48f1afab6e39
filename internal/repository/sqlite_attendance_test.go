package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

func newSQLiteRepo(t *testing.T, path string, now *time.Time) *SQLiteAttendanceRepository {
	t.Helper()
	repo, err := OpenSQLiteAttendance(context.Background(), path, func() time.Time { return *now }, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteAttendance_RecordIfAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	repo := newSQLiteRepo(t, filepath.Join(t.TempDir(), "asistencia.db"), &now)

	res, err := repo.RecordIfAbsent(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, domain.AttendanceRecord{Label: "ana_lopez", Date: "2025-03-10", Time: "09:30:00"}, res.Record)

	now = now.Add(2 * time.Hour)
	res, err = repo.RecordIfAbsent(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.False(t, res.Written)

	has, err := repo.HasRecordToday(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasRecordToday(ctx, "luis_diaz")
	require.NoError(t, err)
	assert.False(t, has)

	now = now.Add(24 * time.Hour)
	has, err = repo.HasRecordToday(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.False(t, has)

	res, err = repo.RecordIfAbsent(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.True(t, res.Written)
}

func TestSQLiteAttendance_InvalidLabel(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	repo := newSQLiteRepo(t, filepath.Join(t.TempDir(), "asistencia.db"), &now)

	_, err := repo.RecordIfAbsent(context.Background(), "ana,lopez")
	require.ErrorIs(t, err, domain.ErrInvalidLabel)
}

func TestSQLiteAttendance_TodayLabelsInOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	repo := newSQLiteRepo(t, filepath.Join(t.TempDir(), "asistencia.db"), &now)

	for _, label := range []string{"luis_diaz", "ana_lopez", "luis_diaz", "marta_ruiz"} {
		_, err := repo.RecordIfAbsent(ctx, label)
		require.NoError(t, err)
	}

	labels, err := repo.TodayLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"luis_diaz", "ana_lopez", "marta_ruiz"}, labels)
}

func TestSQLiteAttendance_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "asistencia.db")
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	first, err := OpenSQLiteAttendance(ctx, path, func() time.Time { return now }, nil)
	require.NoError(t, err)
	_, err = first.RecordIfAbsent(ctx, "ana_lopez")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newSQLiteRepo(t, path, &now)
	res, err := second.RecordIfAbsent(ctx, "ana_lopez")
	require.NoError(t, err)
	assert.False(t, res.Written)
}

func TestSQLiteAttendance_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	repo := newSQLiteRepo(t, filepath.Join(t.TempDir(), "asistencia.db"), &now)

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.RecordIfAbsent(ctx, "ana_lopez")
			assert.NoError(t, err)
			if res.Written {
				mu.Lock()
				written++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, written)
	labels, err := repo.TodayLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana_lopez"}, labels)
}
