package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FACEATTEND/config"
	"FACEATTEND/models"
	"FACEATTEND/repository"
)

type memoryStore struct {
	mu     sync.Mutex
	rows   []models.Attendance
	nextID int64
	err    error
}

func (m *memoryStore) FindForDay(ctx context.Context, name, day string) (models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Attendance{}, m.err
	}
	for _, r := range m.rows {
		if r.StudentName == name && r.AttendDate == day {
			return r, nil
		}
	}
	return models.Attendance{}, repository.ErrNotFound
}

func (m *memoryStore) Create(ctx context.Context, row *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range m.rows {
		if r.StudentName == row.StudentName && r.AttendDate == row.AttendDate {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	row.Id = m.nextID
	m.rows = append(m.rows, *row)
	return nil
}

func (m *memoryStore) Recent(ctx context.Context, limit int) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Attendance
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

func (m *memoryStore) ByID(ctx context.Context, id int64) (models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Attendance{}, m.err
	}
	for _, r := range m.rows {
		if r.Id == id {
			return r, nil
		}
	}
	return models.Attendance{}, repository.ErrNotFound
}

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func photoOf(s string) PhotoFunc {
	return func() []byte { return []byte(s) }
}

func TestRecordIfAbsent_PhotoOnlyBuiltForNewEvent(t *testing.T) {
	l := New(&memoryStore{}, time.UTC)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	calls := 0
	photo := func() []byte {
		calls++
		return []byte("jpeg")
	}

	first, err := l.RecordIfAbsent(ctx, "Alice", now, photo)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, []byte("jpeg"), first.Event.Photo)

	second, err := l.RecordIfAbsent(ctx, "Alice", now.Add(time.Hour), photo)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, 1, calls)
}

func TestRecordIfAbsent_SameDayIsIdempotent(t *testing.T) {
	loc := ist(t)
	l := New(&memoryStore{}, loc)
	ctx := context.Background()

	t1 := time.Date(2024, 3, 10, 9, 15, 0, 0, loc)
	t2 := time.Date(2024, 3, 10, 17, 45, 0, 0, loc)

	first, err := l.RecordIfAbsent(ctx, "Alice", t1, photoOf("photo"))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "2024-03-10", first.Event.AttendDate)

	second, err := l.RecordIfAbsent(ctx, "Alice", t2, nil)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Event, second.Event)
}

func TestRecordIfAbsent_DayBoundary(t *testing.T) {
	loc := ist(t)
	l := New(&memoryStore{}, loc)
	ctx := context.Background()

	late := time.Date(2024, 3, 10, 23, 59, 59, 999999000, loc)
	early := time.Date(2024, 3, 11, 0, 0, 0, 1000, loc)

	a, err := l.RecordIfAbsent(ctx, "Alice", late, nil)
	require.NoError(t, err)
	b, err := l.RecordIfAbsent(ctx, "Alice", early, nil)
	require.NoError(t, err)

	assert.True(t, a.Created)
	assert.True(t, b.Created)
	assert.NotEqual(t, a.Event.Id, b.Event.Id)
}

func TestRecordIfAbsent_UsesConfiguredZoneNotUTC(t *testing.T) {
	loc := ist(t)
	l := New(&memoryStore{}, loc)
	ctx := context.Background()

	// 20:00 UTC tanggal 9 dan 03:00 UTC tanggal 10 sama-sama tanggal 10 di IST.
	a, err := l.RecordIfAbsent(ctx, "Alice", time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	b, err := l.RecordIfAbsent(ctx, "Alice", time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.True(t, a.Created)
	assert.False(t, b.Created)
	assert.Equal(t, loc, a.Event.Timestamp.Location())
}

func TestRecordIfAbsent_DifferentStudentsSameDay(t *testing.T) {
	l := New(&memoryStore{}, time.UTC)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	a, err := l.RecordIfAbsent(context.Background(), "Alice", now, nil)
	require.NoError(t, err)
	b, err := l.RecordIfAbsent(context.Background(), "Bob", now, nil)
	require.NoError(t, err)
	assert.True(t, a.Created)
	assert.True(t, b.Created)
}

func TestRecordIfAbsent_Concurrent(t *testing.T) {
	const n = 32
	store := &memoryStore{}
	l := New(store, time.UTC)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.RecordIfAbsent(context.Background(), "Alice", now.Add(time.Duration(i)*time.Second), nil)
			assert.NoError(t, err)
			if res.Created {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.Len(t, store.rows, 1)
	assert.Zero(t, l.locks.size())
}

// racingStore meniru proses lain yang insert di antara cek dan insert kita.
type racingStore struct {
	memoryStore
	checks int
}

func (r *racingStore) FindForDay(ctx context.Context, name, day string) (models.Attendance, error) {
	r.checks++
	if r.checks == 1 {
		_ = r.memoryStore.Create(ctx, &models.Attendance{StudentName: name, AttendDate: day})
		return models.Attendance{}, repository.ErrNotFound
	}
	return r.memoryStore.FindForDay(ctx, name, day)
}

func TestRecordIfAbsent_LostRaceIsDuplicate(t *testing.T) {
	store := &racingStore{}
	l := New(store, time.UTC)

	res, err := l.RecordIfAbsent(context.Background(), "Alice", time.Now(), nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.EqualValues(t, 1, res.Event.Id)
}

func TestRecordIfAbsent_StorageUnavailable(t *testing.T) {
	store := &memoryStore{err: errors.New("dial tcp: connection refused")}
	l := New(store, time.UTC)

	_, err := l.RecordIfAbsent(context.Background(), "Alice", time.Now(), nil)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Empty(t, store.rows)

	_, err = l.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestPhoto(t *testing.T) {
	l := New(&memoryStore{}, time.UTC)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	withPhoto, err := l.RecordIfAbsent(ctx, "Alice", now, photoOf("jpeg"))
	require.NoError(t, err)
	withoutPhoto, err := l.RecordIfAbsent(ctx, "Bob", now, nil)
	require.NoError(t, err)

	photo, err := l.Photo(ctx, withPhoto.Event.Id)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), photo)

	_, err = l.Photo(ctx, withoutPhoto.Event.Id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Photo(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecent(t *testing.T) {
	l := New(&memoryStore{}, time.UTC)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, n := range []string{"A", "B", "C"} {
		_, err := l.RecordIfAbsent(ctx, n, now, nil)
		require.NoError(t, err)
	}

	rows, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].StudentName)
	assert.Equal(t, "B", rows[1].StudentName)
}

func TestRecordIfAbsent_SQLiteConcurrent(t *testing.T) {
	db, err := models.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "ledger.sqlite"),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	l := New(repository.NewAttendanceStore(db), ist(t))
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, l.Location())

	const n = 8
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.RecordIfAbsent(context.Background(), "Alice", now, nil)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		if r.Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, db.Model(&models.Attendance{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
