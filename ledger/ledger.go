// Package ledger mencatat paling banyak satu absensi per student per hari.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FACEATTEND/helper"
	"FACEATTEND/logging"
	"FACEATTEND/models"
	"FACEATTEND/repository"
)

var (
	ErrStorageUnavailable = errors.New("attendance storage unavailable")
	ErrNotFound           = errors.New("attendance not found")
)

// Store adalah tabel absensi (hanya insert, tidak pernah update).
type Store interface {
	FindForDay(ctx context.Context, studentName, dayKey string) (models.Attendance, error)
	Create(ctx context.Context, row *models.Attendance) error
	Recent(ctx context.Context, limit int) ([]models.Attendance, error)
	ByID(ctx context.Context, id int64) (models.Attendance, error)
}

// Result dari RecordIfAbsent. Kalau Created, Event adalah baris baru; kalau
// tidak, baris yang sudah ada untuk hari itu.
type Result struct {
	Created bool
	Event   models.Attendance
}

type Ledger struct {
	store Store
	loc   *time.Location
	locks *keyLock
}

func New(store Store, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{store: store, loc: loc, locks: newKeyLock()}
}

func (l *Ledger) Location() *time.Location {
	return l.loc
}

// PhotoFunc menghasilkan foto yang disimpan bersama event baru. Hanya
// dipanggil kalau event benar-benar dibuat; boleh nil.
type PhotoFunc func() []byte

// RecordIfAbsent membuat event untuk studentName pada waktu now, kecuali sudah
// ada event di hari (kalender) yang sama menurut zona ledger. Panggilan untuk
// student dan hari yang sama diserialkan di dalam proses; antar proses, unique
// index (student_name, attend_date) menolak yang kalah, lalu dilaporkan
// sebagai duplikat dari pemenangnya.
func (l *Ledger) RecordIfAbsent(ctx context.Context, studentName string, now time.Time, photo PhotoFunc) (Result, error) {
	dayKey := helper.DayKey(now, l.loc)

	unlock := l.locks.Lock(studentName + "\x00" + dayKey)
	defer unlock()

	existing, err := l.store.FindForDay(ctx, studentName, dayKey)
	switch {
	case err == nil:
		return Result{Created: false, Event: existing}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	row := models.Attendance{
		StudentName: studentName,
		AttendDate:  dayKey,
		Timestamp:   now.In(l.loc),
	}
	if photo != nil {
		row.Photo = photo()
	}
	err = l.store.Create(ctx, &row)
	switch {
	case err == nil:
		logging.Info(ctx, "attendance recorded",
			slog.String("student", studentName), slog.String("day", dayKey), slog.Int64("id", row.Id))
		return Result{Created: true, Event: row}, nil
	case errors.Is(err, repository.ErrDuplicate):
		// Kalah balapan dengan proses lain; pakai baris milik pemenang.
		winner, ferr := l.store.FindForDay(ctx, studentName, dayKey)
		if ferr != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, ferr)
		}
		return Result{Created: false, Event: winner}, nil
	default:
		return Result{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}

// Recent menampilkan maksimal limit absensi, paling baru di atas.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.Attendance, error) {
	rows, err := l.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return rows, nil
}

// Photo mengembalikan foto untuk absensi id. Absensi yang tidak ada dan
// absensi tanpa foto sama-sama ErrNotFound.
func (l *Ledger) Photo(ctx context.Context, id int64) ([]byte, error) {
	row, err := l.store.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !row.HasPhoto() {
		return nil, ErrNotFound
	}
	return row.Photo, nil
}
