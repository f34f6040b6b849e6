package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"FACEATTEND/models"
)

// AttendanceStore menyimpan data absensi.
type AttendanceStore struct {
	db *gorm.DB
}

func NewAttendanceStore(db *gorm.DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

// FindForDay mengembalikan absensi studentName pada hari dayKey, atau ErrNotFound.
func (s *AttendanceStore) FindForDay(ctx context.Context, studentName, dayKey string) (models.Attendance, error) {
	var row models.Attendance
	err := s.db.WithContext(ctx).
		Where("student_name = ? AND attend_date = ?", studentName, dayKey).
		Order("id asc").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Attendance{}, ErrNotFound
	}
	if err != nil {
		return models.Attendance{}, fmt.Errorf("query attendance: %w", err)
	}
	return row, nil
}

// Create meng-insert satu absensi. Absensi kedua untuk student dan hari yang
// sama ditolak unique index dan dilaporkan sebagai ErrDuplicate.
func (s *AttendanceStore) Create(ctx context.Context, row *models.Attendance) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// Recent menampilkan maksimal limit absensi, paling baru di atas.
func (s *AttendanceStore) Recent(ctx context.Context, limit int) ([]models.Attendance, error) {
	var rows []models.Attendance
	if err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query recent attendance: %w", err)
	}
	return rows, nil
}

func (s *AttendanceStore) ByID(ctx context.Context, id int64) (models.Attendance, error) {
	var row models.Attendance
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Attendance{}, ErrNotFound
	}
	if err != nil {
		return models.Attendance{}, fmt.Errorf("query attendance %d: %w", id, err)
	}
	return row, nil
}
