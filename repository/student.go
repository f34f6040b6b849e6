package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"FACEATTEND/models"
)

// StudentStore menyimpan student terdaftar.
type StudentStore struct {
	db *gorm.DB
}

func NewStudentStore(db *gorm.DB) *StudentStore {
	return &StudentStore{db: db}
}

// ListStudents mengembalikan semua student urut enrollment (primary key naik).
func (s *StudentStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := s.db.WithContext(ctx).Order("id asc").Find(&students).Error; err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	return students, nil
}

// ListByName mengembalikan student urut abjad, tanpa encoding.
func (s *StudentStore) ListByName(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := s.db.WithContext(ctx).
		Select("id", "name", "created_at", "updated_at").
		Order("name asc").
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("query student names: %w", err)
	}
	return students, nil
}

// UpsertStudent menyimpan encoding atas nama name dan menimpa encoding lama.
// created bernilai true kalau baris baru dibuat.
func (s *StudentStore) UpsertStudent(ctx context.Context, name string, encoding []byte) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Student
		err := tx.Where("name = ?", name).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Student{Name: name, Encoding: encoding}).Error; err != nil {
				if isDuplicateKey(err) {
					return ErrDuplicate
				}
				return fmt.Errorf("insert student: %w", err)
			}
			created = true
			return nil
		case err != nil:
			return fmt.Errorf("query student: %w", err)
		}

		if err := tx.Model(&existing).Update("encoding", encoding).Error; err != nil {
			return fmt.Errorf("update student encoding: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicate) {
		// Enrollment lain dengan nama yang sama duluan insert; timpa saja.
		if err := s.db.WithContext(ctx).Model(&models.Student{}).
			Where("name = ?", name).
			Update("encoding", encoding).Error; err != nil {
			return false, fmt.Errorf("update student encoding: %w", err)
		}
		return false, nil
	}
	return created, err
}
