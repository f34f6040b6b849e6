package models

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"FACEATTEND/config"
)

// logOutput tujuan log gorm; diganti di test.
var logOutput io.Writer = os.Stderr

// newLogger hanya mencatat warning ke atas. "record not found" bukan masalah:
// itu jalur normal untuk absen pertama di hari itu.
func newLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open membuka koneksi database sesuai DB_DRIVER.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Supaya pelanggaran unique index bisa dicek dengan gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         newLogger(logOutput),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.URL)
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.URL); dir != "." && cfg.URL != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
			}
		}
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite cuma boleh satu penulis dalam satu waktu.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate membuat atau menyesuaikan tabel students dan attendance.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Student{}, &Attendance{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
