package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	defaultSQLitePath = "attendance.db"
)

// Config menyimpan semua pengaturan aplikasi, dibaca sekali saat start.
type Config struct {
	Database   DatabaseConfig
	Matching   MatchingConfig
	Extractor  ExtractorConfig
	Storage    StorageConfig
	HTTP       HTTPConfig
	Log        LogConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Driver string // mysql or sqlite
	URL    string // DSN; file path for sqlite
}

type MatchingConfig struct {
	Threshold float64 // strict upper bound on Euclidean distance
	Dim       int     // descriptor length, 128 for dlib-style encoders
}

type ExtractorConfig struct {
	URL     string
	Timeout time.Duration
}

type StorageConfig struct {
	StudentsDir string // bulk enrollment source, one image per student
	CaptureDir  string // archived enrollment images
	JPEGQuality int
}

type HTTPConfig struct {
	Port         int
	CORSOrigins  []string
	CacheRefresh time.Duration // 0 disables the gallery refresh job
}

type LogConfig struct {
	Level  string
	Format string
}

type AttendanceConfig struct {
	Location     *time.Location
	ListLimit    int
	ListMaxLimit int
}

// Load membaca .env (kalau ada) lalu environment variable.
func Load() (*Config, error) {
	// 1. File .env cuma ada di lokal. Di server biasanya tidak ada, jadi error-nya diabaikan.
	_ = godotenv.Load()

	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(envString("DB_DRIVER", DriverMySQL)),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Matching: MatchingConfig{
			Threshold: p.float("MATCH_THRESHOLD", 0.5),
			Dim:       p.positiveInt("DESCRIPTOR_DIM", 128),
		},
		Extractor: ExtractorConfig{
			URL:     envString("EXTRACTOR_URL", "http://localhost:8000"),
			Timeout: p.duration("EXTRACTOR_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			StudentsDir: envString("STUDENTS_DIR", "students"),
			CaptureDir:  envString("CAPTURE_DIR", "captured_images"),
			JPEGQuality: p.positiveInt("JPEG_QUALITY", 85),
		},
		HTTP: HTTPConfig{
			Port:         p.positiveInt("PORT", 8080),
			CORSOrigins:  splitList(envString("CORS_ORIGINS", "*")),
			CacheRefresh: p.duration("CACHE_REFRESH_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Attendance: AttendanceConfig{
			ListLimit:    p.positiveInt("ATTENDANCE_LIST_LIMIT", 20),
			ListMaxLimit: p.positiveInt("ATTENDANCE_LIST_MAX", 200),
		},
	}

	// 2. Zona waktu menentukan batas "hari ini" untuk absensi.
	tz := envString("ATTENDANCE_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("ATTENDANCE_TIMEZONE: %w", err))
	}
	cfg.Attendance.Location = loc

	// 3. Validasi
	switch cfg.Database.Driver {
	case DriverMySQL:
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the mysql driver"))
		}
	case DriverSQLite:
		if cfg.Database.URL == "" {
			cfg.Database.URL = defaultSQLitePath
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.Database.Driver))
	}
	if cfg.Matching.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD: must be greater than zero, got %v", cfg.Matching.Threshold))
	}
	if cfg.Storage.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG_QUALITY: must be at most 100, got %d", cfg.Storage.JPEGQuality))
	}
	if cfg.Attendance.ListLimit > cfg.Attendance.ListMaxLimit {
		cfg.Attendance.ListLimit = cfg.Attendance.ListMaxLimit
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser mengumpulkan semua key yang tidak valid, tidak berhenti di yang pertama.
type parser struct {
	errs *[]error
}

func (p parser) positiveInt(key string, defaultVal int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected a positive integer, got %q", key, s))
		return defaultVal
	}
	return n
}

func (p parser) float(key string, defaultVal float64) float64 {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected a number, got %q", key, s))
		return defaultVal
	}
	return f
}

func (p parser) duration(key string, defaultVal time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected a non-negative duration, got %q", key, s))
		return defaultVal
	}
	return d
}
