package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "attendance.db", cfg.Database.URL)
	assert.InDelta(t, 0.5, cfg.Matching.Threshold, 1e-9)
	assert.Equal(t, 128, cfg.Matching.Dim)
	assert.Equal(t, "Asia/Kolkata", cfg.Attendance.Location.String())
	assert.Equal(t, 20, cfg.Attendance.ListLimit)
	assert.Equal(t, 200, cfg.Attendance.ListMaxLimit)
	assert.Equal(t, 5*time.Minute, cfg.HTTP.CacheRefresh)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 85, cfg.Storage.JPEGQuality)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/attendance?parseTime=true")
	t.Setenv("MATCH_THRESHOLD", "0.42")
	t.Setenv("ATTENDANCE_TIMEZONE", "Asia/Jakarta")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CACHE_REFRESH_INTERVAL", "0s")
	t.Setenv("ATTENDANCE_LIST_LIMIT", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.InDelta(t, 0.42, cfg.Matching.Threshold, 1e-9)
	assert.Equal(t, "Asia/Jakarta", cfg.Attendance.Location.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Zero(t, cfg.HTTP.CacheRefresh)
	assert.Equal(t, 200, cfg.Attendance.ListLimit, "default page is clamped to the hard cap")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{"mysql without url", map[string]string{"DB_DRIVER": "mysql", "DATABASE_URL": ""}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"zero threshold", map[string]string{"DB_DRIVER": "sqlite", "MATCH_THRESHOLD": "0"}, "MATCH_THRESHOLD"},
		{"bad threshold", map[string]string{"DB_DRIVER": "sqlite", "MATCH_THRESHOLD": "strict"}, "MATCH_THRESHOLD"},
		{"bad zone", map[string]string{"DB_DRIVER": "sqlite", "ATTENDANCE_TIMEZONE": "Mars/Olympus"}, "ATTENDANCE_TIMEZONE"},
		{"negative dim", map[string]string{"DB_DRIVER": "sqlite", "DESCRIPTOR_DIM": "-1"}, "DESCRIPTOR_DIM"},
		{"bad interval", map[string]string{"DB_DRIVER": "sqlite", "CACHE_REFRESH_INTERVAL": "soon"}, "CACHE_REFRESH_INTERVAL"},
		{"quality too high", map[string]string{"DB_DRIVER": "sqlite", "JPEG_QUALITY": "101"}, "JPEG_QUALITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}
