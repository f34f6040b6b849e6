package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"FACEATTEND/config"
	"FACEATTEND/enrollment"
	"FACEATTEND/extractor"
	"FACEATTEND/gallery"
	"FACEATTEND/ledger"
	"FACEATTEND/logging"
	"FACEATTEND/matcher"
	"FACEATTEND/metrics"
	"FACEATTEND/models"
	"FACEATTEND/recognition"
	"FACEATTEND/repository"
)

// app berisi semua komponen yang dibangun dari satu Config.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	gallery    *gallery.Gallery
	ledger     *ledger.Ledger
	enrollment *enrollment.Manager
	recognizer *recognition.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	db, err := models.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := models.Migrate(db); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g := gallery.New(repository.NewStudentStore(db), gallery.WithSizeObserver(m.SetGallerySize))
	l := ledger.New(repository.NewAttendanceStore(db), cfg.Attendance.Location)
	ex := extractor.NewClient(cfg.Extractor.URL, cfg.Extractor.Timeout)

	return &app{
		cfg:      cfg,
		db:       db,
		registry: reg,
		metrics:  m,
		gallery:  g,
		ledger:   l,
		enrollment: enrollment.NewManager(g, ex, cfg.Matching.Dim,
			enrollment.WithArchiveDir(cfg.Storage.CaptureDir),
			enrollment.WithObserver(m)),
		recognizer: recognition.New(ex, g, matcher.New(cfg.Matching.Threshold, cfg.Matching.Dim), l, cfg.Storage.JPEGQuality, m),
	}, nil
}

func (a *app) Close() {
	a.enrollment.Wait()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
