// Package enrollment membuat dan mengganti descriptor student dari foto contoh.
package enrollment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"FACEATTEND/extractor"
	"FACEATTEND/logging"
)

var (
	ErrNoFace         = errors.New("no face found")
	ErrNoEncoding     = errors.New("no face encoding found")
	ErrInvalidName    = errors.New("invalid student name")
	ErrWrongDimension = errors.New("descriptor has wrong dimensionality")
)

type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusFailed  Status = "error"
)

// Gallery tempat descriptor disimpan.
type Gallery interface {
	Upsert(ctx context.Context, name string, descriptor []float64) (bool, error)
}

// Observer diberi tahu setiap enrollment selesai (diimplementasikan oleh metrics).
type Observer interface {
	ObserveEnrollment(status string)
}

type Manager struct {
	gallery    Gallery
	extractor  extractor.Extractor
	dim        int
	archiveDir string
	observer   Observer

	archives sync.WaitGroup
}

type Option func(*Manager)

// WithArchiveDir menyalin setiap foto yang berhasil didaftarkan ke dir.
func WithArchiveDir(dir string) Option {
	return func(m *Manager) { m.archiveDir = dir }
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

func NewManager(g Gallery, ex extractor.Extractor, dim int, opts ...Option) *Manager {
	m := &Manager{gallery: g, extractor: ex, dim: dim}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnrollVector menyimpan descriptor atas nama name. Enrollment terakhir selalu menang.
func (m *Manager) EnrollVector(ctx context.Context, name string, descriptor []float64) (Status, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return m.observe(StatusFailed), fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if m.dim > 0 && len(descriptor) != m.dim {
		return m.observe(StatusFailed), fmt.Errorf("%w: got %d, want %d", ErrWrongDimension, len(descriptor), m.dim)
	}

	created, err := m.gallery.Upsert(ctx, name, descriptor)
	if err != nil {
		return m.observe(StatusFailed), fmt.Errorf("store descriptor for %q: %w", name, err)
	}
	if created {
		return m.observe(StatusCreated), nil
	}
	return m.observe(StatusUpdated), nil
}

// EnrollImage mendeteksi wajah di img dan mendaftarkan wajah pertama atas nama name.
// Kalau berhasil, foto diarsipkan di background (lihat Wait).
func (m *Manager) EnrollImage(ctx context.Context, name string, img []byte, filename string) (Status, error) {
	regions, err := m.extractor.DetectFaces(ctx, img)
	if err != nil {
		return m.observe(StatusFailed), fmt.Errorf("detect faces: %w", err)
	}
	if len(regions) == 0 {
		return m.observe(StatusFailed), ErrNoFace
	}

	// Foto enrollment harusnya berisi satu orang; wajah lain diabaikan.
	encodings, err := m.extractor.EncodeFaces(ctx, img, regions[:1])
	if err != nil {
		return m.observe(StatusFailed), fmt.Errorf("encode face: %w", err)
	}
	if len(encodings) == 0 || len(encodings[0]) == 0 {
		return m.observe(StatusFailed), ErrNoEncoding
	}

	status, err := m.EnrollVector(ctx, name, encodings[0])
	if err != nil {
		return status, err
	}
	m.archive(ctx, name, img, filename)
	return status, nil
}

// FileResult hasil enrollment satu file saat bulk.
type FileResult struct {
	File    string `json:"file"`
	Student string `json:"student"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}

// BulkEnroll mendaftarkan setiap file biasa di dir, urut nama file, dengan nama
// file tanpa ekstensi sebagai nama student. Gagal per file dicatat di hasil;
// hanya folder yang tidak bisa dibaca yang jadi error.
// progress (kalau tidak nil) dipanggil setelah setiap file.
func (m *Manager) BulkEnroll(ctx context.Context, dir string, progress func(FileResult)) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read students directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	results := make([]FileResult, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := m.enrollFile(ctx, filepath.Join(dir, entry.Name()))
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results, nil
}

func (m *Manager) enrollFile(ctx context.Context, path string) FileResult {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	res := FileResult{File: base, Student: name}

	img, err := os.ReadFile(path)
	if err != nil {
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}

	status, err := m.EnrollImage(ctx, name, img, base)
	res.Status = status
	if err != nil {
		res.Error = err.Error()
		logging.Warn(ctx, "enrollment failed", slog.String("file", path), logging.Err(err))
		return res
	}
	logging.Info(ctx, "student enrolled", slog.String("student", name), slog.String("status", string(status)))
	return res
}

// Wait menunggu sampai semua salinan arsip selesai ditulis.
func (m *Manager) Wait() {
	m.archives.Wait()
}

// archive menulis img ke <archiveDir>/<name>_<hash><ext>. Kalau gagal cukup
// di-log, enrollment-nya tetap sah.
func (m *Manager) archive(ctx context.Context, name string, img []byte, filename string) {
	if m.archiveDir == "" {
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	sum := blake2b.Sum256(img)
	dest := filepath.Join(m.archiveDir, fmt.Sprintf("%s_%s%s", sanitize(name), hex.EncodeToString(sum[:6]), ext))

	m.archives.Add(1)
	go func() {
		defer m.archives.Done()
		if err := os.MkdirAll(m.archiveDir, 0o755); err != nil {
			logging.Warn(ctx, "archive directory unavailable", slog.String("dir", m.archiveDir), logging.Err(err))
			return
		}
		if err := os.WriteFile(dest, img, 0o644); err != nil {
			logging.Warn(ctx, "archive enrollment image failed", slog.String("path", dest), logging.Err(err))
		}
	}()
}

func (m *Manager) observe(s Status) Status {
	if m.observer != nil {
		m.observer.ObserveEnrollment(string(s))
	}
	return s
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
