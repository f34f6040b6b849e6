// Package gallery menyimpan descriptor semua student terdaftar di memori untuk matcher.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"FACEATTEND/helper"
	"FACEATTEND/logging"
	"FACEATTEND/matcher"
	"FACEATTEND/models"
)

// Source adalah penyimpanan permanen di belakang gallery.
type Source interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListByName(ctx context.Context) ([]models.Student, error)
	UpsertStudent(ctx context.Context, name string, encoding []byte) (bool, error)
}

// Gallery adalah cache (lebih sering dibaca daripada ditulis) berisi semua
// descriptor, urut sesuai urutan enrollment. Penulisan langsung ke Source lalu
// cache dimuat ulang.
type Gallery struct {
	source Source
	onSize func(n int)

	mu         sync.RWMutex
	candidates []matcher.Candidate
	loaded     bool
	gen        uint64

	loads singleflight.Group
}

type Option func(*Gallery)

// WithSizeObserver memanggil fn dengan jumlah student setiap kali cache terisi.
func WithSizeObserver(fn func(n int)) Option {
	return func(g *Gallery) { g.onSize = fn }
}

func New(source Source, opts ...Option) *Gallery {
	g := &Gallery{source: source}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Candidates mengembalikan descriptor dari cache, dimuat saat pertama kali dipakai.
// Slice hasilnya jangan diubah.
func (g *Gallery) Candidates(ctx context.Context) ([]matcher.Candidate, error) {
	g.mu.RLock()
	if g.loaded {
		c := g.candidates
		g.mu.RUnlock()
		return c, nil
	}
	g.mu.RUnlock()

	return g.load(ctx)
}

// Refresh memuat ulang cache dari Source.
func (g *Gallery) Refresh(ctx context.Context) error {
	_, err := g.load(ctx)
	return err
}

// load membaca Source sekali untuk semua pemanggil yang bersamaan. Load yang
// mulai sebelum Upsert tidak boleh menimpa cache sesudahnya.
func (g *Gallery) load(ctx context.Context) ([]matcher.Candidate, error) {
	v, err, _ := g.loads.Do("load", func() (any, error) {
		g.mu.RLock()
		gen := g.gen
		g.mu.RUnlock()

		students, err := g.source.ListStudents(ctx)
		if err != nil {
			return nil, fmt.Errorf("load gallery: %w", err)
		}

		candidates := make([]matcher.Candidate, 0, len(students))
		for _, st := range students {
			vec, err := helper.DecodeDescriptor(st.Encoding)
			if err != nil {
				// Baris tetap disimpan supaya matcher melaporkannya sebagai corrupt.
				logging.Error(ctx, "stored encoding is unreadable",
					slog.String("student", st.Name), logging.Err(err))
			}
			candidates = append(candidates, matcher.Candidate{Name: st.Name, Descriptor: vec})
		}

		g.mu.Lock()
		stored := g.gen == gen
		if stored {
			g.candidates = candidates
			g.loaded = true
		}
		g.mu.Unlock()
		if stored && g.onSize != nil {
			g.onSize(len(candidates))
		}
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]matcher.Candidate), nil
}

// Upsert menyimpan descriptor untuk name lalu memuat ulang cache sebelum
// return, jadi Candidates berikutnya dari pemanggil sudah melihat data baru.
// Kalau reload gagal, data tetap sudah tersimpan; cache dibiarkan kosong dan
// dimuat lagi pada Candidates berikutnya.
func (g *Gallery) Upsert(ctx context.Context, name string, descriptor []float64) (bool, error) {
	created, err := g.source.UpsertStudent(ctx, name, helper.EncodeDescriptor(descriptor))
	if err != nil {
		return false, err
	}
	g.invalidate()
	if err := g.Refresh(ctx); err != nil {
		logging.Warn(ctx, "gallery reload after enrollment failed",
			slog.String("student", name), logging.Err(err))
	}
	return created, nil
}

// Names mengambil daftar student urut abjad langsung dari Source.
func (g *Gallery) Names(ctx context.Context) ([]models.Student, error) {
	return g.source.ListByName(ctx)
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.candidates)
}

func (g *Gallery) invalidate() {
	g.mu.Lock()
	g.loaded = false
	g.gen++
	g.mu.Unlock()
	// Load yang mulai sebelum penulisan mungkin masih berjalan.
	g.loads.Forget("load")
}
