// Package recognition mengubah satu foto dari kamera menjadi paling banyak satu absensi.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FACEATTEND/extractor"
	"FACEATTEND/helper"
	"FACEATTEND/ledger"
	"FACEATTEND/logging"
	"FACEATTEND/matcher"
	"FACEATTEND/models"
)

type Kind string

const (
	NoFaceDetected       Kind = "no_face_detected"
	NoEncodingAvailable  Kind = "no_encoding"
	NoEnrolledIdentities Kind = "no_enrolled_students"
	Duplicate            Kind = "duplicate"
	Success              Kind = "success"
	Unrecognized         Kind = "unrecognized"
)

// Outcome adalah jawaban untuk satu foto. Student, Event dan Distance diisi
// untuk Duplicate dan Success; untuk Duplicate, Event adalah baris yang sudah ada.
type Outcome struct {
	Kind     Kind
	Student  string
	Event    *models.Attendance
	Distance float64
	// Corrupt = jumlah descriptor tersimpan yang tidak bisa dibandingkan.
	Corrupt int
}

type Candidates interface {
	Candidates(ctx context.Context) ([]matcher.Candidate, error)
}

type Recorder interface {
	RecordIfAbsent(ctx context.Context, studentName string, now time.Time, photo ledger.PhotoFunc) (ledger.Result, error)
}

type Observer interface {
	ObserveOutcome(outcome string, start time.Time)
	ObserveCorrupt(n int)
}

type Orchestrator struct {
	extractor   extractor.Extractor
	gallery     Candidates
	matcher     matcher.Matcher
	ledger      Recorder
	jpegQuality int
	observer    Observer
}

func New(ex extractor.Extractor, g Candidates, m matcher.Matcher, l Recorder, jpegQuality int, obs Observer) *Orchestrator {
	return &Orchestrator{
		extractor:   ex,
		gallery:     g,
		matcher:     m,
		ledger:      l,
		jpegQuality: jpegQuality,
		observer:    obs,
	}
}

// Recognize memeriksa wajah sesuai urutan deteksi dan berhenti di wajah
// pertama yang cocok, jadi satu foto hanya mengabsen satu student. Hasil
// keputusan dikembalikan sebagai nilai; hanya kegagalan extractor dan
// storage yang jadi error.
func (o *Orchestrator) Recognize(ctx context.Context, img []byte, now time.Time) (Outcome, error) {
	start := time.Now()
	out, err := o.recognize(ctx, img, now)
	if err == nil && o.observer != nil {
		o.observer.ObserveOutcome(string(out.Kind), start)
	}
	return out, err
}

func (o *Orchestrator) recognize(ctx context.Context, img []byte, now time.Time) (Outcome, error) {
	// 1. Deteksi wajah
	regions, err := o.extractor.DetectFaces(ctx, img)
	if err != nil {
		return Outcome{}, fmt.Errorf("detect faces: %w", err)
	}
	if len(regions) == 0 {
		return Outcome{Kind: NoFaceDetected}, nil
	}

	// 2. Encoding, satu per region dengan urutan yang sama
	encodings, err := o.extractor.EncodeFaces(ctx, img, regions)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode faces: %w", err)
	}
	if len(encodings) == 0 {
		return Outcome{Kind: NoEncodingAvailable}, nil
	}
	if len(encodings) != len(regions) {
		return Outcome{}, fmt.Errorf("encode faces: %w: %d encodings for %d regions",
			extractor.ErrBadResponse, len(encodings), len(regions))
	}

	// 3. Ambil semua student terdaftar
	candidates, err := o.gallery.Candidates(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ledger.ErrStorageUnavailable, err)
	}
	if len(candidates) == 0 {
		return Outcome{Kind: NoEnrolledIdentities}, nil
	}

	// 4. Wajah pertama yang cocok menang, sisanya tidak diproses.
	corrupt, compared := 0, 0
	for i, enc := range encodings {
		res, err := o.matcher.FindBestMatch(enc, candidates)
		if err != nil {
			logging.Warn(ctx, "skipping face with unusable descriptor", slog.Int("face", i), logging.Err(err))
			continue
		}
		compared++
		if corrupt == 0 && len(res.Corrupt) > 0 {
			corrupt = len(res.Corrupt)
			o.reportCorrupt(ctx, res.Corrupt)
		}
		if !res.Matched() {
			logging.Debug(ctx, "face not recognized", slog.Int("face", i), slog.Float64("best_distance", res.Distance))
			continue
		}

		region := regions[i]
		rec, err := o.ledger.RecordIfAbsent(ctx, res.Name, now, func() []byte {
			return o.cropFace(ctx, img, region)
		})
		if err != nil {
			return Outcome{}, err
		}

		out := Outcome{Kind: Duplicate, Student: res.Name, Event: &rec.Event, Distance: res.Distance, Corrupt: corrupt}
		if rec.Created {
			out.Kind = Success
		}
		return out, nil
	}

	if compared == 0 {
		return Outcome{Kind: NoEncodingAvailable}, nil
	}
	return Outcome{Kind: Unrecognized, Corrupt: corrupt}, nil
}

// cropFace menghasilkan potongan JPEG untuk disimpan bersama absensi, atau nil
// kalau gambar tidak bisa di-decode (foto bersifat opsional).
func (o *Orchestrator) cropFace(ctx context.Context, img []byte, r extractor.Region) []byte {
	photo, err := helper.CropJPEG(img, r.Rect(), o.jpegQuality)
	if err != nil {
		logging.Warn(ctx, "could not crop face, storing event without photo", logging.Err(err))
		return nil
	}
	return photo
}

func (o *Orchestrator) reportCorrupt(ctx context.Context, errs []error) {
	for _, err := range errs {
		logging.Error(ctx, "stored descriptor skipped", logging.Err(err))
	}
	if o.observer != nil {
		o.observer.ObserveCorrupt(len(errs))
	}
}
