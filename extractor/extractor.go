// Package extractor talks to the face detection and encoding sidecar.
package extractor

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrUnavailable membungkus kegagalan jaringan dan jawaban 5xx dari sidecar.
	ErrUnavailable = errors.New("face extractor unavailable")
	// ErrBadResponse dipakai kalau jawaban sidecar melanggar kontrak, misalnya
	// jumlah encoding tidak sama dengan jumlah region.
	ErrBadResponse = errors.New("malformed face extractor response")
)

// Region adalah kotak wajah dengan urutan face_recognition (top, right, bottom, left).
type Region struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Extractor mendeteksi wajah dan mengubahnya menjadi descriptor. EncodeFaces
// mengembalikan tepat satu descriptor per region dengan urutan yang sama
// (encodings[i] milik regions[i]), atau slice kosong kalau tidak ada wajah yang
// bisa di-encode. Jumlah lain adalah ErrBadResponse.
type Extractor interface {
	DetectFaces(ctx context.Context, img []byte) ([]Region, error)
	EncodeFaces(ctx context.Context, img []byte, regions []Region) ([][]float64, error)
}
