// Package matcher mencari student terdaftar yang paling dekat dengan descriptor query.
package matcher

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold adalah toleransi dlib/face_recognition (0.6) yang diperketat.
const DefaultThreshold = 0.5

var (
	ErrDimensionMismatch = errors.New("query descriptor has wrong dimensionality")
	ErrInvalidQuery      = errors.New("query descriptor has non-finite values")
	ErrCorruptDescriptor = errors.New("stored descriptor is corrupt")
)

type Candidate struct {
	Name       string
	Descriptor []float64
}

// Result hasil satu kali scan. Name kosong kalau tidak ada yang lolos threshold.
// Distance adalah jarak terbaik (lolos atau tidak), +Inf kalau tidak ada
// kandidat yang bisa dibandingkan.
type Result struct {
	Name     string
	Distance float64
	Corrupt  []error
}

func (r Result) Matched() bool {
	return r.Name != ""
}

type Matcher struct {
	Threshold float64
	// Dim panjang descriptor yang diharapkan. 0 berarti ikut panjang query.
	Dim int
}

func New(threshold float64, dim int) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if dim < 0 {
		dim = 0
	}
	return Matcher{Threshold: threshold, Dim: dim}
}

// FindBestMatch men-scan kandidat sesuai urutan slice dan mengembalikan yang
// terdekat (jarak Euclidean) kalau jaraknya lebih kecil dari threshold.
// Kalau jaraknya sama, kandidat yang lebih awal menang.
//
// Query yang salah ukuran atau berisi NaN/Inf adalah kesalahan input dan
// dikembalikan sebagai error, tanpa menyentuh kandidat. Kandidat yang salah
// ukuran atau jaraknya tidak terhingga dilewati dan dicatat di Result.Corrupt.
func (m Matcher) FindBestMatch(query []float64, candidates []Candidate) (Result, error) {
	dim := m.Dim
	if dim == 0 {
		dim = len(query)
	}
	if len(query) == 0 || len(query) != dim {
		return Result{}, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(query), dim)
	}
	for _, v := range query {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, ErrInvalidQuery
		}
	}

	res := Result{Distance: math.Inf(1)}
	best := -1
	for i, c := range candidates {
		if len(c.Descriptor) != dim {
			res.Corrupt = append(res.Corrupt, fmt.Errorf("%w: %q has %d values, want %d",
				ErrCorruptDescriptor, c.Name, len(c.Descriptor), dim))
			continue
		}
		d := floats.Distance(query, c.Descriptor, 2)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			res.Corrupt = append(res.Corrupt, fmt.Errorf("%w: %q has non-finite values", ErrCorruptDescriptor, c.Name))
			continue
		}
		if d < res.Distance {
			res.Distance = d
			best = i
		}
	}

	if best >= 0 && res.Distance < m.Threshold {
		res.Name = candidates[best].Name
	}
	return res, nil
}
