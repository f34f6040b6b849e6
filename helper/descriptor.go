package helper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptBlob dipakai kalau encoding tersimpan bukan array float32 yang valid.
var ErrCorruptBlob = errors.New("corrupt descriptor blob")

// EncodeDescriptor menyimpan descriptor sebagai float32 little-endian, sama
// dengan hasil tobytes() numpy float32.
func EncodeDescriptor(vec []float64) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return buf
}

func DecodeDescriptor(blob []byte) ([]float64, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptBlob, len(blob))
	}
	vec := make([]float64, len(blob)/4)
	for i := range vec {
		f := float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:])))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: value %d is %v", ErrCorruptBlob, i, f)
		}
		vec[i] = f
	}
	return vec, nil
}
