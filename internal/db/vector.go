package db

import (
	"encoding/binary"
	"fmt"
	"math"
)

// VectorToBytes encodes float32 values as the little-endian blob FT.SEARCH
// and HASH vector fields expect (4 bytes per value).
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// BytesToVector decodes a little-endian float32 blob.
func BytesToVector(s string) ([]float32, error) {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
