package common

import (
	"math"
	"unsafe"
)

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// WrapAngle wraps an angle in radians into [0, 2π).
// NaN and infinite inputs collapse to 0.
//
// Parameters:
//   - a: the angle in radians
//
// Returns:
//   - float64: the equivalent angle in [0, 2π)
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// math.Mod of a tiny negative value plus 2π can round up to exactly 2π.
	if a >= TwoPi {
		a = 0
	}
	return a
}

// WrapSignedAngle wraps an angle in radians into [-π, π).
//
// Parameters:
//   - a: the angle in radians
//
// Returns:
//   - float64: the equivalent angle in [-π, π)
func WrapSignedAngle(a float64) float64 {
	if a >= -math.Pi && a < math.Pi {
		return a
	}
	w := WrapAngle(a + math.Pi)
	return w - math.Pi
}

// ShortestAngleDelta returns the signed rotation that takes from to to along the shorter arc.
// The result lies in (-π, π]; a half-turn resolves to +π.
//
// Parameters:
//   - from: the start angle in radians
//   - to: the end angle in radians
//
// Returns:
//   - float64: signed delta in radians
func ShortestAngleDelta(from, to float64) float64 {
	d := WrapSignedAngle(to - from)
	if d <= -math.Pi {
		d += TwoPi
	}
	return d
}

// Clamp limits v to the closed interval [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: lower bound
//   - hi: upper bound
//
// Returns:
//   - float64: the clamped value
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b.
//
// Parameters:
//   - a: start value
//   - b: end value
//   - t: interpolation factor, usually in [0, 1]
//
// Returns:
//   - float64: a + (b-a)*t
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
