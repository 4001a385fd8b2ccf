// Package gocvbackend is a reference implementation of gpu.Buffer2D backed
// by gocv.io/x/gocv. A Projection's pitched detector image (spec §3) is
// represented as a single-channel float32 gocv.Mat, with Mat.Step() giving
// the pitch and Mat.DataPtrFloat32() giving the row-major backing slice.
//
// This is a host-resident stand-in for the out-of-scope CUDA pitched
// device buffer (spec §1); it lets the pipeline and its tests run without
// a GPU runtime wrapper while keeping the same Buffer2D contract a real
// CUDA-backed implementation would satisfy.
package gocvbackend

import (
	"fmt"
	"sync/atomic"

	cv "gocv.io/x/gocv"

	"github.com/gocbct/fdkrecon/gpu"
)

// Buffer2D wraps a single-channel float32 gocv.Mat.
type Buffer2D struct {
	mat      cv.Mat
	device   int
	data     []float32 // cached DataPtrFloat32() view
	pitch    int        // elements per row, not bytes
	released atomic.Bool
}

var _ gpu.Buffer2D = (*Buffer2D)(nil)

// NewBuffer2D allocates a zeroed width x height float32 buffer on the
// given (logical) device id.
func NewBuffer2D(device, width, height int) (*Buffer2D, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gocvbackend: invalid buffer size %dx%d", width, height)
	}
	mat := cv.NewMatWithSize(height, width, cv.MatTypeCV32F)

	data, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return nil, fmt.Errorf("gocvbackend: %w", err)
	}

	step := mat.Step()
	pitch := width
	if step > 0 {
		pitch = step / 4
	}

	return &Buffer2D{mat: mat, device: device, data: data, pitch: pitch}, nil
}

func (b *Buffer2D) Width() int  { return b.mat.Cols() }
func (b *Buffer2D) Height() int { return b.mat.Rows() }
func (b *Buffer2D) Pitch() int  { return b.pitch }
func (b *Buffer2D) Device() int { return b.device }

// Row returns a view over row i's elements, length Pitch() so callers may
// address padding columns. Only the first Width() elements are valid
// pixel data.
func (b *Buffer2D) Row(i int) []float32 {
	start := i * b.pitch
	end := start + b.pitch
	if end > len(b.data) {
		end = len(b.data)
	}
	return b.data[start:end]
}

// Release returns the underlying Mat to gocv. Safe to call more than once.
func (b *Buffer2D) Release() {
	if b.released.CompareAndSwap(false, true) {
		b.mat.Close()
	}
}
