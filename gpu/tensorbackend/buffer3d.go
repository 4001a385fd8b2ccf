// Package tensorbackend is a reference implementation of gpu.Buffer3D
// backed by gorgonia.org/tensor. A sub-volume (spec §3) is a genuine
// rank-3 array, unlike a Projection's 2-D image, so it is represented as a
// dense tensor.Dense of float32 with shape (dimX, dimY, dimZLocal). FDK is
// a closed-form, non-iterative algorithm, so only the tensor storage is
// used here, not gorgonia's expression-graph layer.
//
// This is a host-resident stand-in for the out-of-scope CUDA pitched 3-D
// device pointer (spec §1).
package tensorbackend

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/gocbct/fdkrecon/gpu"
)

// Buffer3D wraps a *tensor.Dense of float32 shaped (dimX, dimY, dimZ).
type Buffer3D struct {
	dense  *tensor.Dense
	device int
	dimX   int
	dimY   int
	dimZ   int
}

var _ gpu.Buffer3D = (*Buffer3D)(nil)

// NewBuffer3D allocates a zeroed sub-volume of the given dimensions on the
// given (logical) device id.
func NewBuffer3D(device, dimX, dimY, dimZ int) (*Buffer3D, error) {
	if dimX <= 0 || dimY <= 0 || dimZ <= 0 {
		return nil, fmt.Errorf("tensorbackend: invalid sub-volume dimensions %dx%dx%d", dimX, dimY, dimZ)
	}
	dense := tensor.New(
		tensor.WithShape(dimX, dimY, dimZ),
		tensor.Of(tensor.Float32),
	)
	return &Buffer3D{dense: dense, device: device, dimX: dimX, dimY: dimY, dimZ: dimZ}, nil
}

func (b *Buffer3D) DimX() int   { return b.dimX }
func (b *Buffer3D) DimY() int   { return b.dimY }
func (b *Buffer3D) DimZ() int   { return b.dimZ }
func (b *Buffer3D) Device() int { return b.device }

func (b *Buffer3D) index(k, l, m int) int {
	return (k*b.dimY+l)*b.dimZ + m
}

// At returns the voxel at (k,l,m).
func (b *Buffer3D) At(k, l, m int) float32 {
	return b.Flat()[b.index(k, l, m)]
}

// Set overwrites the voxel at (k,l,m).
func (b *Buffer3D) Set(k, l, m int, v float32) {
	b.Flat()[b.index(k, l, m)] = v
}

// Zero clears every voxel.
func (b *Buffer3D) Zero() {
	flat := b.Flat()
	for i := range flat {
		flat[i] = 0
	}
}

// Flat exposes the contiguous backing array, used by the back-projection
// kernel's inner loop and by the merge step's device-to-host copy.
func (b *Buffer3D) Flat() []float32 {
	data, ok := b.dense.Data().([]float32)
	if !ok {
		panic("tensorbackend: dense tensor backing is not []float32")
	}
	return data
}

// Release is a no-op for the host-resident reference backend; a CUDA
// backend would free device memory here.
func (b *Buffer3D) Release() {}
