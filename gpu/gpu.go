// Package gpu defines the boundary between the reconstruction core and the
// GPU runtime. Spec §1 explicitly keeps "the low-level GPU runtime
// wrappers (device memory allocation, stream synchronization, pitched-
// memory helpers, launch-configuration helpers)" out of the HARD CORE's
// scope; this package is that boundary, expressed as interfaces the core
// depends on and a collaborator implements.
//
// The gocvbackend and tensorbackend sub-packages provide host-resident
// reference implementations used by tests and by the default engine
// wiring — a CPU back-end may exist as a reference per spec §1's
// non-goals, but is not the design target for production use.
package gpu

// Stream represents a GPU command stream. Work submitted to the same
// Stream executes in submission order; different Streams may run
// concurrently.
type Stream interface {
	// Synchronize blocks until every operation previously submitted to
	// this stream has completed.
	Synchronize() error
}

// Device identifies one GPU and reports its available memory, the only
// input the scheduler (spec §4.1) needs about it.
type Device interface {
	ID() int
	GlobalMemBytes() uint64
	NewStream() (Stream, error)
}

// Buffer2D is a pitched 2-D device buffer of float32, the representation
// backing a Projection's detector image (spec §3). Row i's elements occupy
// Row(i)[:Width()]; Pitch() may exceed Width() for alignment.
type Buffer2D interface {
	Width() int
	Height() int
	Pitch() int
	Row(i int) []float32
	Device() int
	Release()
}

// Buffer3D is a pitched 3-D device buffer of float32 backing one
// sub-volume (spec §3). Voxel (k,l,m) is addressed via At/Set; Flat
// exposes the contiguous host-visible backing array for merge copies.
type Buffer3D interface {
	DimX() int
	DimY() int
	DimZ() int
	At(k, l, m int) float32
	Set(k, l, m int, v float32)
	Zero()
	Device() int
	Flat() []float32
	Release()
}
