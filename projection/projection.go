// Package projection defines the unit that flows through the
// reconstruction pipeline: a single 2-D radiograph together with the
// device resources and angle identity it carries through weighting,
// filtering and back-projection.
//
// A Source/Sink boundary, not a concrete file-format reader or volume
// writer, is intentional: image-file I/O is an external collaborator
// (spec §1).
package projection

import (
	"github.com/gocbct/fdkrecon/gpu"
)

// Projection is one acquired radiograph bound to device memory. Ownership
// is exclusive to whichever stage currently holds it; a Projection is
// passed by value (its Buffer is a handle, not a copy) through the
// pipeline's queues. Its lifetime ends when back-projection consumes it.
type Projection struct {
	Index  int // zero-based ordinal, matches its angle-table entry
	Width  int // == detector n_row
	Height int // == detector n_col
	Buffer gpu.Buffer2D
	Phi    float32 // rotation angle in radians
	Device int
	Stream gpu.Stream
}

// Source produces an ordered stream of projections. SetInputNum must be
// called, and must complete, before any projection is taken from Next —
// the back-projection stage needs n_proj to build its angle tables before
// the first kernel launch (spec §6).
type Source interface {
	SetInputNum(n int) error
	// Next returns the next projection, or ok=false once the stream is
	// exhausted (spec §3's end-of-stream condition, surfaced here as a
	// plain boolean rather than a sentinel value so a Source
	// implementation never has to fabricate an invalid Projection).
	Next() (p Projection, ok bool, err error)
}

// Sink receives the single, complete, host-side reconstructed volume.
// No partial/streaming delivery (spec §6).
type Sink interface {
	Accept(dimX, dimY, dimZ int, data []float32) error
}
