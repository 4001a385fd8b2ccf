// Package geometry holds the detector and volume geometry types and the
// pure formulae that derive one from the other (spec §3). Nothing in this
// package performs I/O or spawns goroutines; every function is a
// deterministic value transform, which is what makes volume geometry
// derivation bit-exact and testable (spec §8 property 1).
package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Detector describes the fixed acquisition geometry of a circular-orbit
// cone-beam scan (spec §3).
type Detector struct {
	NRow, NCol       int     // detector pixel counts (horizontal, vertical)
	LPxRow, LPxCol   float32 // pixel pitch, mm
	DeltaS, DeltaT   float32 // principal-point offset, pixels
	DSO, DOD         float32 // source-to-object, object-to-detector, mm
	NProj            int     // projections per rotation
	RotAngleDeg      float32 // default angular step if no angle file is given
}

// DSD returns the source-to-detector distance |d_so| + |d_od|.
func (d Detector) DSD() float32 {
	return math32.Abs(d.DSO) + math32.Abs(d.DOD)
}

// DeltaSMM converts the horizontal principal-point offset from pixels to mm.
func (d Detector) DeltaSMM() float32 {
	return d.DeltaS * d.LPxRow
}

// DeltaTMM converts the vertical principal-point offset from pixels to mm.
func (d Detector) DeltaTMM() float32 {
	return d.DeltaT * d.LPxCol
}

// Validate reports a plan error (spec §7) if the geometry cannot possibly
// yield a positive-volume reconstruction.
func (d Detector) Validate() error {
	if d.NRow <= 0 || d.NCol <= 0 {
		return fmt.Errorf("geometry: detector pixel counts must be positive, got n_row=%d n_col=%d", d.NRow, d.NCol)
	}
	if d.LPxRow <= 0 || d.LPxCol <= 0 {
		return fmt.Errorf("geometry: pixel pitch must be positive, got l_px_row=%g l_px_col=%g", d.LPxRow, d.LPxCol)
	}
	if d.DSO == 0 && d.DOD == 0 {
		return fmt.Errorf("geometry: d_so and d_od cannot both be zero")
	}
	if d.NProj <= 0 {
		return fmt.Errorf("geometry: n_proj must be positive, got %d", d.NProj)
	}
	return nil
}
