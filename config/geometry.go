// Package config decodes a detector geometry, ROI and device memory list
// from YAML using gopkg.in/yaml.v3. A reconstruction run's geometry is a
// small, fixed shape, so this is a plain struct-tag decode rather than a
// reflective value-tree walk.
//
// An Engine can also be built directly from a geometry.Detector value;
// this package only covers the CLI-facing config file format (spec §1's
// CLI-parsing boundary stays external).
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/scheduler"
)

// Geometry is the YAML document shape: detector parameters (spec §6),
// an optional ROI, and the device memory list the scheduler sizes
// sub-volumes against.
type Geometry struct {
	NRow        int     `yaml:"n_row"`
	NCol        int     `yaml:"n_col"`
	LPxRow      float32 `yaml:"l_px_row"`
	LPxCol      float32 `yaml:"l_px_col"`
	DeltaS      float32 `yaml:"delta_s"`
	DeltaT      float32 `yaml:"delta_t"`
	DSO         float32 `yaml:"d_so"`
	DOD         float32 `yaml:"d_od"`
	NProj       int     `yaml:"n_proj"`
	RotAngleDeg float32 `yaml:"rot_angle"`

	ROI *struct {
		X1, X2, Y1, Y2, Z1, Z2 int
	} `yaml:"roi,omitempty"`

	Devices []struct {
		ID             int    `yaml:"id"`
		GlobalMemBytes uint64 `yaml:"global_mem_bytes"`
	} `yaml:"devices,omitempty"`
}

// Load decodes a Geometry document from r.
func Load(r io.Reader) (Geometry, error) {
	var g Geometry
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&g); err != nil {
		return Geometry{}, fmt.Errorf("config: decode geometry: %w", err)
	}
	return g, nil
}

// Detector converts the decoded document into a geometry.Detector.
func (g Geometry) Detector() geometry.Detector {
	return geometry.Detector{
		NRow: g.NRow, NCol: g.NCol,
		LPxRow: g.LPxRow, LPxCol: g.LPxCol,
		DeltaS: g.DeltaS, DeltaT: g.DeltaT,
		DSO: g.DSO, DOD: g.DOD,
		NProj:       g.NProj,
		RotAngleDeg: g.RotAngleDeg,
	}
}

// ROIValue converts the decoded ROI block, if present.
func (g Geometry) ROIValue() (geometry.ROI, bool) {
	if g.ROI == nil {
		return geometry.ROI{}, false
	}
	return geometry.ROI{
		X1: g.ROI.X1, X2: g.ROI.X2,
		Y1: g.ROI.Y1, Y2: g.ROI.Y2,
		Z1: g.ROI.Z1, Z2: g.ROI.Z2,
	}, true
}

// DeviceMemory converts the decoded device list for scheduler.Plan.
func (g Geometry) DeviceMemory() []scheduler.DeviceMemory {
	out := make([]scheduler.DeviceMemory, len(g.Devices))
	for i, d := range g.Devices {
		out[i] = scheduler.DeviceMemory{ID: d.ID, GlobalMemBytes: d.GlobalMemBytes}
	}
	return out
}
