// Package scheduler translates detector geometry and per-device memory
// capacity into an immutable execution plan: how the output volume is
// partitioned into sub-volumes, which device owns each one, and which band
// of detector rows can contribute to each (spec §4.1). The scheduler is a
// plain value, consulted once, up front — the redesign flag in spec §9
// that replaces the original's global singleton scheduler.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gocbct/fdkrecon/geometry"
)

// ErrNoDevices is a plan error (spec §7): a plan needs at least one device.
var ErrNoDevices = errors.New("scheduler: no devices given")

// ErrInsufficientMemory is a plan error (spec §7): a device cannot hold
// even its minimal halved sub-volume chunk.
var ErrInsufficientMemory = errors.New("scheduler: device has insufficient memory even after maximum halving")

// ErrTooManyChunks is a plan error: the combined device chunking would
// split the volume into more slices than it has z-voxels.
var ErrTooManyChunks = errors.New("scheduler: requested chunking exceeds volume depth")

// DeviceMemory describes one GPU's id and available global memory, the
// scheduler's only per-device input.
type DeviceMemory struct {
	ID             int
	GlobalMemBytes uint64
}

// SubVolume is the scheduler's output unit: an axis-aligned z-slab of the
// output volume, assigned to a device, plus the band of detector rows that
// can contribute to it for any rotation angle (spec §3 "Sub-volume",
// "Sub-projection descriptor").
type SubVolume struct {
	Device                 int
	DimX, DimY, DimZLocal  int
	ZOffset                int
	RowTop, RowBottom      int // inclusive detector row band
}

// Plan is the scheduler's immutable output contract (spec §4.1): volume
// geometry plus the full list of sub-volumes in device-assignment order.
type Plan struct {
	Volume     geometry.Volume
	SubVolumes []SubVolume
}

// Scheduler computes Plans. It is a plain value with no internal state —
// it holds no reference to the devices or geometry it is given, so a
// single Scheduler can compute any number of independent plans.
type Scheduler struct{}

// New returns a Scheduler. There is nothing to configure, and it is
// never a global singleton (spec §9).
func New() Scheduler { return Scheduler{} }

// Plan runs the single-pass algorithm of spec §4.1 and returns the
// resulting execution plan, or a plan error if no chunking of the volume
// fits in the given devices' memory.
func (Scheduler) Plan(detector geometry.Detector, vol geometry.Volume, devices []DeviceMemory) (Plan, error) {
	if len(devices) == 0 {
		return Plan{}, ErrNoDevices
	}

	chunksPerDevice, err := chunkCounts(vol, devices)
	if err != nil {
		return Plan{}, err
	}

	n := 0
	for _, c := range chunksPerDevice {
		n += c
	}
	if n > vol.DimZ {
		return Plan{}, fmt.Errorf("%w: %d chunks requested for a %d-voxel-deep volume", ErrTooManyChunks, n, vol.DimZ)
	}

	zOffsets := make([]int, n+1)
	for i := 0; i <= n; i++ {
		zOffsets[i] = i * vol.DimZ / n
	}

	subVolumes := make([]SubVolume, 0, n)
	idx := 0
	for di, dev := range devices {
		for c := 0; c < chunksPerDevice[di]; c++ {
			sv := SubVolume{
				Device:     dev.ID,
				DimX:       vol.DimX,
				DimY:       vol.DimY,
				DimZLocal:  zOffsets[idx+1] - zOffsets[idx],
				ZOffset:    zOffsets[idx],
			}
			sv.RowTop, sv.RowBottom = subProjectionBand(detector, vol, idx, n)
			subVolumes = append(subVolumes, sv)
			idx++
		}
	}

	return Plan{Volume: vol, SubVolumes: subVolumes}, nil
}

// chunkCounts implements spec §4.1 step 3: for each device, repeatedly
// halve the candidate chunk size (doubling the chunk count) until it fits
// in that device's memory. The result for every device is a power of two.
func chunkCounts(vol geometry.Volume, devices []DeviceMemory) ([]int, error) {
	bytesPerVolume := vol.BytesPerVolume()
	n := uint64(len(devices))

	counts := make([]int, len(devices))
	for i, dev := range devices {
		chunkSize := bytesPerVolume / n
		chunks := 1
		// A chunk that exactly fits in device memory is accepted; only a
		// chunk strictly larger than available memory forces another split.
		for chunkSize > dev.GlobalMemBytes && chunks < vol.DimZ {
			chunkSize /= 2
			chunks *= 2
		}
		if chunkSize > dev.GlobalMemBytes {
			return nil, fmt.Errorf("%w: device %d has %d bytes, needs at least %d even after maximum halving",
				ErrInsufficientMemory, dev.ID, dev.GlobalMemBytes, chunkSize)
		}
		counts[i] = chunks
	}
	return counts, nil
}

// subProjectionBand implements spec §4.1 step 5: the inclusive detector row
// band that can contribute to sub-volume n of N for any rotation angle.
func subProjectionBand(d geometry.Detector, vol geometry.Volume, n, N int) (rowTop, rowBottom int) {
	H := vol.HeightMM()
	top := -H/2 + float32(n)/float32(N)*H
	bottom := -H/2 + float32(n+1)/float32(N)*H

	rMax := float32(vol.DimX) * vol.LVxX / 2
	dso := math32.Abs(d.DSO)
	dsd := d.DSD()

	topVirt := virtualizeTop(top, dsd, dso, rMax)
	bottomVirt := virtualizeBottom(bottom, dsd, dso, rMax)

	halfColSpanMM := float32(d.NCol) * d.LPxCol / 2
	deltaTMM := d.DeltaTMM()
	bandLo := -halfColSpanMM - deltaTMM + d.LPxCol/2
	bandHi := bandLo + float32(d.NCol-1)*d.LPxCol

	topClamped := clampF(topVirt, bandLo, bandHi)
	bottomClamped := clampF(bottomVirt, bandLo, bandHi)

	toRow := func(y float32) int {
		return int(math32.Floor((y+halfColSpanMM+deltaTMM)/d.LPxCol - 0.5))
	}
	toRowCeil := func(y float32) int {
		return int(math32.Ceil((y+halfColSpanMM+deltaTMM)/d.LPxCol - 0.5))
	}

	rowTop = clampI(toRow(topClamped), 0, d.NCol-1)
	rowBottom = clampI(toRowCeil(bottomClamped), 0, d.NCol-1)
	if rowTop > rowBottom {
		rowTop, rowBottom = rowBottom, rowTop
	}
	return rowTop, rowBottom
}

// virtualizeTop implements the top_virt formula of spec §4.1 step 5:
// top_virt = top * d_sd / (|d_so| + (top<0 ? -r_max : +r_max)).
func virtualizeTop(y, dsd, dso, rMax float32) float32 {
	if y < 0 {
		return y * dsd / (dso - rMax)
	}
	return y * dsd / (dso + rMax)
}

// virtualizeBottom implements the bottom_virt formula of spec §4.1 step 5,
// whose sign convention is the mirror of virtualizeTop's:
// bottom_virt = bottom * d_sd / (|d_so| + (bottom<0 ? +r_max : -r_max)).
func virtualizeBottom(y, dsd, dso, rMax float32) float32 {
	if y < 0 {
		return y * dsd / (dso + rMax)
	}
	return y * dsd / (dso - rMax)
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
